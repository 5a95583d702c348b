package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

type OrderRepository interface {
	FindByRef(ctx context.Context, orderRef string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uint, status domain.OrderStatus, notes *string, deliveredAt *time.Time) error
	AppendTransaction(ctx context.Context, id uint, transactionRef string) error
}

type ReservationCoordinator interface {
	Confirm(ctx context.Context, reservationID string, items []domain.ReservationItem) error
	Release(ctx context.Context, reservationID string, items []domain.ReservationItem) error
}

type BankingService interface {
	RecordTransaction(ctx context.Context, orderRef string, amount decimal.Decimal, kind string) (string, error)
}

type StockDisposition interface {
	MarkUnitsSold(ctx context.Context, orderID uint, quantities map[int]int) error
}

// LifecycleService owns an order after creation. Transition is the only way
// a status changes, and it drives the ledger actions and side effects tied
// to each change.
type LifecycleService struct {
	orderRepo   OrderRepository
	coordinator ReservationCoordinator
	banking     BankingService
	disposition StockDisposition
	auditor     audit.Recorder
	logger      *zap.Logger
}

func NewLifecycleService(
	orderRepo OrderRepository,
	coordinator ReservationCoordinator,
	banking BankingService,
	disposition StockDisposition,
	auditor audit.Recorder,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		orderRepo:   orderRepo,
		coordinator: coordinator,
		banking:     banking,
		disposition: disposition,
		auditor:     auditor,
		logger:      logger,
	}
}

// Transition moves an order to newStatus, applying the transition table and
// the side effects the target status triggers. A repeated transition to the
// current status is a no-op returning the unchanged order.
//
// When a ledger action fails the status update still goes through, and the
// returned error is a ReservationInconsistency or CompensationError next to
// a non-nil order, recorded rather than silently skipped, so operators can
// reconcile. A rejected transition returns InvalidTransition and runs no
// side effect at all.
func (s *LifecycleService) Transition(ctx context.Context, orderRef string, newStatus domain.OrderStatus, notes *string) (*domain.Order, error) {
	log := s.logger.With(zap.String("orderRef", orderRef), zap.String("newStatus", string(newStatus)))

	order, err := s.orderRepo.FindByRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}

	if newStatus == order.Status {
		log.Info("order already in requested status")
		return order, nil
	}

	if !newStatus.IsValid() || !order.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.NewInvalidTransitionError(string(order.Status), string(newStatus))
	}

	// Ledger action first, then secondary effects, then the status write.
	var ledgerIssue error
	switch {
	case domain.ReleasesReservation(order.Status, newStatus):
		if err := s.coordinator.Release(ctx, order.OrderRef, order.ReservationItems()); err != nil {
			ledgerIssue = err
			log.Error("failed to release reservation, status change proceeds flagged", zap.Error(err))
		}
	case domain.ConfirmsReservation(order.Status, newStatus):
		if err := s.coordinator.Confirm(ctx, order.OrderRef, order.ReservationItems()); err != nil {
			ledgerIssue = err
			log.Error("failed to confirm reservation, status change proceeds flagged", zap.Error(err))
		}
		s.recordSaleTransaction(ctx, order, log)
	}

	if domain.MarksItemsSold(newStatus) {
		quantities := make(map[int]int, len(order.Items))
		for _, item := range order.Items {
			quantities[item.ProductID] = item.Quantity
		}
		if err := s.disposition.MarkUnitsSold(ctx, order.ID, quantities); err != nil {
			// Disposition is best-effort; quantities already left the ledger
			// at confirm time.
			log.Error("failed to mark units sold", zap.Error(err))
		}
	}

	var deliveredAt *time.Time
	if newStatus == domain.OrderStatusDelivered && order.DeliveredAt == nil {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, newStatus, notes, deliveredAt); err != nil {
		return nil, apperrors.NewInternalError("updating order status", err)
	}

	s.auditor.Event(ctx, "order.status_change", "success", "order", map[string]interface{}{
		"orderRef": order.OrderRef,
		"from":     string(order.Status),
		"to":       string(newStatus),
	})
	log.Info("order status updated", zap.String("from", string(order.Status)))

	order.Status = newStatus
	if notes != nil {
		order.Notes = notes
	}
	if deliveredAt != nil {
		order.DeliveredAt = deliveredAt
	}

	return order, ledgerIssue
}

// recordSaleTransaction asks the banking collaborator for a sale_income
// record and attaches its reference to the order. Failures never block the
// transition; the transition is the source of truth, the record follows.
func (s *LifecycleService) recordSaleTransaction(ctx context.Context, order *domain.Order, log *zap.Logger) {
	trxRef, err := s.banking.RecordTransaction(ctx, order.OrderRef, order.TotalAmount, "sale_income")
	if err != nil {
		log.Error("failed to record sale transaction", zap.Error(err))
		return
	}

	if err := s.orderRepo.AppendTransaction(ctx, order.ID, trxRef); err != nil {
		log.Error("failed to attach transaction to order", zap.String("transactionRef", trxRef), zap.Error(err))
		return
	}

	order.TransactionRefs = append(order.TransactionRefs, trxRef)
}
