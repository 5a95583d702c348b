package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

// StockLedger is the atomic per-product stock primitive. Each call either
// applies fully or not at all; (false, nil) means the guard was not met.
type StockLedger interface {
	Reserve(ctx context.Context, productID, qty int) (bool, error)
	Release(ctx context.Context, productID, qty int) (bool, error)
	ConfirmSale(ctx context.Context, productID, qty int) (bool, error)
}

// ReservationService coordinates a named reservation spanning multiple
// products. Reservations are keyed by order reference; membership is not
// persisted separately: the order's item list is the manifest, so Confirm
// and Release take the item set from the caller.
type ReservationService struct {
	ledger         StockLedger
	logger         *zap.Logger
	reserveTimeout time.Duration
}

func NewReservationService(ledger StockLedger, logger *zap.Logger, reserveTimeout time.Duration) *ReservationService {
	return &ReservationService{
		ledger:         ledger,
		logger:         logger,
		reserveTimeout: reserveTimeout,
	}
}

// ReserveAll attempts to reserve every item, all-or-nothing from the
// caller's perspective. Per-item attempts run concurrently; each addresses
// an independent product row and is independently atomic, so there is no
// ordering requirement among them and no cross-product lock to deadlock on.
//
// On any per-item failure (insufficient stock, infrastructure error or
// timeout) the items that did reserve are released again before returning.
// A failed compensation surfaces as CompensationError so the reservation
// can be flagged for manual reconciliation.
func (s *ReservationService) ReserveAll(ctx context.Context, reservationID string, items []domain.ReservationItem) error {
	ctx, cancel := context.WithTimeout(ctx, s.reserveTimeout)
	defer cancel()

	applied := make([]bool, len(items))
	attemptErrs := make([]error, len(items))

	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			applied[i], attemptErrs[i] = s.ledger.Reserve(ctx, item.ProductID, item.Quantity)
			return nil
		})
	}
	// Closures record their outcome per index and never return an error.
	_ = g.Wait()

	var insufficientIDs []int
	var firstErr error
	for i, item := range items {
		switch {
		case attemptErrs[i] != nil:
			if firstErr == nil {
				firstErr = attemptErrs[i]
			}
			s.logger.Error("reserve attempt errored",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
				zap.Error(attemptErrs[i]),
			)
		case !applied[i]:
			insufficientIDs = append(insufficientIDs, item.ProductID)
			s.logger.Warn("insufficient stock",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
				zap.Int("quantity", item.Quantity),
			)
		}
	}

	if firstErr == nil && len(insufficientIDs) == 0 {
		s.logger.Info("reservation complete",
			zap.String("reservationId", reservationID),
			zap.Int("itemCount", len(items)),
		)
		return nil
	}

	// Partial success: compensate whatever did reserve. The request context
	// may already be cancelled or timed out; compensation still has to run.
	var reserved []domain.ReservationItem
	for i, item := range items {
		if applied[i] {
			reserved = append(reserved, item)
		}
	}
	if len(reserved) > 0 {
		compCtx, compCancel := context.WithTimeout(context.WithoutCancel(ctx), s.reserveTimeout)
		defer compCancel()
		if err := s.Release(compCtx, reservationID, reserved); err != nil {
			return err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("reserving stock for %s: %w", reservationID, firstErr)
	}
	return apperrors.NewInsufficientStockError(reservationID, insufficientIDs)
}

// Confirm converts the reservation into physical decrements, item by item.
// Items whose guard no longer holds, because the ledger was altered away
// from the expected reserved amount, are reported as a ReservationInconsistency;
// the caller decides whether to proceed, and operators reconcile.
func (s *ReservationService) Confirm(ctx context.Context, reservationID string, items []domain.ReservationItem) error {
	var inconsistentIDs []int
	for _, item := range items {
		ok, err := s.ledger.ConfirmSale(ctx, item.ProductID, item.Quantity)
		if err != nil {
			inconsistentIDs = append(inconsistentIDs, item.ProductID)
			s.logger.Error("confirm attempt errored",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			inconsistentIDs = append(inconsistentIDs, item.ProductID)
			s.logger.Error("confirm guard not met, ledger altered away from reservation",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
				zap.Int("quantity", item.Quantity),
			)
		}
	}

	if len(inconsistentIDs) > 0 {
		return apperrors.NewReservationInconsistencyError(reservationID, inconsistentIDs)
	}

	s.logger.Info("reservation confirmed",
		zap.String("reservationId", reservationID),
		zap.Int("itemCount", len(items)),
	)
	return nil
}

// Release returns reserved units to the available pool. It is idempotent:
// releasing an already-released or never-reserved item is a no-op, because
// compensations and retries must be safe to repeat. Only infrastructure
// failures surface, as CompensationError, since they leave the ledger
// inconsistent with the order.
func (s *ReservationService) Release(ctx context.Context, reservationID string, items []domain.ReservationItem) error {
	var failedIDs []int
	var firstErr error
	for _, item := range items {
		ok, err := s.ledger.Release(ctx, item.ProductID, item.Quantity)
		if err != nil {
			failedIDs = append(failedIDs, item.ProductID)
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Error("release attempt errored",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			// Nothing reserved to release; already compensated or never held.
			s.logger.Debug("release was a no-op",
				zap.String("reservationId", reservationID),
				zap.Int("productId", item.ProductID),
			)
		}
	}

	if len(failedIDs) > 0 {
		return apperrors.NewCompensationError(reservationID, failedIDs, firstErr)
	}

	s.logger.Info("reservation released",
		zap.String("reservationId", reservationID),
		zap.Int("itemCount", len(items)),
	)
	return nil
}
