package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error)
}

type PriceResolver interface {
	Resolve(product domain.Product, profileType, channel string) (tier string, price *decimal.Decimal)
}

type ReferenceGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

type StockReserver interface {
	ReserveAll(ctx context.Context, reservationID string, items []domain.ReservationItem) error
	Release(ctx context.Context, reservationID string, items []domain.ReservationItem) error
}

type OrderWriter interface {
	Insert(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

type CreateOrderItemInput struct {
	ProductID int
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID  int
	ProfileType string
	Channel     string
	Notes       *string
	Items       []CreateOrderItemInput
}

// CreateOrderUseCase is the top-level order creation flow: price the items,
// reserve stock under the order's reference, persist the order in pending
// state, and compensate the reservation if the persist fails. A reservation
// must never outlive the order it belongs to.
type CreateOrderUseCase struct {
	products ProductFinder
	pricing  PriceResolver
	refs     ReferenceGenerator
	reserver StockReserver
	orders   OrderWriter
	auditor  audit.Recorder
	logger   *zap.Logger
}

func NewCreateOrderUseCase(
	products ProductFinder,
	pricing PriceResolver,
	refs ReferenceGenerator,
	reserver StockReserver,
	orders OrderWriter,
	auditor audit.Recorder,
	logger *zap.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		products: products,
		pricing:  pricing,
		refs:     refs,
		reserver: reserver,
		orders:   orders,
		auditor:  auditor,
		logger:   logger,
	}
}

func (uc *CreateOrderUseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	log := uc.logger.With(zap.Int("customerId", in.CustomerID), zap.String("channel", in.Channel))
	log.Info("creating order", zap.Int("itemCount", len(in.Items)))

	items, total, err := uc.buildItems(ctx, in)
	if err != nil {
		return nil, err
	}

	// The reference doubles as the reservation id, so it must exist before
	// any stock is touched; failure here aborts with nothing to undo.
	orderRef, err := uc.refs.Next(ctx, "ORD")
	if err != nil {
		return nil, apperrors.NewInternalError("generating order reference", err)
	}
	log = log.With(zap.String("orderRef", orderRef))

	reserveItems := reservationItems(items)
	if err := uc.reserver.ReserveAll(ctx, orderRef, reserveItems); err != nil {
		log.Warn("stock reservation failed", zap.Error(err))
		uc.auditor.Event(ctx, "order.create", "failure", "order", map[string]interface{}{
			"orderRef": orderRef, "reason": err.Error(),
		})
		return nil, err
	}

	order := &domain.Order{
		OrderRef:    orderRef,
		CustomerID:  in.CustomerID,
		Channel:     in.Channel,
		Items:       items,
		TotalAmount: total,
		Status:      domain.OrderStatusPending,
		Notes:       in.Notes,
	}

	created, err := uc.orders.Insert(ctx, order)
	if err != nil {
		log.Error("failed to persist order after reservation, releasing stock", zap.Error(err))
		// The request context may already be dead; the compensation is not.
		compCtx := context.WithoutCancel(ctx)
		if relErr := uc.reserver.Release(compCtx, orderRef, reserveItems); relErr != nil {
			log.Error("compensating release failed, ledger needs manual reconciliation", zap.Error(relErr))
			return nil, relErr
		}
		return nil, apperrors.NewInternalError("persisting order", err)
	}

	uc.auditor.Event(ctx, "order.create", "success", "order", map[string]interface{}{
		"orderRef": orderRef, "total": total.StringFixed(2),
	})
	log.Info("order created", zap.String("total", total.StringFixed(2)))

	return created, nil
}

// buildItems resolves prices and validates availability, producing the
// priced line items and the rounded order total. The availability check is
// advisory only; the ledger's conditional update decides for real.
func (uc *CreateOrderUseCase) buildItems(ctx context.Context, in CreateOrderInput) ([]domain.OrderItem, decimal.Decimal, error) {
	ids := make([]int, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := uc.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, apperrors.NewInternalError("loading products", err)
	}
	productsByID := make(map[int]domain.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	var unavailableIDs []int

	for _, itemIn := range in.Items {
		product, ok := productsByID[itemIn.ProductID]
		if !ok {
			return nil, decimal.Zero, apperrors.NewNotFoundError(fmt.Sprintf("product %d not found", itemIn.ProductID))
		}
		if !product.IsActive {
			return nil, decimal.Zero, apperrors.NewValidationError(
				fmt.Sprintf("product %q is unavailable", product.Name),
				apperrors.ValidationDetail{Field: "items", Message: "product is inactive"},
			)
		}

		tier, price := uc.pricing.Resolve(product, in.ProfileType, in.Channel)
		if price == nil {
			return nil, decimal.Zero, apperrors.NewValidationError(
				fmt.Sprintf("no price found for product %q", product.Name),
				apperrors.ValidationDetail{Field: "items", Message: "no applicable price tier"},
			)
		}

		if product.AvailableStock() < itemIn.Quantity {
			unavailableIDs = append(unavailableIDs, product.ID)
			continue
		}

		qty := decimal.NewFromInt(int64(itemIn.Quantity))
		total = total.Add(price.Mul(qty))

		var margin *decimal.Decimal
		if product.Prices.Cost != nil {
			m := price.Sub(*product.Prices.Cost).Mul(qty).Round(2)
			margin = &m
		}

		items = append(items, domain.OrderItem{
			ProductID:        product.ID,
			ProductName:      product.Name,
			Quantity:         itemIn.Quantity,
			PriceAtPurchase:  *price,
			MarginAtPurchase: margin,
			PriceTier:        tier,
		})
	}

	if len(unavailableIDs) > 0 {
		return nil, decimal.Zero, apperrors.NewInsufficientStockError("", unavailableIDs)
	}

	return items, total.Round(2), nil
}

// reservationItems maps line items to the reservation manifest, sorted by
// product id so attempts and compensations walk products in a stable order.
func reservationItems(items []domain.OrderItem) []domain.ReservationItem {
	reserve := make([]domain.ReservationItem, 0, len(items))
	for _, item := range items {
		reserve = append(reserve, domain.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	sort.Slice(reserve, func(i, j int) bool { return reserve[i].ProductID < reserve[j].ProductID })
	return reserve
}
