package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"radagast/internal/audit"
	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

type mockProductFinder struct {
	FindByIDsFunc func(ctx context.Context, ids []int) ([]domain.Product, error)
}

func (m *mockProductFinder) FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error) {
	return m.FindByIDsFunc(ctx, ids)
}

type mockPriceResolver struct {
	ResolveFunc func(product domain.Product, profileType, channel string) (string, *decimal.Decimal)
}

func (m *mockPriceResolver) Resolve(product domain.Product, profileType, channel string) (string, *decimal.Decimal) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(product, profileType, channel)
	}
	return "sale_a", product.Prices.SaleA
}

type mockReferenceGenerator struct {
	NextFunc func(ctx context.Context, prefix string) (string, error)

	calls int
}

func (m *mockReferenceGenerator) Next(ctx context.Context, prefix string) (string, error) {
	m.calls++
	if m.NextFunc != nil {
		return m.NextFunc(ctx, prefix)
	}
	return "ORD-000001", nil
}

type mockStockReserver struct {
	ReserveAllFunc func(ctx context.Context, reservationID string, items []domain.ReservationItem) error
	ReleaseFunc    func(ctx context.Context, reservationID string, items []domain.ReservationItem) error

	reserveCalls int
	releaseCalls int
}

func (m *mockStockReserver) ReserveAll(ctx context.Context, reservationID string, items []domain.ReservationItem) error {
	m.reserveCalls++
	if m.ReserveAllFunc != nil {
		return m.ReserveAllFunc(ctx, reservationID, items)
	}
	return nil
}

func (m *mockStockReserver) Release(ctx context.Context, reservationID string, items []domain.ReservationItem) error {
	m.releaseCalls++
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, reservationID, items)
	}
	return nil
}

type mockOrderWriter struct {
	InsertFunc func(ctx context.Context, order *domain.Order) (*domain.Order, error)

	calls int
}

func (m *mockOrderWriter) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	m.calls++
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, order)
	}
	created := *order
	created.ID = 1
	return &created, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID: 1, Name: "Amplifier", IsActive: true,
			StockQuantity: 10, ReservedStock: 2,
			Prices: domain.ProductPrices{Cost: decPtr("40.00"), SaleA: decPtr("59.99")},
		},
		{
			ID: 2, Name: "Cable", IsActive: true,
			StockQuantity: 100, ReservedStock: 0,
			Prices: domain.ProductPrices{Cost: decPtr("1.50"), SaleA: decPtr("4.25")},
		},
	}
}

func newTestCreateOrderUseCase(
	products *mockProductFinder,
	refs *mockReferenceGenerator,
	reserver *mockStockReserver,
	orders *mockOrderWriter,
) *CreateOrderUseCase {
	return NewCreateOrderUseCase(products, &mockPriceResolver{}, refs, reserver, orders, audit.Nop(), zap.NewNop())
}

func TestCreateOrder_HappyPath(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts(), nil
		},
	}
	refs := &mockReferenceGenerator{}
	reserver := &mockStockReserver{}
	orders := &mockOrderWriter{}

	uc := newTestCreateOrderUseCase(products, refs, reserver, orders)

	order, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Channel:    "ui",
		Items: []CreateOrderItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 4},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, "ORD-000001", order.OrderRef)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 2)

	// 2 * 59.99 + 4 * 4.25 = 136.98
	assert.True(t, order.TotalAmount.Equal(dec("136.98")), "total = %s", order.TotalAmount)

	// margin(1) = (59.99 - 40.00) * 2 = 39.98
	assert.NotNil(t, order.Items[0].MarginAtPurchase)
	assert.True(t, order.Items[0].MarginAtPurchase.Equal(dec("39.98")))
	assert.Equal(t, "sale_a", order.Items[0].PriceTier)

	assert.Equal(t, 1, reserver.reserveCalls)
	assert.Equal(t, 0, reserver.releaseCalls)
	assert.Equal(t, 1, orders.calls)
}

func TestCreateOrder_ReservationFailure_NothingPersisted(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts(), nil
		},
	}
	reserver := &mockStockReserver{
		ReserveAllFunc: func(_ context.Context, reservationID string, _ []domain.ReservationItem) error {
			return apperrors.NewInsufficientStockError(reservationID, []int{1})
		},
	}
	orders := &mockOrderWriter{}

	uc := newTestCreateOrderUseCase(products, &mockReferenceGenerator{}, reserver, orders)

	order, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 2}},
	})

	assert.Nil(t, order)
	ise, ok := apperrors.IsInsufficientStockError(err)
	assert.True(t, ok, "expected InsufficientStockError, got %v", err)
	assert.Equal(t, "ORD-000001", ise.ReservationID)
	assert.Equal(t, 0, orders.calls, "no order row without a reservation")
}

func TestCreateOrder_PersistFailure_ReleasesReservation(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts(), nil
		},
	}
	reserver := &mockStockReserver{}
	orders := &mockOrderWriter{
		InsertFunc: func(_ context.Context, _ *domain.Order) (*domain.Order, error) {
			return nil, errors.New("driver: bad connection")
		},
	}

	uc := newTestCreateOrderUseCase(products, &mockReferenceGenerator{}, reserver, orders)

	order, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 2}},
	})

	assert.Nil(t, order)
	_, ok := apperrors.IsInternalError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, reserver.releaseCalls, "persist failure must release the reservation")
}

func TestCreateOrder_PersistAndReleaseFailure_SurfacesCompensationError(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts(), nil
		},
	}
	reserver := &mockStockReserver{
		ReleaseFunc: func(_ context.Context, reservationID string, _ []domain.ReservationItem) error {
			return apperrors.NewCompensationError(reservationID, []int{1}, errors.New("timeout"))
		},
	}
	orders := &mockOrderWriter{
		InsertFunc: func(_ context.Context, _ *domain.Order) (*domain.Order, error) {
			return nil, errors.New("driver: bad connection")
		},
	}

	uc := newTestCreateOrderUseCase(products, &mockReferenceGenerator{}, reserver, orders)

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 2}},
	})

	ce, ok := apperrors.IsCompensationError(err)
	assert.True(t, ok, "expected CompensationError, got %v", err)
	assert.Equal(t, "ORD-000001", ce.ReservationID)
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts()[:1], nil
		},
	}
	refs := &mockReferenceGenerator{}
	reserver := &mockStockReserver{}

	uc := newTestCreateOrderUseCase(products, refs, reserver, &mockOrderWriter{})

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 99, Quantity: 1}},
	})

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, refs.calls, "validation failures abort before any reference is taken")
	assert.Equal(t, 0, reserver.reserveCalls)
}

func TestCreateOrder_InactiveProduct(t *testing.T) {
	inactive := testProducts()
	inactive[0].IsActive = false
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return inactive, nil
		},
	}

	uc := newTestCreateOrderUseCase(products, &mockReferenceGenerator{}, &mockStockReserver{}, &mockOrderWriter{})

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 1}},
	})

	ve, ok := apperrors.IsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
	assert.Contains(t, ve.Message, "unavailable")
}

func TestCreateOrder_NoApplicablePrice(t *testing.T) {
	noPrices := testProducts()
	noPrices[0].Prices = domain.ProductPrices{}
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return noPrices, nil
		},
	}

	uc := newTestCreateOrderUseCase(products, &mockReferenceGenerator{}, &mockStockReserver{}, &mockOrderWriter{})

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 1}},
	})

	ve, ok := apperrors.IsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
	assert.Contains(t, ve.Message, "no price")
}

func TestCreateOrder_AdvisoryAvailabilityCheck(t *testing.T) {
	lowStock := testProducts()
	lowStock[0].StockQuantity = 3
	lowStock[0].ReservedStock = 2
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return lowStock, nil
		},
	}
	refs := &mockReferenceGenerator{}
	reserver := &mockStockReserver{}

	uc := newTestCreateOrderUseCase(products, refs, reserver, &mockOrderWriter{})

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 5}},
	})

	ise, ok := apperrors.IsInsufficientStockError(err)
	assert.True(t, ok, "expected InsufficientStockError, got %v", err)
	assert.Equal(t, []int{1}, ise.ProductIDs)
	assert.Equal(t, 0, reserver.reserveCalls, "advisory rejection happens before the ledger is touched")
	assert.Equal(t, 0, refs.calls)
}

func TestCreateOrder_ReferenceFailure_AbortsBeforeReservation(t *testing.T) {
	products := &mockProductFinder{
		FindByIDsFunc: func(_ context.Context, _ []int) ([]domain.Product, error) {
			return testProducts(), nil
		},
	}
	refs := &mockReferenceGenerator{
		NextFunc: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("counter unavailable")
		},
	}
	reserver := &mockStockReserver{}

	uc := newTestCreateOrderUseCase(products, refs, reserver, &mockOrderWriter{})

	_, err := uc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 10,
		Items:      []CreateOrderItemInput{{ProductID: 1, Quantity: 1}},
	})

	_, ok := apperrors.IsInternalError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, reserver.reserveCalls)
}

func TestReservationItems_SortedByProductID(t *testing.T) {
	items := []domain.OrderItem{
		{ProductID: 9, Quantity: 1},
		{ProductID: 2, Quantity: 3},
		{ProductID: 5, Quantity: 2},
	}

	manifest := reservationItems(items)

	assert.Equal(t, []domain.ReservationItem{
		{ProductID: 2, Quantity: 3},
		{ProductID: 5, Quantity: 2},
		{ProductID: 9, Quantity: 1},
	}, manifest)
}
