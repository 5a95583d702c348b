package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

// memoryLedger mirrors the conditional update semantics of the real ledger:
// each call checks its guard and applies under one lock, atomically per
// product.
type memoryLedger struct {
	mu       sync.Mutex
	physical map[int]int
	reserved map[int]int
}

func newMemoryLedger(stock map[int]int) *memoryLedger {
	physical := make(map[int]int, len(stock))
	for id, qty := range stock {
		physical[id] = qty
	}
	return &memoryLedger{physical: physical, reserved: make(map[int]int)}
}

func (l *memoryLedger) Reserve(_ context.Context, productID, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.physical[productID]-l.reserved[productID] < qty {
		return false, nil
	}
	l.reserved[productID] += qty
	return true, nil
}

func (l *memoryLedger) Release(_ context.Context, productID, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserved[productID] < qty {
		return false, nil
	}
	l.reserved[productID] -= qty
	return true, nil
}

func (l *memoryLedger) ConfirmSale(_ context.Context, productID, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.physical[productID] < qty || l.reserved[productID] < qty {
		return false, nil
	}
	l.physical[productID] -= qty
	l.reserved[productID] -= qty
	return true, nil
}

func (l *memoryLedger) state(productID int) (physical, reserved int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.physical[productID], l.reserved[productID]
}

// mockLedger injects failures per call.
type mockLedger struct {
	ReserveFunc     func(ctx context.Context, productID, qty int) (bool, error)
	ReleaseFunc     func(ctx context.Context, productID, qty int) (bool, error)
	ConfirmSaleFunc func(ctx context.Context, productID, qty int) (bool, error)
}

func (m *mockLedger) Reserve(ctx context.Context, productID, qty int) (bool, error) {
	return m.ReserveFunc(ctx, productID, qty)
}

func (m *mockLedger) Release(ctx context.Context, productID, qty int) (bool, error) {
	return m.ReleaseFunc(ctx, productID, qty)
}

func (m *mockLedger) ConfirmSale(ctx context.Context, productID, qty int) (bool, error) {
	return m.ConfirmSaleFunc(ctx, productID, qty)
}

func newTestReservationService(ledger StockLedger) *ReservationService {
	return NewReservationService(ledger, zap.NewNop(), 5*time.Second)
}

func TestReserveAll_Success(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10, 2: 5})
	svc := newTestReservationService(ledger)

	err := svc.ReserveAll(context.Background(), "ORD-000001", []domain.ReservationItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 5},
	})

	assert.NoError(t, err)

	_, reserved1 := ledger.state(1)
	_, reserved2 := ledger.state(2)
	assert.Equal(t, 4, reserved1)
	assert.Equal(t, 5, reserved2)
}

func TestReserveAll_InsufficientStock_ReleasesPartial(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10, 2: 1})
	svc := newTestReservationService(ledger)

	err := svc.ReserveAll(context.Background(), "ORD-000002", []domain.ReservationItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 3},
	})

	ise, ok := apperrors.IsInsufficientStockError(err)
	assert.True(t, ok, "expected InsufficientStockError, got %v", err)
	assert.Equal(t, "ORD-000002", ise.ReservationID)
	assert.Equal(t, []int{2}, ise.ProductIDs)

	// The item that did reserve must be returned to the pool.
	_, reserved1 := ledger.state(1)
	_, reserved2 := ledger.state(2)
	assert.Equal(t, 0, reserved1)
	assert.Equal(t, 0, reserved2)
}

func TestReserveAll_ConcurrentContention_ExactlyOneWins(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10})
	svc := newTestReservationService(ledger)

	items := []domain.ReservationItem{{ProductID: 1, Quantity: 6}}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.ReserveAll(context.Background(), "ORD-00000"+string(rune('3'+i)), items)
		}()
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range results {
		if err == nil {
			successes++
		} else if _, ok := apperrors.IsInsufficientStockError(err); ok {
			insufficient++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)

	physical, reserved := ledger.state(1)
	assert.Equal(t, 10, physical)
	assert.Equal(t, 6, reserved)
}

func TestReserveAll_NeverOversells(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 25})
	svc := newTestReservationService(ledger)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.ReserveAll(context.Background(), "ORD-000099", []domain.ReservationItem{
				{ProductID: 1, Quantity: 3},
			})
		}()
	}
	wg.Wait()

	physical, reserved := ledger.state(1)
	assert.Equal(t, 25, physical)
	assert.LessOrEqual(t, reserved, physical)
	assert.GreaterOrEqual(t, reserved, 0)
	// 20 attempts of 3 units against 25: exactly 8 can fit.
	assert.Equal(t, 24, reserved)
}

func TestReserveAll_InfrastructureError_CompensatesAndWraps(t *testing.T) {
	infraErr := errors.New("driver: bad connection")
	var released []int
	var mu sync.Mutex

	ledger := &mockLedger{
		ReserveFunc: func(_ context.Context, productID, _ int) (bool, error) {
			if productID == 2 {
				return false, infraErr
			}
			return true, nil
		},
		ReleaseFunc: func(_ context.Context, productID, _ int) (bool, error) {
			mu.Lock()
			released = append(released, productID)
			mu.Unlock()
			return true, nil
		},
	}
	svc := newTestReservationService(ledger)

	err := svc.ReserveAll(context.Background(), "ORD-000010", []domain.ReservationItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 2},
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, infraErr)
	_, ok := apperrors.IsInsufficientStockError(err)
	assert.False(t, ok, "infrastructure failure must not read as insufficient stock")
	assert.Equal(t, []int{1}, released)
}

func TestReserveAll_Timeout_ReleasesOnFreshContext(t *testing.T) {
	var mu sync.Mutex
	var released []int
	var releaseCtxErr error

	ledger := &mockLedger{
		ReserveFunc: func(ctx context.Context, productID, _ int) (bool, error) {
			if productID == 2 {
				// Simulate a hung ledger call: block until the attempt
				// deadline fires.
				<-ctx.Done()
				return false, ctx.Err()
			}
			return true, nil
		},
		ReleaseFunc: func(ctx context.Context, productID, _ int) (bool, error) {
			mu.Lock()
			released = append(released, productID)
			releaseCtxErr = ctx.Err()
			mu.Unlock()
			return true, nil
		},
	}
	svc := NewReservationService(ledger, zap.NewNop(), 50*time.Millisecond)

	err := svc.ReserveAll(context.Background(), "ORD-000012", []domain.ReservationItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 2},
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := apperrors.IsInsufficientStockError(err)
	assert.False(t, ok, "a timed-out attempt must not read as insufficient stock")

	// The item that did reserve is returned to the pool, and the release
	// runs on a live context even though the attempt's deadline already
	// fired.
	assert.Equal(t, []int{1}, released)
	assert.NoError(t, releaseCtxErr)
}

func TestReserveAll_CompensationFailure_Surfaces(t *testing.T) {
	releaseErr := errors.New("connection reset")
	ledger := &mockLedger{
		ReserveFunc: func(_ context.Context, productID, _ int) (bool, error) {
			return productID == 1, nil
		},
		ReleaseFunc: func(_ context.Context, _, _ int) (bool, error) {
			return false, releaseErr
		},
	}
	svc := newTestReservationService(ledger)

	err := svc.ReserveAll(context.Background(), "ORD-000011", []domain.ReservationItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
	})

	ce, ok := apperrors.IsCompensationError(err)
	assert.True(t, ok, "expected CompensationError, got %v", err)
	assert.Equal(t, "ORD-000011", ce.ReservationID)
	assert.Equal(t, []int{1}, ce.ProductIDs)
	assert.ErrorIs(t, err, releaseErr)
}

func TestConfirm_DecrementsBoth(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10})
	svc := newTestReservationService(ledger)

	items := []domain.ReservationItem{{ProductID: 1, Quantity: 4}}
	assert.NoError(t, svc.ReserveAll(context.Background(), "ORD-000020", items))

	availableBefore := func() int {
		physical, reserved := ledger.state(1)
		return physical - reserved
	}()

	assert.NoError(t, svc.Confirm(context.Background(), "ORD-000020", items))

	physical, reserved := ledger.state(1)
	assert.Equal(t, 6, physical)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, availableBefore, physical-reserved, "confirm must not change available stock")
}

func TestConfirm_GuardMiss_ReportsInconsistency(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10, 2: 10})
	svc := newTestReservationService(ledger)

	// Product 1 reserved normally; product 2 has nothing held.
	assert.NoError(t, svc.ReserveAll(context.Background(), "ORD-000021", []domain.ReservationItem{
		{ProductID: 1, Quantity: 3},
	}))

	err := svc.Confirm(context.Background(), "ORD-000021", []domain.ReservationItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 3},
	})

	rie, ok := apperrors.IsReservationInconsistencyError(err)
	assert.True(t, ok, "expected ReservationInconsistencyError, got %v", err)
	assert.Equal(t, []int{2}, rie.ProductIDs)

	// The consistent item was still confirmed.
	physical1, reserved1 := ledger.state(1)
	assert.Equal(t, 7, physical1)
	assert.Equal(t, 0, reserved1)
}

func TestRelease_Idempotent(t *testing.T) {
	ledger := newMemoryLedger(map[int]int{1: 10})
	svc := newTestReservationService(ledger)

	items := []domain.ReservationItem{{ProductID: 1, Quantity: 4}}
	assert.NoError(t, svc.ReserveAll(context.Background(), "ORD-000030", items))

	assert.NoError(t, svc.Release(context.Background(), "ORD-000030", items))
	assert.NoError(t, svc.Release(context.Background(), "ORD-000030", items))

	physical, reserved := ledger.state(1)
	assert.Equal(t, 10, physical)
	assert.Equal(t, 0, reserved, "double release must not go negative")
}

func TestRelease_InfrastructureError_IsCompensationError(t *testing.T) {
	infraErr := errors.New("timeout")
	ledger := &mockLedger{
		ReleaseFunc: func(_ context.Context, _, _ int) (bool, error) {
			return false, infraErr
		},
	}
	svc := newTestReservationService(ledger)

	err := svc.Release(context.Background(), "ORD-000031", []domain.ReservationItem{
		{ProductID: 1, Quantity: 1},
	})

	ce, ok := apperrors.IsCompensationError(err)
	assert.True(t, ok)
	assert.Equal(t, []int{1}, ce.ProductIDs)
	assert.ErrorIs(t, err, infraErr)
}
