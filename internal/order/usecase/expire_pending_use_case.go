package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"radagast/internal/domain"
)

type PendingOrderLister interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// ExpirePendingUseCase cancels pending orders that outlived the configured
// TTL, releasing their reservations through the normal transition path.
// Abandoned checkouts would otherwise hold reserved stock forever; the
// sweep is operator-triggered rather than a background loop so its timing
// stays observable.
type ExpirePendingUseCase struct {
	orders     PendingOrderLister
	lifecycle  OrderLifecycle
	pendingTTL time.Duration
	logger     *zap.Logger
}

func NewExpirePendingUseCase(orders PendingOrderLister, lifecycle OrderLifecycle, pendingTTL time.Duration, logger *zap.Logger) *ExpirePendingUseCase {
	return &ExpirePendingUseCase{
		orders:     orders,
		lifecycle:  lifecycle,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

const expireBatchLimit = 500

type ExpireResult struct {
	Expired []string
	Failed  []string
}

func (uc *ExpirePendingUseCase) ExpirePending(ctx context.Context) (*ExpireResult, error) {
	cutoff := time.Now().UTC().Add(-uc.pendingTTL)

	refs, err := uc.orders.ListPendingBefore(ctx, cutoff, expireBatchLimit)
	if err != nil {
		return nil, err
	}

	notes := "auto-cancelled: pending past TTL"
	result := &ExpireResult{}
	for _, ref := range refs {
		if _, err := uc.lifecycle.Transition(ctx, ref, domain.OrderStatusCancelled, &notes); err != nil {
			// Keep sweeping; a stuck order must not shield the rest.
			uc.logger.Error("failed to expire pending order", zap.String("orderRef", ref), zap.Error(err))
			result.Failed = append(result.Failed, ref)
			continue
		}
		result.Expired = append(result.Expired, ref)
	}

	uc.logger.Info("pending order sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("expired", len(result.Expired)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}
