package usecase

import (
	"context"

	"go.uber.org/zap"

	"radagast/internal/domain"
	apperrors "radagast/internal/errors"
)

type OrderLifecycle interface {
	Transition(ctx context.Context, orderRef string, newStatus domain.OrderStatus, notes *string) (*domain.Order, error)
}

// UpdateOrderStatusUseCase validates the requested status and delegates the
// transition to the lifecycle service.
type UpdateOrderStatusUseCase struct {
	lifecycle OrderLifecycle
	logger    *zap.Logger
}

func NewUpdateOrderStatusUseCase(lifecycle OrderLifecycle, logger *zap.Logger) *UpdateOrderStatusUseCase {
	return &UpdateOrderStatusUseCase{lifecycle: lifecycle, logger: logger}
}

func (uc *UpdateOrderStatusUseCase) UpdateStatus(ctx context.Context, orderRef string, newStatus string, notes *string) (*domain.Order, error) {
	status := domain.OrderStatus(newStatus)
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("unknown order status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is not a recognized order status",
		})
	}

	uc.logger.Info("order status change requested",
		zap.String("orderRef", orderRef),
		zap.String("newStatus", newStatus),
	)

	return uc.lifecycle.Transition(ctx, orderRef, status, notes)
}
