package audit

import (
	"context"

	"go.uber.org/zap"
)

// Recorder receives an audit event around every mutating operation. It has
// no effect on control flow; implementations must never fail the business
// operation they describe.
type Recorder interface {
	Event(ctx context.Context, action, status, entity string, details map[string]interface{})
}

type zapRecorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) Recorder {
	return &zapRecorder{logger: logger.Named("audit")}
}

func (r *zapRecorder) Event(_ context.Context, action, status, entity string, details map[string]interface{}) {
	r.logger.Info("audit event",
		zap.String("action", action),
		zap.String("status", status),
		zap.String("entity", entity),
		zap.Any("details", details),
	)
}

// Nop returns a recorder that discards events, for tests.
func Nop() Recorder {
	return &zapRecorder{logger: zap.NewNop()}
}
