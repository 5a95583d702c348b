package banking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransactionRepository interface {
	Insert(ctx context.Context, trx Transaction) (uint, error)
}

type ReferenceGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service records financial transactions. The order lifecycle invokes it on
// the confirm-triggering transition; it is not a payment gateway.
type Service struct {
	repo   TransactionRepository
	refs   ReferenceGenerator
	logger *zap.Logger
}

func NewService(repo TransactionRepository, refs ReferenceGenerator, logger *zap.Logger) *Service {
	return &Service{repo: repo, refs: refs, logger: logger}
}

// RecordTransaction persists a transaction and returns its reference.
func (s *Service) RecordTransaction(ctx context.Context, orderRef string, amount decimal.Decimal, kind string) (string, error) {
	ref, err := s.refs.Next(ctx, "TRX")
	if err != nil {
		return "", fmt.Errorf("generating transaction reference: %w", err)
	}

	id, err := s.repo.Insert(ctx, Transaction{
		TransactionRef: ref,
		OrderRef:       orderRef,
		Kind:           kind,
		Amount:         amount,
	})
	if err != nil {
		return "", fmt.Errorf("recording transaction: %w", err)
	}

	s.logger.Info("transaction recorded",
		zap.String("transactionRef", ref),
		zap.String("orderRef", orderRef),
		zap.String("kind", kind),
		zap.String("amount", amount.StringFixed(2)),
		zap.Uint("id", id),
	)

	return ref, nil
}
