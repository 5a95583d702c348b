package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// DispositionService marks physical tagged units as sold once an order is
// delivered. It tracks serialized units (RFID tags), not quantities; the
// quantity ledger lives in the stock repository.
type DispositionService struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDispositionService(db *sql.DB, logger *zap.Logger) *DispositionService {
	return &DispositionService{db: db, logger: logger}
}

// MarkUnitsSold flags up to the ordered quantity of available tagged units
// per product as SOLD, attributing them to the order. Fewer tagged units
// than ordered is not an error: not every product is serialized.
func (s *DispositionService) MarkUnitsSold(ctx context.Context, orderID uint, quantities map[int]int) error {
	for productID, qty := range quantities {
		if qty <= 0 {
			continue
		}

		result, err := s.db.ExecContext(ctx, `
			UPDATE StockItems
			SET status = 'SOLD', orderId = ?, soldAt = NOW()
			WHERE productId = ? AND status = 'AVAILABLE'
			ORDER BY createdAt
			LIMIT ?`,
			orderID, productID, qty,
		)
		if err != nil {
			return fmt.Errorf("marking units sold for product %d: %w", productID, err)
		}

		marked, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}

		s.logger.Info("tagged units marked sold",
			zap.Uint("orderId", orderID),
			zap.Int("productId", productID),
			zap.Int("requested", qty),
			zap.Int64("marked", marked),
		)
	}

	return nil
}
