package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Guard is the set of minimum-remaining conditions that must hold at the
// moment an adjustment is applied. Conditions are checked atomically with
// the mutation: they become part of the UPDATE's WHERE clause, so the
// storage engine evaluates and applies them as one indivisible step.
type Guard struct {
	MinPhysical  *int // stockQuantity >= *MinPhysical
	MinReserved  *int // reservedStock >= *MinReserved
	MinAvailable *int // stockQuantity - reservedStock >= *MinAvailable
}

// MySQLStockRepository is the stock ledger. Every mutation of
// stockQuantity/reservedStock in the system goes through Adjust; no other
// code path writes those columns.
type MySQLStockRepository struct {
	db *sql.DB
}

func NewMySQLStockRepository(db *sql.DB) *MySQLStockRepository {
	return &MySQLStockRepository{db: db}
}

// Adjust applies the deltas iff the guard holds, as a single conditional
// UPDATE. It returns (false, nil) when the guard was not met, an expected
// outcome, distinct from infrastructure errors. This is the only
// serialization point in the stock model: concurrent attempts against the
// same product either apply fully or not at all, never partially and never
// blocking each other beyond the row write itself.
func (r *MySQLStockRepository) Adjust(ctx context.Context, productID int, deltaPhysical, deltaReserved int, guard Guard) (bool, error) {
	conditions := []string{"id = ?"}
	args := []interface{}{deltaPhysical, deltaReserved, productID}

	if guard.MinPhysical != nil {
		conditions = append(conditions, "stockQuantity >= ?")
		args = append(args, *guard.MinPhysical)
	}
	if guard.MinReserved != nil {
		conditions = append(conditions, "reservedStock >= ?")
		args = append(args, *guard.MinReserved)
	}
	if guard.MinAvailable != nil {
		conditions = append(conditions, "stockQuantity - reservedStock >= ?")
		args = append(args, *guard.MinAvailable)
	}

	query := fmt.Sprintf(
		`UPDATE Product SET stockQuantity = stockQuantity + ?, reservedStock = reservedStock + ? WHERE %s`,
		strings.Join(conditions, " AND "),
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("adjusting stock for product %d: %w", productID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Reserve holds qty units: reservedStock += qty, guarded by sufficient
// available stock.
func (r *MySQLStockRepository) Reserve(ctx context.Context, productID, qty int) (bool, error) {
	return r.Adjust(ctx, productID, 0, qty, Guard{MinAvailable: &qty})
}

// Release returns qty reserved units to the available pool, guarded by a
// sufficient reservation.
func (r *MySQLStockRepository) Release(ctx context.Context, productID, qty int) (bool, error) {
	return r.Adjust(ctx, productID, 0, -qty, Guard{MinReserved: &qty})
}

// ConfirmSale converts qty reserved units into a physical decrement.
// Available stock is unchanged: the units were already excluded from it.
func (r *MySQLStockRepository) ConfirmSale(ctx context.Context, productID, qty int) (bool, error) {
	return r.Adjust(ctx, productID, -qty, -qty, Guard{MinPhysical: &qty, MinReserved: &qty})
}

// Restock adds qty inbound physical units. No guard beyond qty > 0, which
// callers validate.
func (r *MySQLStockRepository) Restock(ctx context.Context, productID, qty int) (bool, error) {
	return r.Adjust(ctx, productID, qty, 0, Guard{})
}
