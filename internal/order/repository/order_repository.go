package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"radagast/internal/domain"
	"radagast/internal/errors"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// Insert persists the order and its items in one transaction. The order row
// and its lines either all exist or none do; stock compensation on failure
// is the caller's concern.
func (r *MySQLOrderRepository) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO Orders (orderRef, customerId, channel, status, totalAmount, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderRef, order.CustomerID, order.Channel, string(order.Status),
		order.TotalAmount.StringFixed(2), order.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}
	order.ID = uint(orderID)

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		var margin interface{}
		if item.MarginAtPurchase != nil {
			margin = item.MarginAtPurchase.StringFixed(2)
		}

		itemResult, err := tx.ExecContext(ctx, `
			INSERT INTO OrderItems (orderId, productId, productName, quantity, priceAtPurchase, marginAtPurchase, priceTier)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, item.ProductID, item.ProductName, item.Quantity,
			item.PriceAtPurchase.StringFixed(2), margin, item.PriceTier,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting order item: %w", err)
		}

		itemID, err := itemResult.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting order item insert id: %w", err)
		}
		item.ID = uint(itemID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order insert: %w", err)
	}

	return r.FindByRef(ctx, order.OrderRef)
}

func (r *MySQLOrderRepository) FindByRef(ctx context.Context, orderRef string) (*domain.Order, error) {
	query := `
		SELECT id, orderRef, customerId, channel, status, totalAmount, notes, deliveredAt, createdAt, updatedAt
		FROM Orders
		WHERE orderRef = ?
	`

	var order domain.Order
	var totalAmount string
	err := r.db.QueryRowContext(ctx, query, orderRef).Scan(
		&order.ID, &order.OrderRef, &order.CustomerID, &order.Channel, &order.Status,
		&totalAmount, &order.Notes, &order.DeliveredAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", orderRef))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by ref: %w", err)
	}

	order.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parsing order total: %w", err)
	}

	if order.Items, err = r.findItems(ctx, order.ID); err != nil {
		return nil, err
	}
	if order.TransactionRefs, err = r.findTransactionRefs(ctx, order.ID); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *MySQLOrderRepository) findItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, orderId, productId, productName, quantity, priceAtPurchase, marginAtPurchase, priceTier
		FROM OrderItems
		WHERE orderId = ?
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var price string
		var margin sql.NullString
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &price, &margin, &item.PriceTier,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}

		if item.PriceAtPurchase, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing item price: %w", err)
		}
		if margin.Valid {
			m, err := decimal.NewFromString(margin.String)
			if err != nil {
				return nil, fmt.Errorf("parsing item margin: %w", err)
			}
			item.MarginAtPurchase = &m
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order item rows: %w", err)
	}

	return items, nil
}

func (r *MySQLOrderRepository) findTransactionRefs(ctx context.Context, orderID uint) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT transactionRef FROM OrderTransactions WHERE orderId = ? ORDER BY transactionRef`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying order transactions: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scanning transaction ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction refs: %w", err)
	}

	return refs, nil
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id uint, status domain.OrderStatus, notes *string, deliveredAt *time.Time) error {
	query := `
		UPDATE Orders
		SET status = ?,
		    notes = COALESCE(?, notes),
		    deliveredAt = COALESCE(?, deliveredAt)
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, string(status), notes, deliveredAt, id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

func (r *MySQLOrderRepository) AppendTransaction(ctx context.Context, id uint, transactionRef string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO OrderTransactions (orderId, transactionRef) VALUES (?, ?)`,
		id, transactionRef,
	)
	if err != nil {
		return fmt.Errorf("appending order transaction: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT orderRef
		FROM Orders
		WHERE status = ? AND createdAt < ?
		ORDER BY createdAt
		LIMIT ?`,
		string(domain.OrderStatusPending), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending orders: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scanning order ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending order rows: %w", err)
	}

	return refs, nil
}
