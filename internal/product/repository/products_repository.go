package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"radagast/internal/domain"
	"radagast/internal/errors"
)

type MySQLProductRepository struct {
	db *sql.DB
}

func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

const productColumns = `id, sku, name, COALESCE(description, ''),
		       cost, saleA, saleB, saleC, resaleA, resaleB,
		       stockQuantity, reservedStock, isActive,
		       createdAt, updatedAt`

func (r *MySQLProductRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT %s FROM Product WHERE id IN (%s)`,
		productColumns, strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func (r *MySQLProductRepository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM Product WHERE id = ?`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	if err != nil {
		return nil, err
	}

	return product, nil
}

// UpdatePrices replaces the product's price tiers and appends a history
// entry recording who changed them and why, in one transaction. History is
// pruned to the most recent 50 entries per product.
func (r *MySQLProductRepository) UpdatePrices(ctx context.Context, productID int, prices domain.ProductPrices, userID *int, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE Product
		SET cost = ?, saleA = ?, saleB = ?, saleC = ?, resaleA = ?, resaleB = ?
		WHERE id = ?`,
		decimalArg(prices.Cost), decimalArg(prices.SaleA), decimalArg(prices.SaleB),
		decimalArg(prices.SaleC), decimalArg(prices.ResaleA), decimalArg(prices.ResaleB),
		productID,
	)
	if err != nil {
		return fmt.Errorf("updating product prices: %w", err)
	}

	matched, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if matched == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", productID))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ProductPriceHistory (productId, userId, reason, cost, saleA, saleB, saleC, resaleA, resaleB)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		productID, userID, reason,
		decimalArg(prices.Cost), decimalArg(prices.SaleA), decimalArg(prices.SaleB),
		decimalArg(prices.SaleC), decimalArg(prices.ResaleA), decimalArg(prices.ResaleB),
	)
	if err != nil {
		return fmt.Errorf("inserting price history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM ProductPriceHistory
		WHERE productId = ?
		  AND id NOT IN (
			SELECT id FROM (
				SELECT id FROM ProductPriceHistory WHERE productId = ? ORDER BY id DESC LIMIT 50
			) AS recent
		  )`,
		productID, productID,
	)
	if err != nil {
		return fmt.Errorf("pruning price history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing price update: %w", err)
	}

	return nil
}

func (r *MySQLProductRepository) ListPriceHistory(ctx context.Context, productID int) ([]domain.PriceHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, productId, userId, reason, cost, saleA, saleB, saleC, resaleA, resaleB, createdAt
		FROM ProductPriceHistory
		WHERE productId = ?
		ORDER BY id DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying price history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PriceHistoryEntry
	for rows.Next() {
		var entry domain.PriceHistoryEntry
		var cost, saleA, saleB, saleC, resaleA, resaleB sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.ProductID, &entry.UserID, &entry.Reason,
			&cost, &saleA, &saleB, &saleC, &resaleA, &resaleB, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning price history row: %w", err)
		}

		if entry.Prices, err = pricesFromNullStrings(cost, saleA, saleB, saleC, resaleA, resaleB); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating price history rows: %w", err)
	}

	return entries, nil
}

func scanProduct(scan func(dest ...interface{}) error) (*domain.Product, error) {
	var p domain.Product
	var cost, saleA, saleB, saleC, resaleA, resaleB sql.NullString

	err := scan(
		&p.ID, &p.SKU, &p.Name, &p.Description,
		&cost, &saleA, &saleB, &saleC, &resaleA, &resaleB,
		&p.StockQuantity, &p.ReservedStock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product row: %w", err)
	}

	if p.Prices, err = pricesFromNullStrings(cost, saleA, saleB, saleC, resaleA, resaleB); err != nil {
		return nil, err
	}

	return &p, nil
}

func pricesFromNullStrings(cost, saleA, saleB, saleC, resaleA, resaleB sql.NullString) (domain.ProductPrices, error) {
	var prices domain.ProductPrices
	for _, field := range []struct {
		src sql.NullString
		dst **decimal.Decimal
	}{
		{cost, &prices.Cost},
		{saleA, &prices.SaleA},
		{saleB, &prices.SaleB},
		{saleC, &prices.SaleC},
		{resaleA, &prices.ResaleA},
		{resaleB, &prices.ResaleB},
	} {
		if !field.src.Valid {
			continue
		}
		d, err := decimal.NewFromString(field.src.String)
		if err != nil {
			return domain.ProductPrices{}, fmt.Errorf("parsing price value: %w", err)
		}
		*field.dst = &d
	}
	return prices, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}
