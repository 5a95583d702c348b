package banking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID             uint
	TransactionRef string
	OrderRef       string
	Kind           string
	Amount         decimal.Decimal
	CreatedAt      time.Time
}

type MySQLTransactionRepository struct {
	db *sql.DB
}

func NewMySQLTransactionRepository(db *sql.DB) *MySQLTransactionRepository {
	return &MySQLTransactionRepository{db: db}
}

func (r *MySQLTransactionRepository) Insert(ctx context.Context, trx Transaction) (uint, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO Transactions (transactionRef, orderRef, kind, amount) VALUES (?, ?, ?, ?)`,
		trx.TransactionRef, trx.OrderRef, trx.Kind, trx.Amount.StringFixed(2),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLTransactionRepository) ListByOrderRef(ctx context.Context, orderRef string) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transactionRef, orderRef, kind, amount, createdAt
		FROM Transactions
		WHERE orderRef = ?
		ORDER BY createdAt`,
		orderRef,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var trx Transaction
		var amount string
		if err := rows.Scan(&trx.ID, &trx.TransactionRef, &trx.OrderRef, &trx.Kind, &amount, &trx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		trx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing transaction amount: %w", err)
		}
		transactions = append(transactions, trx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return transactions, nil
}
