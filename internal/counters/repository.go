package counters

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQLCounterRepository hands out unique, monotonically increasing
// references such as ORD-000123. The counter row is advanced with
// LAST_INSERT_ID so read-and-increment is a single atomic statement.
type MySQLCounterRepository struct {
	db *sql.DB
}

func NewMySQLCounterRepository(db *sql.DB) *MySQLCounterRepository {
	return &MySQLCounterRepository{db: db}
}

// Next returns the next reference for the prefix. Counter rows for known
// prefixes are seeded by migration; unseen prefixes start at 1.
func (r *MySQLCounterRepository) Next(ctx context.Context, prefix string) (string, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO Counters (name, value) VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`,
		prefix,
	)
	if err != nil {
		return "", fmt.Errorf("advancing counter %s: %w", prefix, err)
	}

	value, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading counter %s: %w", prefix, err)
	}

	return fmt.Sprintf("%s-%06d", prefix, value), nil
}
