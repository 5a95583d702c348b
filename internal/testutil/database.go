package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration test database and skips the test when it
// is not reachable. Override the DSN with TEST_DB_DSN; the default expects a
// local MySQL with a 'radagast_test' schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/radagast_test?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table touched by the tests and closes the
// connection. Child tables go first so foreign keys do not block deletes.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	if db == nil {
		return
	}

	tables := []string{
		"OrderTransactions", "OrderItems", "StockItems", "Transactions",
		"Orders", "ProductPriceHistory", "Product", "Counters",
	}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
	if _, err := db.Exec(`INSERT INTO Counters (name, value) VALUES ('ORD', 0), ('TRX', 0)`); err != nil {
		t.Logf("failed to reseed counters: %v", err)
	}

	db.Close()
}

// SetupTestTables creates the schema used by the integration tests. The DDL
// mirrors the embedded migrations.
func SetupTestTables(t *testing.T, db *sql.DB) {
	t.Helper()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS Product (
			id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			sku VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			cost DECIMAL(12,2),
			saleA DECIMAL(12,2),
			saleB DECIMAL(12,2),
			saleC DECIMAL(12,2),
			resaleA DECIMAL(12,2),
			resaleB DECIMAL(12,2),
			stockQuantity INT NOT NULL DEFAULT 0,
			reservedStock INT NOT NULL DEFAULT 0,
			isActive TINYINT(1) NOT NULL DEFAULT 1,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_active (isActive),
			CONSTRAINT chk_stock_nonnegative CHECK (stockQuantity >= 0 AND reservedStock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS ProductPriceHistory (
			id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			productId INT NOT NULL,
			userId INT,
			reason VARCHAR(255) NOT NULL,
			cost DECIMAL(12,2),
			saleA DECIMAL(12,2),
			saleB DECIMAL(12,2),
			saleC DECIMAL(12,2),
			resaleA DECIMAL(12,2),
			resaleB DECIMAL(12,2),
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (productId) REFERENCES Product(id) ON DELETE CASCADE,
			INDEX idx_product_created (productId, createdAt)
		)`,
		`CREATE TABLE IF NOT EXISTS Orders (
			id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			orderRef VARCHAR(32) NOT NULL UNIQUE,
			customerId INT NOT NULL,
			channel VARCHAR(32) NOT NULL DEFAULT 'ui',
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			totalAmount DECIMAL(12,2) NOT NULL DEFAULT 0.00,
			notes VARCHAR(500),
			deliveredAt DATETIME,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_customer (customerId),
			INDEX idx_status_created (status, createdAt)
		)`,
		`CREATE TABLE IF NOT EXISTS OrderItems (
			id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			orderId INT UNSIGNED NOT NULL,
			productId INT NOT NULL,
			productName VARCHAR(255) NOT NULL,
			quantity INT NOT NULL DEFAULT 1,
			priceAtPurchase DECIMAL(12,2) NOT NULL,
			marginAtPurchase DECIMAL(12,2),
			priceTier VARCHAR(32) NOT NULL DEFAULT 'sale_a',
			FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
			INDEX idx_order (orderId),
			INDEX idx_product (productId)
		)`,
		`CREATE TABLE IF NOT EXISTS OrderTransactions (
			orderId INT UNSIGNED NOT NULL,
			transactionRef VARCHAR(32) NOT NULL,
			PRIMARY KEY (orderId, transactionRef),
			FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS Transactions (
			id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			transactionRef VARCHAR(32) NOT NULL UNIQUE,
			orderRef VARCHAR(32) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			amount DECIMAL(12,2) NOT NULL,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_order_ref (orderRef)
		)`,
		`CREATE TABLE IF NOT EXISTS StockItems (
			id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			rfidTag VARCHAR(64) NOT NULL UNIQUE,
			productId INT NOT NULL,
			orderId INT UNSIGNED,
			status VARCHAR(16) NOT NULL DEFAULT 'AVAILABLE',
			soldAt DATETIME,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (productId) REFERENCES Product(id),
			INDEX idx_product_status (productId, status)
		)`,
		`CREATE TABLE IF NOT EXISTS Counters (
			name VARCHAR(16) NOT NULL PRIMARY KEY,
			value BIGINT NOT NULL DEFAULT 0
		)`,
		`INSERT INTO Counters (name, value) VALUES ('ORD', 0), ('TRX', 0)
		ON DUPLICATE KEY UPDATE name = name`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to create test tables: %v", err)
		}
	}
}
