package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductPrices is the tagged record of a product's price tiers. Absent
// tiers are nil. All values are exact decimals; float64 never carries money.
type ProductPrices struct {
	Cost    *decimal.Decimal
	SaleA   *decimal.Decimal
	SaleB   *decimal.Decimal
	SaleC   *decimal.Decimal
	ResaleA *decimal.Decimal
	ResaleB *decimal.Decimal
}

func (p ProductPrices) Tier(name string) *decimal.Decimal {
	switch name {
	case "sale_a":
		return p.SaleA
	case "sale_b":
		return p.SaleB
	case "sale_c":
		return p.SaleC
	case "resale_a":
		return p.ResaleA
	case "resale_b":
		return p.ResaleB
	case "cost":
		return p.Cost
	}
	return nil
}

// PriceHistoryEntry records who changed a product's prices, when and why.
// History is append-only, newest first.
type PriceHistoryEntry struct {
	ID        uint
	ProductID int
	UserID    *int
	Reason    string
	Prices    ProductPrices
	CreatedAt time.Time
}

type Product struct {
	ID            int
	SKU           string
	Name          string
	Description   string
	Prices        ProductPrices
	StockQuantity int
	ReservedStock int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvailableStock is the sellable remainder: physical units minus the units
// provisionally held by reservations. It is derived, never persisted, and
// advisory only; the ledger's conditional update is the sole authority.
func (p Product) AvailableStock() int {
	available := p.StockQuantity - p.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}
