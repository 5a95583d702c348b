package dto

import "time"

type ProductPricesDTO struct {
	Cost    *string `json:"cost,omitempty"`
	SaleA   *string `json:"saleA,omitempty"`
	SaleB   *string `json:"saleB,omitempty"`
	SaleC   *string `json:"saleC,omitempty"`
	ResaleA *string `json:"resaleA,omitempty"`
	ResaleB *string `json:"resaleB,omitempty"`
}

type ProductResponse struct {
	ID             int              `json:"id"`
	SKU            string           `json:"sku"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Prices         ProductPricesDTO `json:"prices"`
	StockQuantity  int              `json:"stockQuantity"`
	ReservedStock  int              `json:"reservedStock"`
	AvailableStock int              `json:"availableStock"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type UpdatePricesRequest struct {
	Prices ProductPricesDTO `json:"prices"`
	Reason string           `json:"reason"`
	UserID *int             `json:"userId,omitempty"`
}

type PriceHistoryEntryResponse struct {
	UserID    *int             `json:"userId,omitempty"`
	Reason    string           `json:"reason"`
	Prices    ProductPricesDTO `json:"prices"`
	CreatedAt time.Time        `json:"createdAt"`
}
