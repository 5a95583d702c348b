package dto

import "time"

type CreateOrderRequest struct {
	CustomerID  int               `json:"customerId"`
	ProfileType string            `json:"profileType"`
	Channel     string            `json:"channel"`
	Notes       *string           `json:"notes,omitempty"`
	Items       []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type UpdateOrderStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type OrderItemResponse struct {
	ProductID        int     `json:"productId"`
	ProductName      string  `json:"productName"`
	Quantity         int     `json:"quantity"`
	PriceAtPurchase  string  `json:"priceAtPurchase"`
	MarginAtPurchase *string `json:"marginAtPurchase,omitempty"`
	PriceTier        string  `json:"priceTier"`
}

type OrderResponse struct {
	TraceID         string              `json:"traceId"`
	OrderRef        string              `json:"orderRef"`
	CustomerID      int                 `json:"customerId"`
	Channel         string              `json:"channel"`
	Status          string              `json:"status"`
	TotalAmount     string              `json:"totalAmount"`
	Items           []OrderItemResponse `json:"items"`
	TransactionRefs []string            `json:"transactionRefs"`
	Notes           *string             `json:"notes,omitempty"`
	StockWarning    *string             `json:"stockWarning,omitempty"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type ExpirePendingResponse struct {
	TraceID string   `json:"traceId"`
	Expired []string `json:"expired"`
	Failed  []string `json:"failed"`
}
