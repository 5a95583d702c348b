package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusAwaitingShipment OrderStatus = "awaiting_shipment"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusFailed           OrderStatus = "failed"
	OrderStatusReturned         OrderStatus = "returned"
)

// validTransitions is the single source of truth for the order state
// machine. A (from, to) pair absent from this table is rejected before any
// side effect runs.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusConfirmed, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusConfirmed:        {OrderStatusProcessing, OrderStatusAwaitingShipment, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusProcessing:       {OrderStatusAwaitingShipment, OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusAwaitingShipment: {OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusShipped:          {OrderStatusDelivered, OrderStatusReturned, OrderStatusFailed},
	OrderStatusDelivered:        {OrderStatusReturned},
	OrderStatusCancelled:        {},
	OrderStatusFailed:           {},
	OrderStatusReturned:         {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReleasesReservation reports whether the transition returns the order's
// reserved stock to the available pool.
func ReleasesReservation(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	return to == OrderStatusCancelled || to == OrderStatusFailed || to == OrderStatusReturned
}

// ConfirmsReservation reports whether the transition converts the order's
// reservation into a physical stock decrement. Only leaving pending into a
// payment-equivalent state confirms; later hops along the happy path must
// not touch the ledger again.
func ConfirmsReservation(from, to OrderStatus) bool {
	if from != OrderStatusPending {
		return false
	}
	return to == OrderStatusConfirmed || to == OrderStatusProcessing
}

// MarksItemsSold reports whether the transition should mark the order's
// physical tagged units as sold.
func MarksItemsSold(to OrderStatus) bool {
	return to == OrderStatusDelivered
}

type OrderItem struct {
	ID               uint
	OrderID          uint
	ProductID        int
	ProductName      string
	Quantity         int
	PriceAtPurchase  decimal.Decimal
	MarginAtPurchase *decimal.Decimal
	PriceTier        string
}

func (i OrderItem) Total() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is created once by order creation and owned by the lifecycle
// afterwards: only Status, Notes, DeliveredAt and TransactionRefs change
// after the initial persist.
type Order struct {
	ID              uint
	OrderRef        string
	CustomerID      int
	Channel         string
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	TransactionRefs []string
	Notes           *string
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReservationItems is the reservation manifest for this order. There is no
// separate reservation record; the order's own item list, keyed by
// OrderRef, is what gets reserved, confirmed and released.
func (o *Order) ReservationItems() []ReservationItem {
	items := make([]ReservationItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items
}

type ReservationItem struct {
	ProductID int
	Quantity  int
}
