package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          uuid.UUID
	ConsumerID  uuid.UUID
	FarmID      uuid.UUID
	Status      OrderStatus
	TotalAmount Money
	Items       []OrderItem
	Delivery    DeliveryInfo

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// Price is snapshotted from the product at order time and does not
	// follow later product price changes.
	Price Money
}

type DeliveryInfo struct {
	Name    string
	Phone   string
	Address string
	City    string
	Region  string
	Notes   string
}

// CartItem is a checkout request line before it is bound to a farm.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderStatusHistory rows are append-only; they are never updated or
// deleted and form the complete audit trail of an order.
type OrderStatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	OldStatus OrderStatus // empty on the creation entry
	NewStatus OrderStatus
	ChangedBy *uuid.UUID // nil when system-initiated
	Notes     string
	CreatedAt time.Time
}

// ItemsTotal sums price*quantity over the order's items.
func (o Order) ItemsTotal() Money {
	total := Money{Amount: decimal.Zero, Currency: o.TotalAmount.Currency}
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(item.Quantity))
	}
	return total
}

// Quantity sums item quantities, the unit the daily farm capacity is
// counted in.
func (o Order) Quantity() int {
	var n int
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
