package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentUpdated     = "PaymentUpdated"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicPaymentUpdated     = "payment.updated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string     `json:"order_id"`
	ConsumerID  string     `json:"consumer_id"`
	FarmID      string     `json:"farm_id"`
	Items       []ItemLine `json:"items"`
	TotalAmount string     `json:"total_amount"`
	Currency    string     `json:"currency"`
}

type OrderStatusChangedPayload struct {
	OrderID    string  `json:"order_id"`
	ConsumerID string  `json:"consumer_id"`
	OldStatus  string  `json:"old_status"`
	NewStatus  string  `json:"new_status"`
	ChangedBy  *string `json:"changed_by,omitempty"` // nil when system-initiated
	Notes      string  `json:"notes,omitempty"`
}

type PaymentUpdatedPayload struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
}

// PartitionKey keys events by order id so all events of one order keep
// their relative order on the topic.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
