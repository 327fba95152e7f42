package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:   {},
	PaymentStatusPaid:      {},
	PaymentStatusFailed:    {},
	PaymentStatusCancelled: {},
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}
	return "", &ValidationError{Field: "status", Message: "invalid payment status " + s}
}

func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

// Payment is one-to-one with an order and mirrors the gateway-side object.
type Payment struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	GatewayPaymentID string
	Status           PaymentStatus
	Method           string
	Amount           Money
	Description      string
	PaymentURL       string
	// GatewayResponse keeps the raw gateway payload for audit/debugging.
	GatewayResponse json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}
