package domain

import (
	"time"

	"github.com/google/uuid"
)

type Farm struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description string
	Location    string
	Region      string
	Governorate string
	Type        string
	PricePerKg  string
	PhoneNumber string
	ImageURL    string

	// DailyCapacity caps the total item quantity the farm accepts per
	// calendar day across all non-cancelled orders. Zero means unlimited.
	DailyCapacity int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f Farm) CapacityLimited() bool {
	return f.DailyCapacity > 0
}
