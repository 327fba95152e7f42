package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID
	FarmID        uuid.UUID
	Name          string
	Description   string
	Price         Money
	StockQuantity int
	Unit          string
	ImageURL      string
	IsAvailable   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0 && p.IsAvailable
}
