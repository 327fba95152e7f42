package httpx

import (
	"time"

	"github.com/samber/lo"

	"github.com/dairydirect/api/internal/domain"
)

// JSON views. Money travels as a decimal string plus its currency code.

type userView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	IsFarmer    bool      `json:"is_farmer"`
	IsConsumer  bool      `json:"is_consumer"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserView(u domain.User) userView {
	return userView{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		IsFarmer:    u.IsFarmer,
		IsConsumer:  u.IsConsumer,
		CreatedAt:   u.CreatedAt,
	}
}

type farmView struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location,omitempty"`
	Region        string    `json:"region,omitempty"`
	Governorate   string    `json:"governorate,omitempty"`
	Type          string    `json:"type,omitempty"`
	PricePerKg    string    `json:"price_per_kg,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	DailyCapacity int       `json:"daily_capacity"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFarmView(f domain.Farm) farmView {
	return farmView{
		ID:            f.ID.String(),
		OwnerID:       f.OwnerID.String(),
		Name:          f.Name,
		Description:   f.Description,
		Location:      f.Location,
		Region:        f.Region,
		Governorate:   f.Governorate,
		Type:          f.Type,
		PricePerKg:    f.PricePerKg,
		PhoneNumber:   f.PhoneNumber,
		ImageURL:      f.ImageURL,
		DailyCapacity: f.DailyCapacity,
		CreatedAt:     f.CreatedAt,
	}
}

type productView struct {
	ID            string    `json:"id"`
	FarmID        string    `json:"farm_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	StockQuantity int       `json:"stock_quantity"`
	Unit          string    `json:"unit,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
}

func toProductView(p domain.Product) productView {
	return productView{
		ID:            p.ID.String(),
		FarmID:        p.FarmID.String(),
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.Amount.String(),
		Currency:      p.Price.Currency.String(),
		StockQuantity: p.StockQuantity,
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		IsAvailable:   p.IsAvailable,
		CreatedAt:     p.CreatedAt,
	}
}

type orderItemView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type orderView struct {
	ID          string          `json:"id"`
	ConsumerID  string          `json:"consumer_id"`
	FarmID      string          `json:"farm_id"`
	Status      string          `json:"status"`
	TotalAmount string          `json:"total_amount"`
	Currency    string          `json:"currency"`
	Items       []orderItemView `json:"items"`
	Delivery    deliveryView    `json:"delivery"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type deliveryView struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func toOrderView(o domain.Order) orderView {
	return orderView{
		ID:          o.ID.String(),
		ConsumerID:  o.ConsumerID.String(),
		FarmID:      o.FarmID.String(),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.Amount.String(),
		Currency:    o.TotalAmount.Currency.String(),
		Items: lo.Map(o.Items, func(it domain.OrderItem, _ int) orderItemView {
			return orderItemView{
				ID:        it.ID.String(),
				ProductID: it.ProductID.String(),
				Quantity:  it.Quantity,
				Price:     it.Price.Amount.String(),
			}
		}),
		Delivery: deliveryView{
			Name:    o.Delivery.Name,
			Phone:   o.Delivery.Phone,
			Address: o.Delivery.Address,
			City:    o.Delivery.City,
			Region:  o.Delivery.Region,
			Notes:   o.Delivery.Notes,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type historyView struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	ChangedBy *string   `json:"changed_by"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toHistoryView(h domain.OrderStatusHistory) historyView {
	var changedBy *string
	if h.ChangedBy != nil {
		changedBy = lo.ToPtr(h.ChangedBy.String())
	}
	return historyView{
		ID:        h.ID.String(),
		OrderID:   h.OrderID.String(),
		OldStatus: string(h.OldStatus),
		NewStatus: string(h.NewStatus),
		ChangedBy: changedBy,
		Notes:     h.Notes,
		CreatedAt: h.CreatedAt,
	}
}

type paymentView struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	Method      string     `json:"method"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	PaymentURL  string     `json:"payment_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at"`
}

func toPaymentView(p domain.Payment) paymentView {
	return paymentView{
		ID:          p.ID.String(),
		OrderID:     p.OrderID.String(),
		Status:      string(p.Status),
		Method:      p.Method,
		Amount:      p.Amount.Amount.String(),
		Currency:    p.Amount.Currency.String(),
		Description: p.Description,
		PaymentURL:  p.PaymentURL,
		CreatedAt:   p.CreatedAt,
		PaidAt:      p.PaidAt,
	}
}
