package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dairydirect/api/internal/domain"
)

type UserRepository interface {
	InsertUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
}

type FarmRepository interface {
	InsertFarm(ctx context.Context, farm domain.Farm) (domain.Farm, error)
	GetFarm(ctx context.Context, farmID uuid.UUID) (domain.Farm, error)
	// LockFarm reads the farm with a row lock, serializing concurrent
	// admissions against the same farm. Must run inside Transact.
	LockFarm(ctx context.Context, farmID uuid.UUID) (domain.Farm, error)
	ListFarms(ctx context.Context, ownerID *uuid.UUID) ([]domain.Farm, error)
	UpdateFarm(ctx context.Context, farm domain.Farm) (domain.Farm, error)
	DeleteFarm(ctx context.Context, farmID uuid.UUID) error
}

type ProductRepository interface {
	InsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]domain.Product, error)
	ListProducts(ctx context.Context, farmID *uuid.UUID) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	// SoftDeleteProduct flips is_available off instead of removing the row,
	// keeping historical order items resolvable.
	SoftDeleteProduct(ctx context.Context, productID uuid.UUID) error
}

// OrderFilter has AND semantics across fields, OR semantics within each
// field slice.
type OrderFilter struct {
	ConsumerID *uuid.UUID
	FarmIDs    []uuid.UUID
	Statuses   []domain.OrderStatus
}

type OrderRepository interface {
	// Transact runs fn inside one transaction; repository calls made with
	// the ctx it passes to fn join that transaction.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error

	InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	// GetOrderForUpdate reads the order with a row lock so a concurrent
	// transition cannot validate against a stale status.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	SearchOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error
	InsertStatusHistory(ctx context.Context, entry domain.OrderStatusHistory) (domain.OrderStatusHistory, error)
	// ListStatusHistory returns the order's audit trail newest-first.
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error)

	// ReservedQuantity sums item quantities over the farm's non-cancelled
	// orders created within [from, to).
	ReservedQuantity(ctx context.Context, farmID uuid.UUID, from, to time.Time) (int, error)
}

type PaymentRepository interface {
	InsertPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (domain.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (domain.Payment, error)
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.Payment, error)
	SyncPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus, response []byte, paidAt *time.Time) error
}
