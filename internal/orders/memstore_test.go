package orders_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/port"
)

// memStore is an in-memory stand-in for the Postgres repositories. The
// single mutex plays the role of the farm row lock: Transact holds it
// for the whole callback, so admissions serialize the same way they do
// against the real database.
type memStore struct {
	mu sync.Mutex

	farms    map[uuid.UUID]domain.Farm
	products map[uuid.UUID]domain.Product
	orders   map[uuid.UUID]domain.Order
	history  map[uuid.UUID][]domain.OrderStatusHistory

	now time.Time
}

func newMemStore() *memStore {
	return &memStore{
		farms:    make(map[uuid.UUID]domain.Farm),
		products: make(map[uuid.UUID]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
		history:  make(map[uuid.UUID][]domain.OrderStatusHistory),
		now:      time.Now(),
	}
}

func (s *memStore) addFarm(f domain.Farm) domain.Farm {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	s.farms[f.ID] = f
	return f
}

func (s *memStore) addProduct(p domain.Product) domain.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *memStore) InsertOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	if len(order.Items) == 0 {
		return domain.Order{}, &domain.ValidationError{Field: "items", Message: "order has no items"}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = s.now
	order.UpdatedAt = s.now
	s.orders[order.ID] = order
	return order, nil
}

func (s *memStore) GetOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order: %w", domain.ErrNotFound)
	}
	return order, nil
}

func (s *memStore) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.GetOrder(ctx, orderID)
}

func (s *memStore) SearchOrders(_ context.Context, filter port.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if filter.ConsumerID != nil && o.ConsumerID != *filter.ConsumerID {
			continue
		}
		if len(filter.FarmIDs) > 0 && !containsUUID(filter.FarmIDs, o.FarmID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	order, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	s.orders[orderID] = order
	return nil
}

func (s *memStore) InsertStatusHistory(_ context.Context, entry domain.OrderStatusHistory) (domain.OrderStatusHistory, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	s.history[entry.OrderID] = append(s.history[entry.OrderID], entry)
	return entry, nil
}

func (s *memStore) ListStatusHistory(_ context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	entries := s.history[orderID]
	// newest first
	out := make([]domain.OrderStatusHistory, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *memStore) ReservedQuantity(_ context.Context, farmID uuid.UUID, from, to time.Time) (int, error) {
	var total int
	for _, o := range s.orders {
		if o.FarmID != farmID || o.Status == domain.OrderStatusCancelled {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		total += o.Quantity()
	}
	return total, nil
}

func (s *memStore) InsertFarm(_ context.Context, farm domain.Farm) (domain.Farm, error) {
	return s.addFarm(farm), nil
}

func (s *memStore) GetFarm(_ context.Context, farmID uuid.UUID) (domain.Farm, error) {
	farm, ok := s.farms[farmID]
	if !ok {
		return domain.Farm{}, fmt.Errorf("get farm: %w", domain.ErrNotFound)
	}
	return farm, nil
}

func (s *memStore) LockFarm(ctx context.Context, farmID uuid.UUID) (domain.Farm, error) {
	return s.GetFarm(ctx, farmID)
}

func (s *memStore) ListFarms(_ context.Context, ownerID *uuid.UUID) ([]domain.Farm, error) {
	var out []domain.Farm
	for _, f := range s.farms {
		if ownerID != nil && f.OwnerID != *ownerID {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *memStore) UpdateFarm(_ context.Context, farm domain.Farm) (domain.Farm, error) {
	if _, ok := s.farms[farm.ID]; !ok {
		return domain.Farm{}, fmt.Errorf("update farm: %w", domain.ErrNotFound)
	}
	s.farms[farm.ID] = farm
	return farm, nil
}

func (s *memStore) DeleteFarm(_ context.Context, farmID uuid.UUID) error {
	if _, ok := s.farms[farmID]; !ok {
		return fmt.Errorf("delete farm: %w", domain.ErrNotFound)
	}
	delete(s.farms, farmID)
	return nil
}

func (s *memStore) InsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	return s.addProduct(product), nil
}

func (s *memStore) GetProduct(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("get product: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *memStore) GetProducts(_ context.Context, productIDs []uuid.UUID) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ListProducts(_ context.Context, farmID *uuid.UUID) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.products {
		if !p.IsAvailable {
			continue
		}
		if farmID != nil && p.FarmID != *farmID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) UpdateProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	if _, ok := s.products[product.ID]; !ok {
		return domain.Product{}, fmt.Errorf("update product: %w", domain.ErrNotFound)
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *memStore) SoftDeleteProduct(_ context.Context, productID uuid.UUID) error {
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("soft delete product: %w", domain.ErrNotFound)
	}
	p.IsAvailable = false
	s.products[productID] = p
	return nil
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsStatus(statuses []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
}

func (p *capturePublisher) Publish(topic string, _, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.values = append(p.values, value)
}

func (p *capturePublisher) published(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}
