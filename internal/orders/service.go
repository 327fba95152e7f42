package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/dairydirect/api/internal/domain"
	kafkax "github.com/dairydirect/api/internal/kafka"
	"github.com/dairydirect/api/internal/port"
)

// EventPublisher is the slice of the Kafka producer the engine needs.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Service is the order admission and status-transition engine. Admission
// runs inside a farm-locked transaction so two concurrent checkouts
// cannot jointly exceed a farm's daily capacity; transitions lock the
// order row so the status they validate against cannot go stale.
type Service struct {
	orders   port.OrderRepository
	farms    port.FarmRepository
	products port.ProductRepository
	producer EventPublisher
	loc      *time.Location
	service  string
	now      func() time.Time
}

func NewService(
	orders port.OrderRepository,
	farms port.FarmRepository,
	products port.ProductRepository,
	producer EventPublisher,
	loc *time.Location,
	serviceName string,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		orders:   orders,
		farms:    farms,
		products: products,
		producer: producer,
		loc:      loc,
		service:  serviceName,
		now:      time.Now,
	}
}

type SubmitInput struct {
	Items    []domain.CartItem
	Delivery domain.DeliveryInfo
}

// SubmitResult carries everything a multi-farm checkout produced: the
// orders that were admitted and the per-farm rejections. Groups are
// evaluated independently, so a cart spanning farms can succeed
// partially.
type SubmitResult struct {
	Orders   []domain.Order
	Rejected []*domain.AdmissionError
}

type farmGroup struct {
	farmID uuid.UUID
	items  []domain.OrderItem
}

// SubmitOrder partitions the cart by the owning farm of each product and
// creates one order per farm group. Each group commits or rolls back as a
// whole; a capacity rejection aborts only its own group.
func (s *Service) SubmitOrder(ctx context.Context, actor domain.User, in SubmitInput) (SubmitResult, error) {
	var res SubmitResult

	if len(in.Items) == 0 {
		return res, &domain.ValidationError{Field: "items", Message: "cart is empty"}
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return res, &domain.ValidationError{Field: "items", Message: "quantity must be at least 1"}
		}
	}

	groups, err := s.groupByFarm(ctx, in.Items)
	if err != nil {
		return res, err
	}

	for _, group := range groups {
		order, err := s.admitGroup(ctx, actor, group, in.Delivery)
		if err != nil {
			var admission *domain.AdmissionError
			if errors.As(err, &admission) {
				res.Rejected = append(res.Rejected, admission)
				continue
			}
			return res, err
		}
		res.Orders = append(res.Orders, order)

		s.publish(TopicOrderCreated, EventOrderCreated, order.ID.String(), OrderCreatedPayload{
			OrderID:    order.ID.String(),
			ConsumerID: order.ConsumerID.String(),
			FarmID:     order.FarmID.String(),
			Items: lo.Map(order.Items, func(it domain.OrderItem, _ int) ItemLine {
				return ItemLine{ProductID: it.ProductID.String(), Quantity: it.Quantity, Price: it.Price.Amount.String()}
			}),
			TotalAmount: order.TotalAmount.Amount.String(),
			Currency:    order.TotalAmount.Currency.String(),
		})
	}

	return res, nil
}

// groupByFarm resolves cart items to products and buckets them per farm,
// snapshotting the current product price into each order item. Groups
// keep the first-seen farm order of the cart.
func (s *Service) groupByFarm(ctx context.Context, items []domain.CartItem) ([]farmGroup, error) {
	ids := lo.Uniq(lo.Map(items, func(it domain.CartItem, _ int) uuid.UUID { return it.ProductID }))

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("products.GetProducts: %w", err)
	}
	byID := lo.KeyBy(products, func(p domain.Product) uuid.UUID { return p.ID })

	var (
		farmOrder []uuid.UUID
		grouped   = make(map[uuid.UUID]*farmGroup)
	)
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, domain.ErrNotFound)
		}
		if !product.IsAvailable {
			return nil, &domain.ValidationError{Field: "items", Message: fmt.Sprintf("product %s is not available", product.ID)}
		}

		group, ok := grouped[product.FarmID]
		if !ok {
			group = &farmGroup{farmID: product.FarmID}
			grouped[product.FarmID] = group
			farmOrder = append(farmOrder, product.FarmID)
		}
		group.items = append(group.items, domain.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	groups := make([]farmGroup, 0, len(farmOrder))
	for _, farmID := range farmOrder {
		groups = append(groups, *grouped[farmID])
	}
	return groups, nil
}

// admitGroup runs the capacity check and the order creation in one
// transaction, holding a row lock on the farm for its duration. The lock
// serializes same-farm admissions so the read-sum-then-insert sequence
// cannot race.
func (s *Service) admitGroup(ctx context.Context, actor domain.User, group farmGroup, delivery domain.DeliveryInfo) (domain.Order, error) {
	var created domain.Order

	requested := 0
	for _, item := range group.items {
		requested += item.Quantity
	}

	err := s.orders.Transact(ctx, func(ctx context.Context) error {
		farm, err := s.farms.LockFarm(ctx, group.farmID)
		if err != nil {
			return fmt.Errorf("farms.LockFarm: %w", err)
		}

		// DailyCapacity == 0 means the farm opted out of the limit.
		if farm.CapacityLimited() {
			from, to := s.dayBounds(s.now())
			reserved, err := s.orders.ReservedQuantity(ctx, farm.ID, from, to)
			if err != nil {
				return fmt.Errorf("orders.ReservedQuantity: %w", err)
			}
			if reserved+requested > farm.DailyCapacity {
				return &domain.AdmissionError{
					FarmID:    farm.ID,
					FarmName:  farm.Name,
					Capacity:  farm.DailyCapacity,
					Reserved:  reserved,
					Requested: requested,
				}
			}
		}

		total := domain.Money{Amount: decimal.Zero, Currency: group.items[0].Price.Currency}
		for _, item := range group.items {
			total = total.Add(item.Price.Mul(item.Quantity))
		}

		created, err = s.orders.InsertOrder(ctx, domain.Order{
			ConsumerID:  actor.ID,
			FarmID:      farm.ID,
			Status:      domain.OrderStatusPending,
			TotalAmount: total,
			Items:       group.items,
			Delivery:    delivery,
		})
		if err != nil {
			return fmt.Errorf("orders.InsertOrder: %w", err)
		}

		// Creation entry: the audit trail starts at pending.
		actorID := actor.ID
		if _, err := s.orders.InsertStatusHistory(ctx, domain.OrderStatusHistory{
			OrderID:   created.ID,
			NewStatus: domain.OrderStatusPending,
			ChangedBy: &actorID,
			Notes:     "order created",
		}); err != nil {
			return fmt.Errorf("orders.InsertStatusHistory: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return created, nil
}

// Transition moves an order to newStatus if the move is one forward step
// (or a permitted cancellation) and the actor is allowed to request it.
// A nil actor is the system (payment-driven) path: it bypasses the
// per-actor permission check but not the forward-only rule, and is
// recorded with a null changed_by. Status update and history append
// commit atomically.
func (s *Service) Transition(ctx context.Context, actor *domain.User, orderID uuid.UUID, newStatus domain.OrderStatus, notes string) (domain.Order, error) {
	var updated domain.Order

	if _, err := domain.ToOrderStatus(string(newStatus)); err != nil {
		return updated, err
	}

	var oldStatus domain.OrderStatus

	err := s.orders.Transact(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrderForUpdate: %w", err)
		}
		oldStatus = order.Status

		// Permission first: an actor who may not touch the order learns
		// nothing about its current status from the error.
		if err := s.authorizeTransition(ctx, actor, order, newStatus); err != nil {
			return err
		}

		if !domain.CanTransition(order.Status, newStatus) {
			return &domain.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("cannot transition from %s to %s", order.Status, newStatus),
			}
		}

		if err := s.orders.UpdateOrderStatus(ctx, order.ID, newStatus); err != nil {
			return fmt.Errorf("orders.UpdateOrderStatus: %w", err)
		}

		var changedBy *uuid.UUID
		if actor != nil {
			changedBy = &actor.ID
		}
		if _, err := s.orders.InsertStatusHistory(ctx, domain.OrderStatusHistory{
			OrderID:   order.ID,
			OldStatus: order.Status,
			NewStatus: newStatus,
			ChangedBy: changedBy,
			Notes:     notes,
		}); err != nil {
			return fmt.Errorf("orders.InsertStatusHistory: %w", err)
		}

		order.Status = newStatus
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	var changedBy *string
	if actor != nil {
		changedBy = lo.ToPtr(actor.ID.String())
	}
	s.publish(TopicOrderStatusChanged, EventOrderStatusChanged, updated.ID.String(), OrderStatusChangedPayload{
		OrderID:    updated.ID.String(),
		ConsumerID: updated.ConsumerID.String(),
		OldStatus:  string(oldStatus),
		NewStatus:  string(newStatus),
		ChangedBy:  changedBy,
		Notes:      notes,
	})

	return updated, nil
}

// authorizeTransition implements the per-actor rules: farm owners and
// admins drive the order forward (and may cancel it); the consumer who
// placed the order may cancel it only while it is still pending.
func (s *Service) authorizeTransition(ctx context.Context, actor *domain.User, order domain.Order, newStatus domain.OrderStatus) error {
	if actor == nil || actor.Has(domain.CapAdmin) {
		return nil
	}

	if actor.Has(domain.CapFarmer) {
		farm, err := s.farms.GetFarm(ctx, order.FarmID)
		if err != nil {
			return fmt.Errorf("farms.GetFarm: %w", err)
		}
		if farm.OwnerID == actor.ID {
			return nil
		}
	}

	if order.ConsumerID == actor.ID {
		if newStatus == domain.OrderStatusCancelled && order.Status == domain.OrderStatusPending {
			return nil
		}
		return &domain.AuthorizationError{Message: "consumers may only cancel orders that are still pending"}
	}

	return &domain.AuthorizationError{Message: "not allowed to change the status of this order"}
}

// Timeline returns the order's status history newest-first.
func (s *Service) Timeline(ctx context.Context, actor *domain.User, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if err := s.checkVisible(ctx, actor, order); err != nil {
		return nil, err
	}

	entries, err := s.orders.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders.ListStatusHistory: %w", err)
	}
	return entries, nil
}

func (s *Service) GetOrder(ctx context.Context, actor *domain.User, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.GetOrder: %w", err)
	}
	if err := s.checkVisible(ctx, actor, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListOrders returns the actor's own orders; farmers additionally see
// the orders placed against their farms.
func (s *Service) ListOrders(ctx context.Context, actor domain.User) ([]domain.Order, error) {
	own, err := s.orders.SearchOrders(ctx, port.OrderFilter{ConsumerID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("orders.SearchOrders: %w", err)
	}

	all := own
	if actor.Has(domain.CapFarmer) {
		farms, err := s.farms.ListFarms(ctx, &actor.ID)
		if err != nil {
			return nil, fmt.Errorf("farms.ListFarms: %w", err)
		}
		if len(farms) > 0 {
			farmIDs := lo.Map(farms, func(f domain.Farm, _ int) uuid.UUID { return f.ID })
			farmOrders, err := s.orders.SearchOrders(ctx, port.OrderFilter{FarmIDs: farmIDs})
			if err != nil {
				return nil, fmt.Errorf("orders.SearchOrders: %w", err)
			}
			all = append(all, farmOrders...)
		}
	}

	all = lo.UniqBy(all, func(o domain.Order) uuid.UUID { return o.ID })
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// checkVisible hides other users' orders behind not-found rather than
// forbidden, so the API does not leak order existence.
func (s *Service) checkVisible(ctx context.Context, actor *domain.User, order domain.Order) error {
	if actor == nil || actor.Has(domain.CapAdmin) || order.ConsumerID == actor.ID {
		return nil
	}
	if actor.Has(domain.CapFarmer) {
		farm, err := s.farms.GetFarm(ctx, order.FarmID)
		if err != nil {
			return fmt.Errorf("farms.GetFarm: %w", err)
		}
		if farm.OwnerID == actor.ID {
			return nil
		}
	}
	return fmt.Errorf("order %s: %w", order.ID, domain.ErrNotFound)
}

// dayBounds truncates t to the configured calendar day.
func (s *Service) dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(s.loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	return from, from.AddDate(0, 0, 1)
}

func (s *Service) publish(topic, eventType, orderID string, payload any) {
	if s.producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.producer.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
