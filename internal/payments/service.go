package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/dairydirect/api/internal/domain"
	kafkax "github.com/dairydirect/api/internal/kafka"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/port"
	"github.com/dairydirect/api/internal/redisx"
)

// Gateway is the slice of the Moyasar client the service needs; the
// webhook path re-fetches payments from it as the source of truth since
// webhook bodies are unauthenticated.
type Gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (GatewayPayment, error)
	GetPayment(ctx context.Context, paymentID string) (GatewayPayment, error)
}

// Transitioner drives the order state machine. The webhook path calls it
// with a nil actor, the privileged system path.
type Transitioner interface {
	Transition(ctx context.Context, actor *domain.User, orderID uuid.UUID, newStatus domain.OrderStatus, notes string) (domain.Order, error)
	GetOrder(ctx context.Context, actor *domain.User, orderID uuid.UUID) (domain.Order, error)
}

type Service struct {
	payments port.PaymentRepository
	engine   Transitioner
	gateway  Gateway
	rdb      *redis.Client
	producer orders.EventPublisher

	callbackURL string
	service     string
	now         func() time.Time
}

func NewService(
	payments port.PaymentRepository,
	engine Transitioner,
	gateway Gateway,
	rdb *redis.Client,
	producer orders.EventPublisher,
	callbackURL string,
	serviceName string,
) *Service {
	return &Service{
		payments:    payments,
		engine:      engine,
		gateway:     gateway,
		rdb:         rdb,
		producer:    producer,
		callbackURL: callbackURL,
		service:     serviceName,
		now:         time.Now,
	}
}

// CreateForOrder opens a gateway payment for the order's total and stores
// the mirror row. One payment per order.
func (s *Service) CreateForOrder(ctx context.Context, actor domain.User, orderID uuid.UUID, method string) (domain.Payment, error) {
	var zero domain.Payment

	order, err := s.engine.GetOrder(ctx, &actor, orderID)
	if err != nil {
		return zero, fmt.Errorf("engine.GetOrder: %w", err)
	}
	if order.ConsumerID != actor.ID && !actor.Has(domain.CapAdmin) {
		return zero, &domain.AuthorizationError{Message: "only the order's consumer can pay for it"}
	}

	if existing, err := s.payments.GetPaymentByOrder(ctx, orderID); err == nil {
		if existing.Status == domain.PaymentStatusPending {
			return existing, nil
		}
		return zero, &domain.ValidationError{Field: "order", Message: "order already has a payment"}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return zero, fmt.Errorf("payments.GetPaymentByOrder: %w", err)
	}

	minor := order.TotalAmount.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	description := fmt.Sprintf("order %s", order.ID)

	gw, err := s.gateway.CreatePayment(ctx, CreatePaymentRequest{
		Amount:      int(minor),
		Currency:    order.TotalAmount.Currency.String(),
		Description: description,
		CallbackURL: s.callbackURL,
		Source:      PaymentSource{Type: method},
	})
	if err != nil {
		return zero, fmt.Errorf("gateway.CreatePayment: %w", err)
	}

	payment, err := s.payments.InsertPayment(ctx, domain.Payment{
		OrderID:          order.ID,
		GatewayPaymentID: gw.ID,
		Status:           domain.PaymentStatusPending,
		Method:           method,
		Amount:           order.TotalAmount,
		Description:      description,
		PaymentURL:       gw.Source.TransactionURL,
		GatewayResponse:  gw.Raw,
	})
	if err != nil {
		return zero, fmt.Errorf("payments.InsertPayment: %w", err)
	}
	return payment, nil
}

func (s *Service) GetPayment(ctx context.Context, actor domain.User, paymentID uuid.UUID) (domain.Payment, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("payments.GetPayment: %w", err)
	}
	// Visibility follows the order's.
	if _, err := s.engine.GetOrder(ctx, &actor, payment.OrderID); err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

// WebhookEvent is the gateway callback body. Only the ids are trusted;
// the payment state is re-fetched from the gateway.
type WebhookEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	PaymentID string `json:"payment_id"`
}

// HandleWebhook mirrors a terminal gateway state into the payment row and
// drives the order machine as the system actor. Safe to call twice for
// the same event: a Redis dedup key short-circuits replays, and an
// already-terminal payment row is left untouched.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) (err error) {
	if event.PaymentID == "" {
		return &domain.ValidationError{Field: "payment_id", Message: "payment_id is required"}
	}

	if event.ID != "" && s.rdb != nil {
		key := fmt.Sprintf(redisx.KeyDedup, "payments", event.ID)
		if seen, derr := redisx.Dedup(ctx, s.rdb, key); derr != nil {
			log.Printf("webhook dedup: %v", derr) // fall through, DB guard still holds
		} else if seen {
			return nil
		}
		// The claim must not outlive a failed attempt: the gateway retries
		// on a non-2xx answer and the retry has to get through.
		defer func() {
			if err != nil {
				if derr := s.rdb.Del(ctx, key).Err(); derr != nil {
					log.Printf("webhook dedup release: %v", derr)
				}
			}
		}()
	}

	gw, err := s.gateway.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("gateway.GetPayment: %w", err)
	}

	payment, err := s.payments.GetPaymentByGatewayID(ctx, gw.ID)
	if err != nil {
		return fmt.Errorf("payments.GetPaymentByGatewayID: %w", err)
	}

	newStatus, ok := mapGatewayStatus(gw.Status)
	if !ok || payment.Status.Terminal() {
		return nil
	}

	var paidAt *time.Time
	if newStatus == domain.PaymentStatusPaid {
		paidAt = lo.ToPtr(s.now())
	}
	if err := s.payments.SyncPaymentStatus(ctx, payment.ID, newStatus, gw.Raw, paidAt); err != nil {
		return fmt.Errorf("payments.SyncPaymentStatus: %w", err)
	}

	// Drive the order. A ValidationError here means the order has already
	// moved past the target state; the forward-only rule wins.
	switch newStatus {
	case domain.PaymentStatusPaid:
		s.transitionSystem(ctx, payment.OrderID, domain.OrderStatusConfirmed, "payment confirmed")
	case domain.PaymentStatusCancelled:
		s.transitionSystem(ctx, payment.OrderID, domain.OrderStatusCancelled, "payment "+gw.Status)
	}

	s.publishUpdated(payment, newStatus)
	return nil
}

func (s *Service) transitionSystem(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, notes string) {
	if _, err := s.engine.Transition(ctx, nil, orderID, status, notes); err != nil {
		if domain.IsValidation(err) {
			log.Printf("payment webhook: order %s already past %s", orderID, status)
			return
		}
		log.Printf("payment webhook: transition order %s: %v", orderID, err)
	}
}

func (s *Service) publishUpdated(payment domain.Payment, status domain.PaymentStatus) {
	if s.producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventPaymentUpdated,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.service,
		CorrelationID: payment.OrderID.String(),
		Payload: kafkax.MustMarshal(orders.PaymentUpdatedPayload{
			PaymentID: payment.ID.String(),
			OrderID:   payment.OrderID.String(),
			Status:    string(status),
		}),
	}
	s.producer.Publish(orders.TopicPaymentUpdated, orders.PartitionKey(payment.OrderID.String()), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentUpdated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func mapGatewayStatus(s string) (domain.PaymentStatus, bool) {
	switch s {
	case GatewayStatusPaid:
		return domain.PaymentStatusPaid, true
	case GatewayStatusFailed:
		return domain.PaymentStatusFailed, true
	case GatewayStatusRefunded, GatewayStatusVoided:
		return domain.PaymentStatusCancelled, true
	default:
		return "", false
	}
}
