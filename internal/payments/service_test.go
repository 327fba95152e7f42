package payments_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/payments"
)

type memPayments struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Payment
}

func newMemPayments() *memPayments {
	return &memPayments{byID: make(map[uuid.UUID]domain.Payment)}
}

func (m *memPayments) InsertPayment(_ context.Context, p domain.Payment) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.ID] = p
	return p, nil
}

func (m *memPayments) GetPayment(_ context.Context, paymentID uuid.UUID) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[paymentID]
	if !ok {
		return domain.Payment{}, fmt.Errorf("get payment: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (m *memPayments) GetPaymentByOrder(_ context.Context, orderID uuid.UUID) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return domain.Payment{}, fmt.Errorf("get payment: %w", domain.ErrNotFound)
}

func (m *memPayments) GetPaymentByGatewayID(_ context.Context, gatewayPaymentID string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.GatewayPaymentID == gatewayPaymentID {
			return p, nil
		}
	}
	return domain.Payment{}, fmt.Errorf("get payment: %w", domain.ErrNotFound)
}

func (m *memPayments) SyncPaymentStatus(_ context.Context, paymentID uuid.UUID, status domain.PaymentStatus, response []byte, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[paymentID]
	if !ok {
		return fmt.Errorf("sync payment status: %w", domain.ErrNotFound)
	}
	p.Status = status
	p.GatewayResponse = response
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	m.byID[paymentID] = p
	return nil
}

// fakeEngine enforces the same forward-only rule as the real order
// engine, enough to observe what the webhook path drives.
type fakeEngine struct {
	orders      map[uuid.UUID]domain.Order
	transitions []domain.OrderStatus
}

func newFakeEngine(order domain.Order) *fakeEngine {
	return &fakeEngine{orders: map[uuid.UUID]domain.Order{order.ID: order}}
}

func (e *fakeEngine) GetOrder(_ context.Context, _ *domain.User, orderID uuid.UUID) (domain.Order, error) {
	o, ok := e.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order: %w", domain.ErrNotFound)
	}
	return o, nil
}

func (e *fakeEngine) Transition(_ context.Context, _ *domain.User, orderID uuid.UUID, newStatus domain.OrderStatus, _ string) (domain.Order, error) {
	o, ok := e.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order: %w", domain.ErrNotFound)
	}
	if !domain.CanTransition(o.Status, newStatus) {
		return domain.Order{}, &domain.ValidationError{Field: "status", Message: "invalid transition"}
	}
	o.Status = newStatus
	e.orders[orderID] = o
	e.transitions = append(e.transitions, newStatus)
	return o, nil
}

type fakeGateway struct {
	created  []payments.CreatePaymentRequest
	payments map[string]payments.GatewayPayment

	gets    int   // GetPayment calls
	failGet error // returned by the next GetPayment, then cleared
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]payments.GatewayPayment)}
}

func (g *fakeGateway) CreatePayment(_ context.Context, req payments.CreatePaymentRequest) (payments.GatewayPayment, error) {
	g.created = append(g.created, req)
	p := payments.GatewayPayment{
		ID:       fmt.Sprintf("pay_%d", len(g.created)),
		Status:   payments.GatewayStatusInitiated,
		Amount:   req.Amount,
		Currency: req.Currency,
		Raw:      []byte(`{"status":"initiated"}`),
	}
	p.Source.TransactionURL = "https://gw.example/tx/" + p.ID
	g.payments[p.ID] = p
	return p, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, paymentID string) (payments.GatewayPayment, error) {
	g.gets++
	if g.failGet != nil {
		err := g.failGet
		g.failGet = nil
		return payments.GatewayPayment{}, err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return payments.GatewayPayment{}, fmt.Errorf("payment %s not found", paymentID)
	}
	return p, nil
}

func (g *fakeGateway) setStatus(paymentID, status string) {
	p := g.payments[paymentID]
	p.Status = status
	p.Raw, _ = json.Marshal(map[string]string{"status": status})
	g.payments[paymentID] = p
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) Publish(topic string, _, _ []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

type paymentFixture struct {
	repo     *memPayments
	engine   *fakeEngine
	gateway  *fakeGateway
	producer *capturePublisher
	svc      *payments.Service

	consumer domain.User
	order    domain.Order
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	consumer := domain.User{ID: uuid.New(), IsConsumer: true}
	total, err := domain.NewMoney(decimal.RequireFromString("37.00"), "SAR")
	require.NoError(t, err)

	order := domain.Order{
		ID:          uuid.New(),
		ConsumerID:  consumer.ID,
		FarmID:      uuid.New(),
		Status:      domain.OrderStatusPending,
		TotalAmount: total,
	}

	f := &paymentFixture{
		repo:     newMemPayments(),
		engine:   newFakeEngine(order),
		gateway:  newFakeGateway(),
		producer: &capturePublisher{},
		consumer: consumer,
		order:    order,
	}
	f.svc = payments.NewService(f.repo, f.engine, f.gateway, nil, f.producer,
		"https://api.example/api/payments/webhook", "test")
	return f
}

// useRedis rebuilds the service against a throwaway Redis so the webhook
// dedup layer is in play.
func (f *paymentFixture) useRedis(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f.svc = payments.NewService(f.repo, f.engine, f.gateway, rdb, f.producer,
		"https://api.example/api/payments/webhook", "test")
}

func TestCreateForOrder(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, f.order.ID, payment.OrderID)
	assert.Equal(t, "https://gw.example/tx/pay_1", payment.PaymentURL)

	// the gateway gets the total in minor units
	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, 3700, f.gateway.created[0].Amount)
	assert.Equal(t, "SAR", f.gateway.created[0].Currency)

	// a second request returns the same pending payment
	again, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, again.ID)
	assert.Len(t, f.gateway.created, 1)
}

func TestCreateForOrder_OnlyOrderConsumer(t *testing.T) {
	f := newPaymentFixture(t)

	stranger := domain.User{ID: uuid.New(), IsConsumer: true}
	_, err := f.svc.CreateForOrder(t.Context(), stranger, f.order.ID, "creditcard")
	require.Error(t, err)
	assert.True(t, domain.IsAuthorization(err))
}

func TestCreateForOrder_TerminalPayment(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	require.NoError(t, f.repo.SyncPaymentStatus(ctx, payment.ID, domain.PaymentStatusPaid, nil, nil))

	_, err = f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestHandleWebhook_Paid(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusPaid)

	err = f.svc.HandleWebhook(ctx, payments.WebhookEvent{
		ID:        "evt_1",
		Type:      "payment_paid",
		PaymentID: payment.GatewayPaymentID,
	})
	require.NoError(t, err)

	stored, err := f.repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	// the order was driven to confirmed by the system actor
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusConfirmed}, f.engine.transitions)
	assert.Contains(t, f.producer.topics, orders.TopicPaymentUpdated)
}

func TestHandleWebhook_Idempotent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusPaid)

	event := payments.WebhookEvent{ID: "evt_1", PaymentID: payment.GatewayPaymentID}
	require.NoError(t, f.svc.HandleWebhook(ctx, event))
	// delivered twice: the terminal payment row makes the replay a no-op
	require.NoError(t, f.svc.HandleWebhook(ctx, event))

	assert.Len(t, f.engine.transitions, 1)
}

func TestHandleWebhook_DedupShortCircuits(t *testing.T) {
	f := newPaymentFixture(t)
	f.useRedis(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusPaid)

	event := payments.WebhookEvent{ID: "evt_1", PaymentID: payment.GatewayPaymentID}
	require.NoError(t, f.svc.HandleWebhook(ctx, event))

	// the replay is answered from the dedup key, before the gateway
	gets := f.gateway.gets
	require.NoError(t, f.svc.HandleWebhook(ctx, event))
	assert.Equal(t, gets, f.gateway.gets)
	assert.Len(t, f.engine.transitions, 1)
}

func TestHandleWebhook_RetryAfterFailure(t *testing.T) {
	f := newPaymentFixture(t)
	f.useRedis(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusPaid)

	// the first delivery dies at the gateway; the dedup claim must not
	// survive the failed attempt or the retry would be dropped
	f.gateway.failGet = assert.AnError
	event := payments.WebhookEvent{ID: "evt_1", PaymentID: payment.GatewayPaymentID}
	require.Error(t, f.svc.HandleWebhook(ctx, event))

	// the gateway retries the same event and it goes through
	require.NoError(t, f.svc.HandleWebhook(ctx, event))

	stored, err := f.repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.Status)
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusConfirmed}, f.engine.transitions)
}

func TestHandleWebhook_Failed(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusFailed)

	require.NoError(t, f.svc.HandleWebhook(ctx, payments.WebhookEvent{ID: "evt_1", PaymentID: payment.GatewayPaymentID}))

	stored, err := f.repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, stored.Status)
	assert.Nil(t, stored.PaidAt)

	// a failed charge leaves the order where it is
	assert.Empty(t, f.engine.transitions)
}

func TestHandleWebhook_Refunded(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := t.Context()

	payment, err := f.svc.CreateForOrder(ctx, f.consumer, f.order.ID, "creditcard")
	require.NoError(t, err)

	f.gateway.setStatus(payment.GatewayPaymentID, payments.GatewayStatusRefunded)

	require.NoError(t, f.svc.HandleWebhook(ctx, payments.WebhookEvent{ID: "evt_1", PaymentID: payment.GatewayPaymentID}))

	stored, err := f.repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, stored.Status)

	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusCancelled}, f.engine.transitions)
}

func TestHandleWebhook_MissingPaymentID(t *testing.T) {
	f := newPaymentFixture(t)

	err := f.svc.HandleWebhook(t.Context(), payments.WebhookEvent{ID: "evt_1"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
