package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/port"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPayment(pool *pgxpool.Pool) port.PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentColumns = `id, order_id, gateway_payment_id, status, method, amount::text, currency,
	description, payment_url, gateway_response, created_at, updated_at, paid_at`

func (r *paymentRepository) InsertPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payments (id, order_id, gateway_payment_id, status, method, amount, currency,
		                      description, payment_url, gateway_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		payment.ID, payment.OrderID, payment.GatewayPaymentID, string(payment.Status),
		payment.Method, payment.Amount.Amount.String(), payment.Amount.Currency.String(),
		payment.Description, payment.PaymentURL, emptyJSONIfNil(payment.GatewayResponse),
	)
	if err := row.Scan(&payment.CreatedAt, &payment.UpdatedAt); err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) GetPayment(ctx context.Context, paymentID uuid.UUID) (domain.Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID)
}

func (r *paymentRepository) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (domain.Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
}

func (r *paymentRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_payment_id = $1`, gatewayPaymentID)
}

func (r *paymentRepository) getPayment(ctx context.Context, query string, arg any) (domain.Payment, error) {
	var (
		p                domain.Payment
		status           string
		amount, currCode string
	)
	err := q(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.OrderID, &p.GatewayPaymentID, &status, &p.Method, &amount, &currCode,
		&p.Description, &p.PaymentURL, &p.GatewayResponse, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, fmt.Errorf("get payment: %w", domain.ErrNotFound)
		}
		return p, fmt.Errorf("get payment: %w", err)
	}

	if p.Status, err = domain.ToPaymentStatus(status); err != nil {
		return p, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", status, err)
	}
	if p.Amount, err = parseMoney(amount, currCode); err != nil {
		return p, fmt.Errorf("parseMoney: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) SyncPaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus, response []byte, paidAt *time.Time) error {
	cmdTag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE payments
		SET status = $2, gateway_response = $3, paid_at = COALESCE($4, paid_at), updated_at = now()
		WHERE id = $1`,
		paymentID, string(status), emptyJSONIfNil(response), paidAt)
	if err != nil {
		return fmt.Errorf("sync payment status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("sync payment status: %w", domain.ErrNotFound)
	}
	return nil
}

func emptyJSONIfNil(j []byte) []byte {
	return lo.Ternary(j == nil, []byte(`{}`), j)
}
