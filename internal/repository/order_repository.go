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

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return transact(ctx, r.pool, fn)
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var o domain.Order

	if len(order.Items) == 0 {
		return o, &domain.ValidationError{Field: "items", Message: "order has no items"}
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	err := transact(ctx, r.pool, func(ctx context.Context) error {
		row := q(ctx, r.pool).QueryRow(ctx, `
			INSERT INTO orders (id, consumer_id, farm_id, status, total_amount, total_currency,
			                    delivery_name, delivery_phone, delivery_address, delivery_city, delivery_region, delivery_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at, updated_at`,
			order.ID, order.ConsumerID, order.FarmID, string(order.Status),
			order.TotalAmount.Amount.String(), order.TotalAmount.Currency.String(),
			order.Delivery.Name, order.Delivery.Phone, order.Delivery.Address,
			order.Delivery.City, order.Delivery.Region, order.Delivery.Notes,
		)
		if err := row.Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.OrderID = order.ID

			_, err := q(ctx, r.pool).Exec(ctx, `
				INSERT INTO order_items (id, order_id, product_id, quantity, price_amount, price_currency)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				item.ID, item.OrderID, item.ProductID, item.Quantity,
				item.Price.Amount.String(), item.Price.Currency.String(),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return o, err
	}

	return order, nil
}

const orderColumns = `id, consumer_id, farm_id, status, total_amount::text, total_currency,
	delivery_name, delivery_phone, delivery_address, delivery_city, delivery_region, delivery_notes,
	created_at, updated_at`

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *orderRepository) getOrder(ctx context.Context, orderID uuid.UUID, forUpdate bool) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q(ctx, r.pool).QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, fmt.Errorf("get order: %w", domain.ErrNotFound)
		}
		return o, fmt.Errorf("get order: %w", err)
	}

	items, err := r.getOrderItems(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("getOrderItems: %w", err)
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, product_id, quantity, price_amount::text, price_currency
		FROM order_items WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item             domain.OrderItem
			amount, currCode string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &amount, &currCode); err != nil {
			return nil, err
		}
		if item.Price, err = parseMoney(amount, currCode); err != nil {
			return nil, fmt.Errorf("parseMoney: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *orderRepository) SearchOrders(ctx context.Context, filter port.OrderFilter) ([]domain.Order, error) {
	if filter.ConsumerID == nil && len(filter.FarmIDs) == 0 && len(filter.Statuses) == 0 {
		return nil, fmt.Errorf("filter: all fields are empty")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any

	if filter.ConsumerID != nil {
		args = append(args, *filter.ConsumerID)
		query += fmt.Sprintf(" AND consumer_id = $%d", len(args))
	}
	if len(filter.FarmIDs) > 0 {
		args = append(args, filter.FarmIDs)
		query += fmt.Sprintf(" AND farm_id = ANY($%d)", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := lo.Map(filter.Statuses, func(s domain.OrderStatus, _ int) string { return string(s) })
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := q(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.getOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("getOrderItems: %w", err)
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	cmdTag, err := q(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) InsertStatusHistory(ctx context.Context, entry domain.OrderStatusHistory) (domain.OrderStatusHistory, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO order_status_history (id, order_id, old_status, new_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		entry.ID, entry.OrderID, string(entry.OldStatus), string(entry.NewStatus), entry.ChangedBy, entry.Notes,
	)
	if err := row.Scan(&entry.CreatedAt); err != nil {
		return domain.OrderStatusHistory{}, fmt.Errorf("insert status history: %w", err)
	}
	return entry, nil
}

func (r *orderRepository) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusHistory, error) {
	rows, err := q(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, old_status, new_status, changed_by, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY seq DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var entries []domain.OrderStatusHistory
	for rows.Next() {
		var (
			e                    domain.OrderStatusHistory
			oldStatus, newStatus string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &oldStatus, &newStatus, &e.ChangedBy, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OldStatus = domain.OrderStatus(oldStatus)
		e.NewStatus = domain.OrderStatus(newStatus)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *orderRepository) ReservedQuantity(ctx context.Context, farmID uuid.UUID, from, to time.Time) (int, error) {
	var total int
	err := q(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.farm_id = $1
		  AND o.status <> $2
		  AND o.created_at >= $3 AND o.created_at < $4`,
		farmID, string(domain.OrderStatusCancelled), from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("reserved quantity: %w", err)
	}
	return total, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                domain.Order
		status           string
		amount, currCode string
	)
	err := row.Scan(&o.ID, &o.ConsumerID, &o.FarmID, &status, &amount, &currCode,
		&o.Delivery.Name, &o.Delivery.Phone, &o.Delivery.Address,
		&o.Delivery.City, &o.Delivery.Region, &o.Delivery.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}

	if o.Status, err = domain.ToOrderStatus(status); err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}
	if o.TotalAmount, err = parseMoney(amount, currCode); err != nil {
		return o, fmt.Errorf("parseMoney: %w", err)
	}
	return o, nil
}
