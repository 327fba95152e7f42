package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/port"
)

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProduct(pool *pgxpool.Pool) port.ProductRepository {
	return &productRepository{pool: pool}
}

const productColumns = `id, farm_id, name, description, price_amount::text, price_currency,
	stock_quantity, unit, image_url, is_available, created_at, updated_at`

func (r *productRepository) InsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO products (id, farm_id, name, description, price_amount, price_currency,
		                      stock_quantity, unit, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		product.ID, product.FarmID, product.Name, product.Description,
		product.Price.Amount.String(), product.Price.Currency.String(),
		product.StockQuantity, product.Unit, product.ImageURL, product.IsAvailable,
	)
	if err := row.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var p domain.Product

	if productID == uuid.Nil {
		return p, fmt.Errorf("productID is empty")
	}

	p, err := scanProduct(q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, fmt.Errorf("get product: %w", domain.ErrNotFound)
		}
		return p, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *productRepository) GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := q(ctx, r.pool).Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *productRepository) ListProducts(ctx context.Context, farmID *uuid.UUID) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_available`
	var args []any
	if farmID != nil {
		query += ` AND farm_id = $1`
		args = append(args, *farmID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *productRepository) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price_amount = $4, price_currency = $5,
		    stock_quantity = $6, unit = $7, image_url = $8, is_available = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		product.ID, product.Name, product.Description,
		product.Price.Amount.String(), product.Price.Currency.String(),
		product.StockQuantity, product.Unit, product.ImageURL, product.IsAvailable,
	)
	if err := row.Scan(&product.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("update product: %w", domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return product, nil
}

func (r *productRepository) SoftDeleteProduct(ctx context.Context, productID uuid.UUID) error {
	cmdTag, err := q(ctx, r.pool).Exec(ctx,
		`UPDATE products SET is_available = false, updated_at = now() WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("soft delete product: %w", domain.ErrNotFound)
	}
	return nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanProduct: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p                domain.Product
		amount, currCode string
	)
	err := row.Scan(&p.ID, &p.FarmID, &p.Name, &p.Description, &amount, &currCode,
		&p.StockQuantity, &p.Unit, &p.ImageURL, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if p.Price, err = parseMoney(amount, currCode); err != nil {
		return p, fmt.Errorf("parseMoney: %w", err)
	}
	return p, nil
}
