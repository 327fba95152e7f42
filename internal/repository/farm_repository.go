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

type farmRepository struct {
	pool *pgxpool.Pool
}

func NewFarm(pool *pgxpool.Pool) port.FarmRepository {
	return &farmRepository{pool: pool}
}

const farmColumns = `id, owner_id, name, description, location, region, governorate,
	type, price_per_kg, phone_number, image_url, daily_capacity, created_at, updated_at`

func (r *farmRepository) InsertFarm(ctx context.Context, farm domain.Farm) (domain.Farm, error) {
	if farm.ID == uuid.Nil {
		farm.ID = uuid.New()
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO farms (id, owner_id, name, description, location, region, governorate,
		                   type, price_per_kg, phone_number, image_url, daily_capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		farm.ID, farm.OwnerID, farm.Name, farm.Description, farm.Location, farm.Region,
		farm.Governorate, farm.Type, farm.PricePerKg, farm.PhoneNumber, farm.ImageURL, farm.DailyCapacity,
	)
	if err := row.Scan(&farm.CreatedAt, &farm.UpdatedAt); err != nil {
		return domain.Farm{}, fmt.Errorf("insert farm: %w", err)
	}
	return farm, nil
}

func (r *farmRepository) GetFarm(ctx context.Context, farmID uuid.UUID) (domain.Farm, error) {
	return r.getFarm(ctx, farmID, false)
}

func (r *farmRepository) LockFarm(ctx context.Context, farmID uuid.UUID) (domain.Farm, error) {
	return r.getFarm(ctx, farmID, true)
}

func (r *farmRepository) getFarm(ctx context.Context, farmID uuid.UUID, forUpdate bool) (domain.Farm, error) {
	var f domain.Farm

	if farmID == uuid.Nil {
		return f, fmt.Errorf("farmID is empty")
	}

	query := `SELECT ` + farmColumns + ` FROM farms WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	f, err := scanFarm(q(ctx, r.pool).QueryRow(ctx, query, farmID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return f, fmt.Errorf("get farm: %w", domain.ErrNotFound)
		}
		return f, fmt.Errorf("get farm: %w", err)
	}
	return f, nil
}

func (r *farmRepository) ListFarms(ctx context.Context, ownerID *uuid.UUID) ([]domain.Farm, error) {
	query := `SELECT ` + farmColumns + ` FROM farms`
	var args []any
	if ownerID != nil {
		query += ` WHERE owner_id = $1`
		args = append(args, *ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	defer rows.Close()

	var farms []domain.Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scanFarm: %w", err)
		}
		farms = append(farms, f)
	}
	return farms, rows.Err()
}

func (r *farmRepository) UpdateFarm(ctx context.Context, farm domain.Farm) (domain.Farm, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		UPDATE farms
		SET name = $2, description = $3, location = $4, region = $5, governorate = $6,
		    type = $7, price_per_kg = $8, phone_number = $9, image_url = $10,
		    daily_capacity = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		farm.ID, farm.Name, farm.Description, farm.Location, farm.Region, farm.Governorate,
		farm.Type, farm.PricePerKg, farm.PhoneNumber, farm.ImageURL, farm.DailyCapacity,
	)
	if err := row.Scan(&farm.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Farm{}, fmt.Errorf("update farm: %w", domain.ErrNotFound)
		}
		return domain.Farm{}, fmt.Errorf("update farm: %w", err)
	}
	return farm, nil
}

func (r *farmRepository) DeleteFarm(ctx context.Context, farmID uuid.UUID) error {
	cmdTag, err := q(ctx, r.pool).Exec(ctx, `DELETE FROM farms WHERE id = $1`, farmID)
	if err != nil {
		return fmt.Errorf("delete farm: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("delete farm: %w", domain.ErrNotFound)
	}
	return nil
}

func scanFarm(row pgx.Row) (domain.Farm, error) {
	var f domain.Farm
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Description, &f.Location, &f.Region,
		&f.Governorate, &f.Type, &f.PricePerKg, &f.PhoneNumber, &f.ImageURL,
		&f.DailyCapacity, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}
