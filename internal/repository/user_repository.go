package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/port"
)

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUser(pool *pgxpool.Pool) port.UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, first_name, last_name,
	phone_number, is_farmer, is_consumer, is_admin, created_at, updated_at`

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

func (r *userRepository) InsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	row := q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name,
		                   phone_number, is_farmer, is_consumer, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.PhoneNumber, user.IsFarmer, user.IsConsumer, user.IsAdmin,
	)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, &domain.ValidationError{Field: "email", Message: "a user with this email already exists"}
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetUser(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *userRepository) getUser(ctx context.Context, query string, arg any) (domain.User, error) {
	var u domain.User
	err := q(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.IsFarmer, &u.IsConsumer, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, fmt.Errorf("get user: %w", domain.ErrNotFound)
		}
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	row := q(ctx, r.pool).QueryRow(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, phone_number = $4,
		    is_farmer = $5, is_consumer = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		user.ID, user.FirstName, user.LastName, user.PhoneNumber, user.IsFarmer, user.IsConsumer,
	)
	if err := row.Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("update user: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
