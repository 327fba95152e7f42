package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/port"
)

type Service struct {
	users  port.UserRepository
	tokens *TokenIssuer
}

func NewService(users port.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	IsFarmer    bool
	IsConsumer  bool
}

// Register creates a user with at least one role; with neither flag set
// the account defaults to consumer.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, TokenPair, error) {
	var zero domain.User

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" {
		return zero, TokenPair{}, &domain.ValidationError{Field: "email", Message: "email is required"}
	}
	if in.Username == "" {
		return zero, TokenPair{}, &domain.ValidationError{Field: "username", Message: "username is required"}
	}
	if len(in.Password) < 8 {
		return zero, TokenPair{}, &domain.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if !in.IsFarmer && !in.IsConsumer {
		in.IsConsumer = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return zero, TokenPair{}, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	user, err := s.users.InsertUser(ctx, domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		IsFarmer:     in.IsFarmer,
		IsConsumer:   in.IsConsumer,
	})
	if err != nil {
		return zero, TokenPair{}, fmt.Errorf("users.InsertUser: %w", err)
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return zero, TokenPair{}, fmt.Errorf("tokens.Issue: %w", err)
	}
	return user, pair, nil
}

// Login authenticates by email or username.
func (s *Service) Login(ctx context.Context, email, username, password string) (domain.User, TokenPair, error) {
	var zero domain.User

	if email == "" && username == "" {
		return zero, TokenPair{}, &domain.ValidationError{Message: "either email or username must be provided"}
	}

	var (
		user domain.User
		err  error
	)
	if email != "" {
		user, err = s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	} else {
		user, err = s.users.GetUserByUsername(ctx, username)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return zero, TokenPair{}, &domain.AuthorizationError{Message: "invalid credentials"}
		}
		return zero, TokenPair{}, fmt.Errorf("get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return zero, TokenPair{}, &domain.AuthorizationError{Message: "invalid credentials"}
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return zero, TokenPair{}, fmt.Errorf("tokens.Issue: %w", err)
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, &domain.AuthorizationError{Message: "invalid token"}
		}
		return TokenPair{}, fmt.Errorf("users.GetUser: %w", err)
	}
	return s.tokens.Issue(userID)
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	IsFarmer    *bool
	IsConsumer  *bool
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("users.GetUser: %w", err)
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.IsFarmer != nil {
		user.IsFarmer = *in.IsFarmer
	}
	if in.IsConsumer != nil {
		user.IsConsumer = *in.IsConsumer
	}

	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("users.UpdateUser: %w", err)
	}
	updated.PasswordHash = user.PasswordHash
	return updated, nil
}

// ResolveActor loads the user behind a parsed access token.
func (s *Service) ResolveActor(ctx context.Context, accessToken string) (domain.User, error) {
	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, &domain.AuthorizationError{Message: "invalid token"}
		}
		return domain.User{}, fmt.Errorf("users.GetUser: %w", err)
	}
	return user, nil
}
