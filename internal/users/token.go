package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dairydirect/api/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// TokenIssuer signs and verifies HS256 access/refresh token pairs.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) Issue(userID uuid.UUID) (TokenPair, error) {
	access, err := i.sign(userID, tokenTypeAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access: %w", err)
	}
	refresh, err := i.sign(userID, tokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *TokenIssuer) sign(userID uuid.UUID, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
	})
	return token.SignedString(i.secret)
}

// ParseAccess validates an access token and returns the subject user id.
func (i *TokenIssuer) ParseAccess(token string) (uuid.UUID, error) {
	return i.parse(token, tokenTypeAccess)
}

// ParseRefresh validates a refresh token and returns the subject user id.
func (i *TokenIssuer) ParseRefresh(token string) (uuid.UUID, error) {
	return i.parse(token, tokenTypeRefresh)
}

func (i *TokenIssuer) parse(token, wantType string) (uuid.UUID, error) {
	var parsed claims

	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, &domain.AuthorizationError{Message: "token expired"}
		}
		return uuid.Nil, &domain.AuthorizationError{Message: "invalid token"}
	}

	if parsed.TokenType != wantType {
		return uuid.Nil, &domain.AuthorizationError{Message: "wrong token type"}
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return uuid.Nil, &domain.AuthorizationError{Message: "invalid token subject"}
	}
	return userID, nil
}
