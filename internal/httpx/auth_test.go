package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/users"
)

type staticUsers struct {
	user domain.User
}

func (s *staticUsers) InsertUser(_ context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

func (s *staticUsers) GetUser(_ context.Context, userID uuid.UUID) (domain.User, error) {
	if userID != s.user.ID {
		return domain.User{}, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return s.user, nil
}

func (s *staticUsers) GetUserByEmail(_ context.Context, _ string) (domain.User, error) {
	return s.user, nil
}

func (s *staticUsers) GetUserByUsername(_ context.Context, _ string) (domain.User, error) {
	return s.user, nil
}

func (s *staticUsers) UpdateUser(_ context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

func newAuthServer(t *testing.T) (*Server, *users.TokenIssuer, domain.User) {
	t.Helper()

	user := domain.User{ID: uuid.New(), Username: "nora", Email: "nora@example.com", IsConsumer: true}
	issuer := users.NewTokenIssuer("test-secret", 15*time.Minute, 24*time.Hour)
	svc := users.NewService(&staticUsers{user: user}, issuer)
	return &Server{Users: svc}, issuer, user
}

func TestRequireAuth(t *testing.T) {
	server, issuer, user := newAuthServer(t)

	var gotActor domain.User
	handler := server.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = actorFrom(r)
		w.WriteHeader(http.StatusOK)
	}))

	pair, err := issuer.Issue(user.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid token", "Bearer " + pair.Access, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"refresh used as access", "Bearer " + pair.Refresh, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, user.ID, gotActor.ID)
			}
		})
	}
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	server, issuer, _ := newAuthServer(t)

	handler := server.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// a valid signature for a user that no longer exists
	pair, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
