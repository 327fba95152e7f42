package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairydirect/api/internal/domain"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name: "admission error: 422",
			err: &domain.AdmissionError{
				FarmID: uuid.New(), FarmName: "Green Valley",
				Capacity: 10, Reserved: 9, Requested: 2,
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "validation error: 400",
			err:      &domain.ValidationError{Field: "status", Message: "invalid order status"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "authorization error: 403",
			err:      &domain.AuthorizationError{Message: "not allowed"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "not found: 404",
			err:      domain.ErrNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "wrapped not found: 404",
			err:      errors.Join(errors.New("get order"), domain.ErrNotFound),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown error: 500",
			err:      errors.New("connection refused"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestWriteError_AdmissionBody(t *testing.T) {
	farmID := uuid.New()
	rec := httptest.NewRecorder()

	writeError(rec, &domain.AdmissionError{
		FarmID: farmID, FarmName: "Green Valley",
		Capacity: 10, Reserved: 9, Requested: 2,
	})

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Farm)
	assert.Equal(t, farmID.String(), body.Farm.ID)
	assert.Equal(t, 10, body.Farm.Capacity)
	assert.Equal(t, 9, body.Farm.Reserved)
	assert.Equal(t, 2, body.Farm.Requested)
}

func TestWriteError_InternalDetailsHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: password authentication failed"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
}
