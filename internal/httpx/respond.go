package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dairydirect/api/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string         `json:"error"`
	Field string         `json:"field,omitempty"`
	Farm  *admissionBody `json:"farm,omitempty"`
}

type admissionBody struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Reserved  int    `json:"reserved"`
	Requested int    `json:"requested"`
}

// writeError maps the domain error taxonomy onto status codes:
// validation 400, authorization 403, not-found 404, admission 422.
func writeError(w http.ResponseWriter, err error) {
	var (
		admission  *domain.AdmissionError
		validation *domain.ValidationError
		authz      *domain.AuthorizationError
	)

	switch {
	case errors.As(err, &admission):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: admission.Error(),
			Farm:  admissionToBody(admission),
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &authz):
		writeJSON(w, http.StatusForbidden, errorBody{Error: authz.Message})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func admissionToBody(e *domain.AdmissionError) *admissionBody {
	return &admissionBody{
		ID:        e.FarmID.String(),
		Name:      e.FarmName,
		Capacity:  e.Capacity,
		Reserved:  e.Reserved,
		Requested: e.Requested,
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Message: "invalid json"}
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: "id", Message: "invalid id"}
	}
	return id, nil
}
