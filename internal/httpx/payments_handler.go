package httpx

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/payments"
)

type createPaymentRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "order_id", Message: "invalid order id"})
		return
	}
	if req.Method == "" {
		req.Method = "creditcard"
	}

	payment, err := s.Payments.CreateForOrder(r.Context(), actor, orderID, req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentView(payment))
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payment, err := s.Payments.GetPayment(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(payment))
}

// paymentWebhook always answers 200 on handled events so the gateway does
// not retry forever; processing errors answer 5xx and invite a retry.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var event payments.WebhookEvent
	if err := decodeJSON(r, &event); err != nil {
		writeError(w, err)
		return
	}

	if err := s.Payments.HandleWebhook(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
