package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dairydirect/api/internal/domain"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/redisx"
)

type submitOrderRequest struct {
	Items []struct {
		Product  string `json:"product"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	DeliveryName    string `json:"delivery_name"`
	DeliveryPhone   string `json:"delivery_phone"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryCity    string `json:"delivery_city"`
	DeliveryRegion  string `json:"delivery_region"`
	DeliveryNotes   string `json:"delivery_notes"`
}

type submitOrderResponse struct {
	Orders   []orderView      `json:"orders"`
	Rejected []*admissionBody `json:"rejected,omitempty"`
}

// submitOrder answers 201 when at least one farm group was admitted and
// 422 only when every group was rejected on capacity.
func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var req submitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.Product)
		if err != nil {
			writeError(w, &domain.ValidationError{Field: "items", Message: "invalid product id"})
			return
		}
		items = append(items, domain.CartItem{ProductID: productID, Quantity: it.Quantity})
	}

	res, err := s.Orders.SubmitOrder(r.Context(), actor, orders.SubmitInput{
		Items: items,
		Delivery: domain.DeliveryInfo{
			Name:    req.DeliveryName,
			Phone:   req.DeliveryPhone,
			Address: req.DeliveryAddress,
			City:    req.DeliveryCity,
			Region:  req.DeliveryRegion,
			Notes:   req.DeliveryNotes,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	body := submitOrderResponse{
		Orders:   lo.Map(res.Orders, func(o domain.Order, _ int) orderView { return toOrderView(o) }),
		Rejected: lo.Map(res.Rejected, func(e *domain.AdmissionError, _ int) *admissionBody { return admissionToBody(e) }),
	}

	code := http.StatusCreated
	if len(res.Orders) == 0 {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, body)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	all, err := s.Orders.ListOrders(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(all, func(o domain.Order, _ int) orderView { return toOrderView(o) }))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := s.Orders.GetOrder(r.Context(), &actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type orderStatusResponse struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// getOrderStatus serves from the Redis cache the tracker maintains and
// falls back to Postgres on a miss. The cached entry names the order's
// consumer, so the order's own consumer (and admins) are answered
// without touching Postgres; anyone else takes the DB path, whose
// visibility check hides other users' orders.
func (s *Server) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, id)
		if raw, err := s.Redis.Get(r.Context(), key).Bytes(); err == nil {
			var cached struct {
				Status     string    `json:"status"`
				ConsumerID string    `json:"consumer_id"`
				UpdatedAt  time.Time `json:"updated_at"`
			}
			if json.Unmarshal(raw, &cached) == nil &&
				(cached.ConsumerID == actor.ID.String() || actor.Has(domain.CapAdmin)) {
				writeJSON(w, http.StatusOK, orderStatusResponse{
					OrderID:   id.String(),
					Status:    cached.Status,
					UpdatedAt: cached.UpdatedAt,
					Source:    "cache",
				})
				return
			}
		}
	}

	order, err := s.Orders.GetOrder(r.Context(), &actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderStatusResponse{
		OrderID:   order.ID.String(),
		Status:    string(order.Status),
		UpdatedAt: order.UpdatedAt,
		Source:    "db",
	})
}

type transitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) transitionOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := s.Orders.Transition(r.Context(), &actor, id, status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) orderTimeline(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.Orders.Timeline(r.Context(), &actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(entries, func(h domain.OrderStatusHistory, _ int) historyView { return toHistoryView(h) }))
}
