package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/payments"
	"github.com/dairydirect/api/internal/port"
	"github.com/dairydirect/api/internal/users"
)

type Server struct {
	Users    *users.Service
	Orders   *orders.Service
	Payments *payments.Service
	Farms    port.FarmRepository
	Products port.ProductRepository
	Redis    *redis.Client

	// Currency is the ISO code products are priced in when a request
	// does not name one.
	Currency string
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Post("/auth/token/refresh", s.refreshToken)

		// The webhook authenticates by re-fetching from the gateway, not
		// by bearer token.
		r.Post("/payments/webhook", s.paymentWebhook)

		r.Get("/farms", s.listFarms)
		r.Get("/farms/{id}", s.getFarm)
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/profile", s.profile)
			r.Put("/auth/profile", s.updateProfile)

			r.Post("/farms", s.createFarm)
			r.Put("/farms/{id}", s.updateFarm)
			r.Delete("/farms/{id}", s.deleteFarm)

			r.Post("/products", s.createProduct)
			r.Put("/products/{id}", s.updateProduct)
			r.Delete("/products/{id}", s.deleteProduct)

			r.Post("/orders", s.submitOrder)
			r.Get("/orders", s.listOrders)
			r.Get("/orders/{id}", s.getOrder)
			r.Get("/orders/{id}/status", s.getOrderStatus)
			r.Post("/orders/{id}/status", s.transitionOrder)
			r.Get("/orders/{id}/timeline", s.orderTimeline)

			r.Post("/payments", s.createPayment)
			r.Get("/payments/{id}", s.getPayment)
		})
	})

	return r
}
