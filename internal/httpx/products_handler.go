package httpx

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dairydirect/api/internal/domain"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	var farmID *uuid.UUID
	if raw := r.URL.Query().Get("farm"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, &domain.ValidationError{Field: "farm", Message: "invalid farm id"})
			return
		}
		farmID = &id
	}

	products, err := s.Products.ListProducts(r.Context(), farmID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(products, func(p domain.Product, _ int) productView { return toProductView(p) }))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := s.Products.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(product))
}

type productRequest struct {
	FarmID        string `json:"farm_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	StockQuantity int    `json:"stock_quantity"`
	Unit          string `json:"unit"`
	ImageURL      string `json:"image_url"`
	IsAvailable   *bool  `json:"is_available"`
}

func (s *Server) productPrice(req productRequest) (domain.Money, error) {
	amount, err := decimal.NewFromString(req.Price)
	if err != nil {
		return domain.Money{}, &domain.ValidationError{Field: "price", Message: "invalid price"}
	}
	code := req.Currency
	if code == "" {
		code = s.Currency
	}
	price, err := domain.NewMoney(amount, code)
	if err != nil {
		return domain.Money{}, &domain.ValidationError{Field: "currency", Message: "invalid currency code"}
	}
	if price.IsNegative() {
		return domain.Money{}, &domain.ValidationError{Field: "price", Message: "price cannot be negative"}
	}
	return price, nil
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, &domain.ValidationError{Field: "name", Message: "name is required"})
		return
	}

	farmID, err := uuid.Parse(req.FarmID)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "farm_id", Message: "invalid farm id"})
		return
	}
	// Only the farm's owner may list products under it.
	if _, err := s.ownedFarm(r, farmID); err != nil {
		writeError(w, err)
		return
	}

	price, err := s.productPrice(req)
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := s.Products.InsertProduct(r.Context(), domain.Product{
		FarmID:        farmID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: req.StockQuantity,
		Unit:          req.Unit,
		ImageURL:      req.ImageURL,
		IsAvailable:   req.IsAvailable == nil || *req.IsAvailable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductView(product))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := s.Products.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.ownedFarm(r, product.FarmID); err != nil {
		writeError(w, err)
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	product.Description = req.Description
	if req.Price != "" {
		price, err := s.productPrice(req)
		if err != nil {
			writeError(w, err)
			return
		}
		product.Price = price
	}
	product.StockQuantity = req.StockQuantity
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	product.ImageURL = req.ImageURL
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}

	updated, err := s.Products.UpdateProduct(r.Context(), product)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(updated))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := s.Products.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.ownedFarm(r, product.FarmID); err != nil {
		writeError(w, err)
		return
	}

	if err := s.Products.SoftDeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
