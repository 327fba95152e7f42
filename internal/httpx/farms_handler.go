package httpx

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dairydirect/api/internal/domain"
)

func (s *Server) listFarms(w http.ResponseWriter, r *http.Request) {
	var ownerID *uuid.UUID
	if raw := r.URL.Query().Get("owner"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, &domain.ValidationError{Field: "owner", Message: "invalid owner id"})
			return
		}
		ownerID = &id
	}

	farms, err := s.Farms.ListFarms(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(farms, func(f domain.Farm, _ int) farmView { return toFarmView(f) }))
}

func (s *Server) getFarm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	farm, err := s.Farms.GetFarm(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFarmView(farm))
}

type farmRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	Region        string `json:"region"`
	Governorate   string `json:"governorate"`
	Type          string `json:"type"`
	PricePerKg    string `json:"price_per_kg"`
	PhoneNumber   string `json:"phone_number"`
	ImageURL      string `json:"image_url"`
	DailyCapacity int    `json:"daily_capacity"`
}

func (s *Server) createFarm(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.Has(domain.CapFarmer) && !actor.Has(domain.CapAdmin) {
		writeError(w, &domain.AuthorizationError{Message: "only farmers can create farms"})
		return
	}

	var req farmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, &domain.ValidationError{Field: "name", Message: "name is required"})
		return
	}
	if req.DailyCapacity < 0 {
		writeError(w, &domain.ValidationError{Field: "daily_capacity", Message: "daily_capacity cannot be negative"})
		return
	}

	farm, err := s.Farms.InsertFarm(r.Context(), domain.Farm{
		OwnerID:       actor.ID,
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		Region:        req.Region,
		Governorate:   req.Governorate,
		Type:          req.Type,
		PricePerKg:    req.PricePerKg,
		PhoneNumber:   req.PhoneNumber,
		ImageURL:      req.ImageURL,
		DailyCapacity: req.DailyCapacity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFarmView(farm))
}

// ownedFarm loads a farm and checks the actor may manage it.
func (s *Server) ownedFarm(r *http.Request, id uuid.UUID) (domain.Farm, error) {
	actor := actorFrom(r)

	farm, err := s.Farms.GetFarm(r.Context(), id)
	if err != nil {
		return domain.Farm{}, err
	}
	if farm.OwnerID != actor.ID && !actor.Has(domain.CapAdmin) {
		return domain.Farm{}, &domain.AuthorizationError{Message: "not the owner of this farm"}
	}
	return farm, nil
}

func (s *Server) updateFarm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	farm, err := s.ownedFarm(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req farmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DailyCapacity < 0 {
		writeError(w, &domain.ValidationError{Field: "daily_capacity", Message: "daily_capacity cannot be negative"})
		return
	}

	farm.Name = req.Name
	farm.Description = req.Description
	farm.Location = req.Location
	farm.Region = req.Region
	farm.Governorate = req.Governorate
	farm.Type = req.Type
	farm.PricePerKg = req.PricePerKg
	farm.PhoneNumber = req.PhoneNumber
	farm.ImageURL = req.ImageURL
	farm.DailyCapacity = req.DailyCapacity

	updated, err := s.Farms.UpdateFarm(r.Context(), farm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFarmView(updated))
}

func (s *Server) deleteFarm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.ownedFarm(r, id); err != nil {
		writeError(w, err)
		return
	}

	if err := s.Farms.DeleteFarm(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
