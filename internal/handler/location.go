package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// LocationHandler serves the shared location catalogue that devices pull.
type LocationHandler struct {
	locations repository.LocationRepository
	logger    zerolog.Logger
}

// NewLocationHandler creates a LocationHandler.
func NewLocationHandler(locations repository.LocationRepository, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

// HandleList returns every location, newest first.
//
// GET /api/locations
func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("listing locations")
		writeError(w, err)
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

// HandleGet returns one location by id.
//
// GET /api/locations/{id}
func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	location, err := h.locations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// createLocationRequest is the body of POST /api/locations.
type createLocationRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
}

// HandleCreate adds a location to the catalogue.
//
// POST /api/locations
func (h *LocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/location: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, fmt.Errorf("handler/location: %w",
			apperror.ValidationFailed("name", "location name is required")))
		return
	}

	location := &model.Location{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageURL:    req.ImageURL,
		Rating:      req.Rating,
	}
	if err := h.locations.Create(r.Context(), location); err != nil {
		h.logger.Error().Err(err).Msg("creating location")
		writeError(w, err)
		return
	}

	h.logger.Info().Str("location_id", location.ID).Str("name", location.Name).Msg("location created")

	writeJSON(w, http.StatusCreated, location)
}
