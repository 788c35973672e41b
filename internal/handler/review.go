package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// ReviewHandler serves the server-side review listings and accepts reviews
// posted directly against the shared database.
type ReviewHandler struct {
	visits repository.VisitReviewRepository
	logger zerolog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(visits repository.VisitReviewRepository, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{visits: visits, logger: logger}
}

// HandleListForLocation returns a location's reviews with reviewer usernames.
//
// GET /api/locations/{id}/reviews
func (h *ReviewHandler) HandleListForLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reviews, err := h.visits.ListForLocation(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("location_id", id).Msg("listing reviews for location")
		writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []model.ReviewDetail{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleListForAccount returns everything one account has reviewed.
//
// GET /api/accounts/{id}/reviews
func (h *ReviewHandler) HandleListForAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reviews, err := h.visits.ListForAccount(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", id).Msg("listing reviews for account")
		writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []model.ReviewDetail{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// createReviewRequest is the body of POST /api/reviews. The account id comes
// from the bearer token, not the body.
type createReviewRequest struct {
	LocationID   string  `json:"location_id"`
	LocationName string  `json:"location_name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ImageURL     string  `json:"image_url"`
	Rating       int     `json:"rating"`
	ReviewText   string  `json:"review_text"`
}

// HandleCreate records a visit-with-review for the authenticated account.
//
// POST /api/reviews (token required)
//
// Posting twice for the same location overwrites the earlier rating and text.
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "missing or invalid token",
		})
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/review: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}
	if req.LocationID == "" {
		writeError(w, fmt.Errorf("handler/review: %w",
			apperror.ValidationFailed("location_id", "location_id is required")))
		return
	}

	review, err := h.visits.SaveVisitAndReview(r.Context(), repository.VisitParams{
		AccountID:    accountID,
		LocationID:   req.LocationID,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ImageURL:     req.ImageURL,
		Rating:       req.Rating,
		ReviewText:   req.ReviewText,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info().
		Str("account_id", accountID).
		Str("location_id", req.LocationID).
		Int("rating", req.Rating).
		Msg("review recorded")

	writeJSON(w, http.StatusCreated, review)
}
