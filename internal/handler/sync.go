package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// contextKey is unexported so no other package can collide with our context
// values.
type contextKey string

const accountIDKey contextKey = "accountID"

// AccountIDFromContext returns the account id RequireToken stored for the
// request, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok
}

// RequireToken rejects requests without a valid bearer token and stashes the
// token's account id in the request context.
func RequireToken(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenStr == "" {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "missing bearer token",
				})
				return
			}

			accountID, err := tokens.Validate(tokenStr)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "invalid or expired token",
				})
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SyncHandler accepts row mirrors pushed by devices.
type SyncHandler struct {
	accounts  repository.AccountRepository
	locations repository.LocationRepository
	visits    repository.VisitReviewRepository
	tokens    *auth.TokenService
	logger    zerolog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(
	accounts repository.AccountRepository,
	locations repository.LocationRepository,
	visits repository.VisitReviewRepository,
	tokens *auth.TokenService,
	logger zerolog.Logger,
) *SyncHandler {
	return &SyncHandler{
		accounts:  accounts,
		locations: locations,
		visits:    visits,
		tokens:    tokens,
		logger:    logger,
	}
}

// HandleHealth is the probe devices hit before attempting any sync.
//
// GET /api/health
func (h *SyncHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accountPayload is the body of POST /api/sync/account: the full row as the
// device stores it, hash included.
type accountPayload struct {
	ID           string `json:"accid"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
}

// HandleAccount upserts a device's account mirror and answers with a token
// for the follow-up pushes.
//
// POST /api/sync/account
//
// This endpoint is open: it is how a device obtains its first token, and the
// payload only ever moves an account towards the device's current state.
func (h *SyncHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	var req accountPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}
	if req.ID == "" || req.Email == "" || req.PasswordHash == "" {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "accid, email and password_hash are required")))
		return
	}

	account := &model.Account{
		ID:           req.ID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		CreatedAt:    parseSyncTime(req.CreatedAt),
	}
	if err := h.accounts.UpsertFromSync(r.Context(), account); err != nil {
		h.logger.Error().Err(err).Str("account_id", req.ID).Msg("upserting account")
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(account.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", account.ID).Msg("minting token")
		writeError(w, err)
		return
	}

	h.logger.Info().Str("account_id", account.ID).Msg("account mirrored")

	public := *account
	public.PasswordHash = ""
	writeJSON(w, http.StatusOK, map[string]any{
		"account": public,
		"token":   token,
	})
}

// locationPayload is the body of POST /api/sync/location.
type locationPayload struct {
	ID          string  `json:"locid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
	CreatedAt   string  `json:"created_at"`
}

// HandleLocation upserts one pushed location row.
//
// POST /api/sync/location (token required)
func (h *SyncHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "locid and name are required")))
		return
	}

	loc := &model.Location{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageURL:    req.ImageURL,
		Rating:      req.Rating,
		CreatedAt:   parseSyncTime(req.CreatedAt),
	}
	if err := h.locations.UpsertFromSync(r.Context(), loc); err != nil {
		h.logger.Error().Err(err).Str("location_id", req.ID).Msg("upserting location")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"locid": loc.ID})
}

// reviewPayload is the body of POST /api/sync/review.
type reviewPayload struct {
	ID         string `json:"revid"`
	AccountID  string `json:"account_id"`
	LocationID string `json:"location_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	VisitedAt  string `json:"visited_at"`
}

// HandleReview upserts one pushed visit/review row. The row is keyed by the
// (account, location) pair, so replays and re-pushes collapse into one row.
//
// POST /api/sync/review (token required)
func (h *SyncHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}
	if req.ID == "" || req.AccountID == "" || req.LocationID == "" {
		writeError(w, fmt.Errorf("handler/sync: %w",
			apperror.ValidationFailed("body", "revid, account_id and location_id are required")))
		return
	}

	review := &model.VisitReview{
		ID:         req.ID,
		AccountID:  req.AccountID,
		LocationID: req.LocationID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		VisitedAt:  parseSyncTime(req.VisitedAt),
	}
	if err := h.visits.UpsertFromSync(r.Context(), review); err != nil {
		h.logger.Error().Err(err).Str("review_id", req.ID).Msg("upserting review")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"revid": review.ID})
}

// parseSyncTime accepts the RFC3339 stamps devices push; a missing or
// malformed stamp falls back to now rather than failing the whole row.
func parseSyncTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
