// Package sync pushes local rows to the remote sync service and pulls its
// location catalogue, best-effort.
//
// Nothing here is load-bearing: every operation is gated on a locally stored
// enabled flag and a health probe, and a failed or skipped sync never blocks
// or rolls back a local write. The worst case is a device that is simply
// out of date.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/kv"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// Keys in the device key-value store.
const (
	enabledKey  = "sync_enabled"
	lastSyncKey = "last_sync"
	tokenKey    = "sync_token"
)

var (
	// ErrDisabled means the user has not opted into sync on this device.
	ErrDisabled = errors.New("sync: sync is disabled")
	// ErrServerUnavailable means the health probe failed.
	ErrServerUnavailable = errors.New("sync: server unavailable")
)

// Config configures the sync client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the sync server. Safe for use from one goroutine; the
// device model has no concurrent writers.
type Client struct {
	http      *resty.Client
	state     *kv.Store
	accounts  repository.AccountRepository
	locations repository.LocationRepository
	visits    repository.VisitReviewRepository
	logger    zerolog.Logger
}

// New builds a Client over the given repositories and device state store.
func New(
	cfg Config,
	state *kv.Store,
	accounts repository.AccountRepository,
	locations repository.LocationRepository,
	visits repository.VisitReviewRepository,
	logger zerolog.Logger,
) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:      httpClient,
		state:     state,
		accounts:  accounts,
		locations: locations,
		visits:    visits,
		logger:    logger,
	}
}

// Health probes the server. Any transport error or non-200 counts as down.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil || resp.StatusCode() != 200 {
		return ErrServerUnavailable
	}
	return nil
}

// Enabled reports the locally stored opt-in flag; unset or unreadable means
// disabled.
func (c *Client) Enabled() bool {
	raw, err := c.state.Get(enabledKey)
	if err != nil || raw == nil {
		return false
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false
	}
	return enabled
}

// SetEnabled stores the opt-in flag.
func (c *Client) SetEnabled(enabled bool) error {
	raw, _ := json.Marshal(enabled)
	if err := c.state.Set(enabledKey, raw); err != nil {
		return fmt.Errorf("sync: storing enabled flag: %w", err)
	}
	return nil
}

// LastSync returns when a sync last completed on this device.
func (c *Client) LastSync() (time.Time, bool) {
	raw, err := c.state.Get(lastSyncKey)
	if err != nil || raw == nil {
		return time.Time{}, false
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *Client) markSynced() {
	raw, _ := json.Marshal(time.Now().UTC())
	if err := c.state.Set(lastSyncKey, raw); err != nil {
		c.logger.Warn().Err(err).Msg("storing last sync time")
	}
}

// gate is the shared precondition for every sync operation.
func (c *Client) gate(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.Health(ctx)
}

// accountPushResponse is the body of POST /api/sync/account. The token
// authorizes the follow-up location/review pushes.
type accountPushResponse struct {
	Account model.Account `json:"account"`
	Token   string        `json:"token"`
}

// pushAccount mirrors one account (hash included) and refreshes the stored
// sync token.
func (c *Client) pushAccount(ctx context.Context, account model.Account) error {
	payload := map[string]any{
		"accid":         account.ID,
		"username":      account.Username,
		"email":         account.Email,
		"password_hash": account.PasswordHash,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
	}

	var body accountPushResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&body).
		Post("/api/sync/account")
	if err != nil {
		return fmt.Errorf("sync: pushing account %s: %w", account.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("sync: pushing account %s: server returned %s", account.ID, resp.Status())
	}

	if body.Token != "" {
		raw, _ := json.Marshal(body.Token)
		if err := c.state.Set(tokenKey, raw); err != nil {
			c.logger.Warn().Err(err).Msg("storing sync token")
		}
	}
	return nil
}

// token returns the stored sync token, if any.
func (c *Client) token() string {
	raw, err := c.state.Get(tokenKey)
	if err != nil || raw == nil {
		return ""
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t
}

// SyncAccountOnAuth mirrors the account right after sign-up/sign-in.
// Never fails the caller: auth must work offline.
func (c *Client) SyncAccountOnAuth(ctx context.Context, account model.Account) {
	if err := c.gate(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("skipping account sync")
		return
	}
	if err := c.pushAccount(ctx, account); err != nil {
		c.logger.Warn().Err(err).Msg("account sync failed")
	}
}

// PushAll mirrors every local account, location and visit row to the server,
// in that order so the server-side foreign keys always resolve.
func (c *Client) PushAll(ctx context.Context) error {
	if err := c.gate(ctx); err != nil {
		return err
	}

	accounts, err := c.accounts.ListWithHashes(ctx)
	if err != nil {
		return fmt.Errorf("sync: loading accounts: %w", err)
	}
	for _, a := range accounts {
		if err := c.pushAccount(ctx, a); err != nil {
			return err
		}
	}

	locations, err := c.locations.List(ctx)
	if err != nil {
		return fmt.Errorf("sync: loading locations: %w", err)
	}
	for _, l := range locations {
		if err := c.pushJSON(ctx, "/api/sync/location", map[string]any{
			"locid":       l.ID,
			"name":        l.Name,
			"description": l.Description,
			"latitude":    l.Latitude,
			"longitude":   l.Longitude,
			"image_url":   l.ImageURL,
			"rating":      l.Rating,
			"created_at":  l.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("sync: pushing location %s: %w", l.ID, err)
		}
	}

	reviews, err := c.visits.List(ctx)
	if err != nil {
		return fmt.Errorf("sync: loading reviews: %w", err)
	}
	for _, v := range reviews {
		if err := c.pushJSON(ctx, "/api/sync/review", map[string]any{
			"revid":       v.ID,
			"account_id":  v.AccountID,
			"location_id": v.LocationID,
			"rating":      v.Rating,
			"review_text": v.ReviewText,
			"visited_at":  v.VisitedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("sync: pushing review %s: %w", v.ID, err)
		}
	}

	c.markSynced()
	return nil
}

// pushJSON posts one row to a token-protected sync endpoint.
func (c *Client) pushJSON(ctx context.Context, path string, payload map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(c.token()).
		SetBody(payload).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("server returned %s", resp.Status())
	}
	return nil
}

// remoteLocation is one element of GET /api/locations.
type remoteLocation struct {
	ID          string  `json:"locid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
	CreatedAt   string  `json:"created_at"`
}

// PullLocations replaces the local copies of the server's location
// catalogue. Server wins: rows are upserted by id, local-only rows are kept.
func (c *Client) PullLocations(ctx context.Context) error {
	if err := c.gate(ctx); err != nil {
		return err
	}

	var remote []remoteLocation
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&remote).
		Get("/api/locations")
	if err != nil {
		return fmt.Errorf("sync: fetching locations: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sync: fetching locations: server returned %s", resp.Status())
	}

	for _, rl := range remote {
		createdAt, err := time.Parse(time.RFC3339, rl.CreatedAt)
		if err != nil {
			createdAt = time.Now().UTC()
		}
		loc := &model.Location{
			ID:          rl.ID,
			Name:        rl.Name,
			Description: rl.Description,
			Latitude:    rl.Latitude,
			Longitude:   rl.Longitude,
			ImageURL:    rl.ImageURL,
			Rating:      rl.Rating,
			CreatedAt:   createdAt,
		}
		if err := c.locations.UpsertFromSync(ctx, loc); err != nil {
			return err
		}
	}

	c.markSynced()
	return nil
}
