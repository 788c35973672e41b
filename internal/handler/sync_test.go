package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raducm/tourism-app/internal/handler"
	"github.com/raducm/tourism-app/internal/logger"
)

func TestHandleAccount_PushAndToken(t *testing.T) {
	db, _, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	h := handler.NewSyncHandler(db.Accounts(), db.Locations(), db.Visits(), tokens, log)

	body := `{
		"accid": "T4821",
		"username": "ana",
		"email": "ana@example.com",
		"password_hash": "$2a$04$devicehash",
		"created_at": "2025-06-01T10:00:00Z"
	}`
	rr := postJSON(t, h.HandleAccount, "/api/sync/account", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Account struct {
			ID string `json:"accid"`
		} `json:"account"`
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "T4821", res.Account.ID)
	assert.NotEmpty(t, res.Token)

	// The pushed row landed, hash and all, and the token names the account.
	account, err := db.Accounts().GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$devicehash", account.PasswordHash)

	accountID, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "T4821", accountID)

	// Re-pushing the same account updates in place.
	rr = postJSON(t, h.HandleAccount, "/api/sync/account", body)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleAccount_RejectsIncompletePayload(t *testing.T) {
	db, _, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	h := handler.NewSyncHandler(db.Accounts(), db.Locations(), db.Visits(), tokens, log)

	rr := postJSON(t, h.HandleAccount, "/api/sync/account",
		`{"accid":"T1000","email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequireToken(t *testing.T) {
	db, _, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	h := handler.NewSyncHandler(db.Accounts(), db.Locations(), db.Visits(), tokens, log)

	protected := handler.RequireToken(tokens)(http.HandlerFunc(h.HandleLocation))

	locationBody := `{
		"locid": "L2001",
		"name": "Citadel",
		"latitude": 46.07,
		"longitude": 23.57,
		"created_at": "2025-06-01T10:00:00Z"
	}`

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sync/location", bytes.NewBufferString(locationBody))
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sync/location", bytes.NewBufferString(locationBody))
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tokens.Generate("T4821")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/sync/location", bytes.NewBufferString(locationBody))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		loc, err := db.Locations().GetByID(context.Background(), "L2001")
		require.NoError(t, err)
		assert.Equal(t, "Citadel", loc.Name)
	})
}

func TestHandleReview_SyncPush(t *testing.T) {
	db, _, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	h := handler.NewSyncHandler(db.Accounts(), db.Locations(), db.Visits(), tokens, log)

	// Reviews reference accounts and locations, so mirror those first, in
	// the same order the device pushes.
	rr := postJSON(t, h.HandleAccount, "/api/sync/account",
		`{"accid":"T1111","username":"ana","email":"ana@example.com","password_hash":"$2a$04$h","created_at":"2025-06-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = postJSON(t, h.HandleLocation, "/api/sync/location",
		`{"locid":"L2222","name":"Citadel","latitude":46.07,"longitude":23.57,"created_at":"2025-06-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = postJSON(t, h.HandleReview, "/api/sync/review",
		`{"revid":"R3333","account_id":"T1111","location_id":"L2222","rating":5,"review_text":"grand","visited_at":"2025-06-02T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	reviews, err := db.Visits().ListForLocation(context.Background(), "L2222")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "R3333", reviews[0].ID)
	assert.Equal(t, "ana", reviews[0].Username)
	assert.Equal(t, 5, reviews[0].Rating)
}

func TestHandleHealth(t *testing.T) {
	db, _, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	h := handler.NewSyncHandler(db.Accounts(), db.Locations(), db.Visits(), tokens, log)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.HandleHealth(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
