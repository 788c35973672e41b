package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/handler"
	"github.com/raducm/tourism-app/internal/logger"
	sqliteRepo "github.com/raducm/tourism-app/internal/repository/sqlite"
)

// newTestDeps opens a throwaway database and the services the handlers need.
// A file in t.TempDir() rather than ":memory:" keeps every pooled connection
// on the same database.
func newTestDeps(t *testing.T) (*sqliteRepo.DB, *auth.PasswordService, *auth.TokenService) {
	t.Helper()

	db, err := sqliteRepo.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	require.NoError(t, err)

	return db, auth.NewPasswordServiceForTest(4), tokens
}

func newAuthHandler(t *testing.T) (*handler.AuthHandler, *sqliteRepo.DB) {
	t.Helper()
	db, passwords, tokens := newTestDeps(t)
	log := logger.NewWriter(io.Discard, "test")
	return handler.NewAuthHandler(db.Accounts(), passwords, tokens, log), db
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleSignUp(t *testing.T) {
	t.Run("valid signup", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := postJSON(t, h.HandleSignUp, "/api/auth/signup",
			`{"email":"Ana@Example.com","password":"hunter22","username":"ana"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var res struct {
			Session struct {
				Account struct {
					ID       string `json:"accid"`
					Username string `json:"username"`
				} `json:"account"`
				Email string `json:"email"`
			} `json:"session"`
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "ana@example.com", res.Session.Email)
		assert.Equal(t, "ana", res.Session.Account.Username)
		assert.NotEmpty(t, res.Session.Account.ID)
		assert.NotEmpty(t, res.Token)
		assert.NotContains(t, rr.Body.String(), "password_hash")
	})

	t.Run("short password", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := postJSON(t, h.HandleSignUp, "/api/auth/signup",
			`{"email":"b@example.com","password":"12345"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := postJSON(t, h.HandleSignUp, "/api/auth/signup",
			`{"email":"not-an-email","password":"hunter22"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		first := postJSON(t, h.HandleSignUp, "/api/auth/signup",
			`{"email":"dup@example.com","password":"hunter22"}`)
		require.Equal(t, http.StatusCreated, first.Code)

		second := postJSON(t, h.HandleSignUp, "/api/auth/signup",
			`{"email":"DUP@example.com","password":"hunter22"}`)
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		h, _ := newAuthHandler(t)

		rr := postJSON(t, h.HandleSignUp, "/api/auth/signup", `{"email": `)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleSignIn(t *testing.T) {
	h, _ := newAuthHandler(t)
	created := postJSON(t, h.HandleSignUp, "/api/auth/signup",
		`{"email":"mihai@example.com","password":"hunter22","username":"mihai"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	t.Run("valid signin", func(t *testing.T) {
		rr := postJSON(t, h.HandleSignIn, "/api/auth/signin",
			`{"email":"mihai@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"token"`)
	})

	t.Run("wrong password and unknown email are identical", func(t *testing.T) {
		wrongPassword := postJSON(t, h.HandleSignIn, "/api/auth/signin",
			`{"email":"mihai@example.com","password":"not-it"}`)
		unknownEmail := postJSON(t, h.HandleSignIn, "/api/auth/signin",
			`{"email":"ghost@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})
}
