package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
	"github.com/raducm/tourism-app/internal/service"
)

// AuthHandler serves the server-side signup/signin mirrors. Devices work
// against their local database first; these endpoints let the same
// credentials work on a fresh device.
type AuthHandler struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    zerolog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// credentialsRequest is the body of both signup and signin. Username is
// ignored on signin.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// sessionResponse is the success shape for both endpoints: the session as the
// device stores it, plus a sync-API token.
type sessionResponse struct {
	Session model.Session `json:"session"`
	Token   string        `json:"token"`
}

// HandleSignUp registers an account on the server.
//
// POST /api/auth/signup
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/auth: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}

	email, err := service.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.Password) < 6 {
		writeError(w, fmt.Errorf("handler/auth: %w",
			apperror.ValidationFailed("password", "password must be at least 6 characters")))
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	username := req.Username
	if username == "" {
		username = email[:strings.Index(email, "@")]
	}

	account := &model.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info().
		Str("account_id", account.ID).
		Str("username", account.Username).
		Msg("account registered")

	h.respondWithSession(w, http.StatusCreated, account)
}

// HandleSignIn authenticates against the server's account mirror.
//
// POST /api/auth/signin
//
// Unknown email and wrong password produce byte-identical responses.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("handler/auth: %w",
			apperror.ValidationFailed("body", "invalid JSON in request body")))
		return
	}

	email, err := service.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, apperror.InvalidCredentials())
		return
	}
	if !h.passwords.Verify(account.PasswordHash, req.Password) {
		writeError(w, apperror.InvalidCredentials())
		return
	}

	h.logger.Info().Str("account_id", account.ID).Msg("account signed in")

	h.respondWithSession(w, http.StatusOK, account)
}

// respondWithSession mints a token and writes the session payload. The
// password hash is blanked before serialization as a second line of defence
// behind the model's json:"-" tag.
func (h *AuthHandler) respondWithSession(w http.ResponseWriter, status int, account *model.Account) {
	token, err := h.tokens.Generate(account.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", account.ID).Msg("minting token")
		writeError(w, err)
		return
	}

	public := *account
	public.PasswordHash = ""

	writeJSON(w, status, sessionResponse{
		Session: model.Session{Account: public, Email: public.Email},
		Token:   token,
	})
}
