// Package service holds the business logic between the app's entry points
// and the repositories.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
	"github.com/raducm/tourism-app/internal/session"
)

// emailPattern is deliberately loose: one @, something on both sides, a dot
// in the domain. Real validation happens when mail is actually sent; this
// only catches obvious typos before any I/O.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountSyncer is the slice of the sync client the auth flow needs. Pushes
// are best-effort: implementations never return an error, they log and move on.
type AccountSyncer interface {
	SyncAccountOnAuth(ctx context.Context, account model.Account)
}

// AuthService orchestrates sign-up, sign-in and sign-out: it owns email
// normalization, the credential check, and the session lifecycle around the
// account repository.
type AuthService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	sessions  *session.Store
	verifier  *session.Verifier
	syncer    AccountSyncer // optional
	logger    zerolog.Logger
}

// NewAuthService wires an AuthService. syncer may be nil when sync is not
// configured; everything else is required.
func NewAuthService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	sessions *session.Store,
	verifier *session.Verifier,
	syncer AccountSyncer,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		passwords: passwords,
		sessions:  sessions,
		verifier:  verifier,
		syncer:    syncer,
		logger:    logger,
	}
}

// SignUp registers a new account and signs it in.
//
// The email is lowercased and trimmed before anything else, so "A@B.com" and
// "a@b.com " are the same identity. Username defaults to the email's local
// part. On success the new session is already persisted.
func (s *AuthService) SignUp(ctx context.Context, email, password, username string) (*model.Session, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	// Friendly duplicate check before paying for the hash. The UNIQUE
	// constraint on the email column backstops the race this SELECT leaves
	// open: a concurrent signup loses with the same DuplicateEmail error.
	if _, err := s.accounts.GetByEmail(ctx, normalized); err == nil {
		return nil, fmt.Errorf("service/auth: %w", apperror.DuplicateEmail(normalized))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	if username = strings.TrimSpace(username); username == "" {
		username = normalized[:strings.Index(normalized, "@")]
	}

	account := &model.Account{
		Username:     username,
		Email:        normalized,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Str("username", account.Username).
		Msg("account created")

	return s.establishSession(ctx, account)
}

// SignIn authenticates an existing account and persists a fresh session.
//
// An unknown email and a wrong password fail with the identical
// InvalidCredentials error; callers must not be able to tell which happened.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", apperror.InvalidCredentials())
	}

	if !s.passwords.Verify(account.PasswordHash, password) {
		return nil, fmt.Errorf("service/auth: %w", apperror.InvalidCredentials())
	}

	s.logger.Info().Str("account_id", account.ID).Msg("signed in")

	return s.establishSession(ctx, account)
}

// SignOut discards the stored session. Signing out while signed out succeeds.
func (s *AuthService) SignOut() error {
	if err := s.sessions.Clear(); err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}
	return nil
}

// Restore loads the stored session and validates it against the accounts
// table, the cold-start path. Returns nil when nobody is (verifiably)
// signed in.
func (s *AuthService) Restore(ctx context.Context) (*model.Session, error) {
	sess, err := s.sessions.Get()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return s.verifier.Verify(ctx, sess), nil
}

// establishSession builds the session for account, persists it and kicks off
// the best-effort account push.
func (s *AuthService) establishSession(ctx context.Context, account *model.Account) (*model.Session, error) {
	public := *account
	public.PasswordHash = "" // the session blob is plain JSON on disk

	sess := &model.Session{Account: public, Email: public.Email}
	if err := s.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	if s.syncer != nil {
		// Hash included: the server mirror is what lets the same
		// credentials sign in on another device.
		s.syncer.SyncAccountOnAuth(ctx, *account)
	}

	return sess, nil
}

// NormalizeEmail lowercases and trims the address and validates its shape.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(normalized) {
		return "", fmt.Errorf("service/auth: %w",
			apperror.ValidationFailed("email", "invalid email format (must be name@domain.com)"))
	}
	return normalized, nil
}
