package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// Verifier cross-checks a stored session against the accounts table. The
// session blob is the authority for "who is logged in", but its truth is
// subordinate to a live account lookup: accounts deleted server-side or by
// another process must not keep a working session.
type Verifier struct {
	store    *Store
	accounts repository.AccountRepository
	logger   zerolog.Logger
}

// NewVerifier creates a Verifier over the given store and account repository.
func NewVerifier(store *Store, accounts repository.AccountRepository, logger zerolog.Logger) *Verifier {
	return &Verifier{store: store, accounts: accounts, logger: logger}
}

// Verify validates sess against the accounts table.
//
// nil in, nil out. If the (id, email) pair no longer resolves to an account
// row, or the lookup fails for any reason, the stored session is cleared
// and nil is returned, forcing a re-login. Erring toward "signed out" beats
// trusting a session the database can't vouch for. On success the session
// is returned unchanged; no fields are refreshed.
func (v *Verifier) Verify(ctx context.Context, sess *model.Session) *model.Session {
	if sess == nil {
		return nil
	}

	_, err := v.accounts.GetByIDAndEmail(ctx, sess.Account.ID, sess.Email)
	if err != nil {
		v.logger.Info().
			Err(err).
			Str("account_id", sess.Account.ID).
			Msg("stored session failed verification, clearing")
		if clearErr := v.store.Clear(); clearErr != nil {
			v.logger.Error().Err(clearErr).Msg("clearing invalid session")
		}
		return nil
	}

	return sess
}
