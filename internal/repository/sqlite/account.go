package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/ident"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// maxIDAttempts bounds the retry loop for short-id collisions. Four random
// digits per prefix means collisions are expected at scale; five straight
// collisions means the table is effectively full and the error is real.
const maxIDAttempts = 5

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo persists accounts. Obtain one from DB.Accounts().
type AccountRepo struct {
	conn *sql.DB
}

// Create inserts the account under a freshly generated id and reads the row
// back so the caller sees the column-default created_at.
//
// The email column's UNIQUE constraint is the real duplicate guard; the
// service layer's pre-check only exists to produce a friendlier error before
// paying for the bcrypt hash. Id collisions retry with a new id.
func (r *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := ident.Account()

		_, err := r.conn.ExecContext(ctx,
			`INSERT INTO accounts (accid, username, password_hash, email)
			 VALUES (?, ?, ?, ?)`,
			id,
			account.Username,
			account.PasswordHash,
			account.Email,
		)
		switch {
		case err == nil:
			created, err := r.getBy(ctx, `accid = ?`, id)
			if err != nil {
				return fmt.Errorf("sqlite: reading back account %s: %w", id, err)
			}
			*account = *created
			return nil
		case isUniqueViolation(err, "accounts.email"):
			return fmt.Errorf("sqlite: creating account: %w", apperror.DuplicateEmail(account.Email))
		case isUniqueViolation(err, "accounts.accid"):
			continue
		default:
			return fmt.Errorf("sqlite: creating account: %w", err)
		}
	}
	return errors.New("sqlite: exhausted account id space")
}

// GetByEmail returns the account for the normalized email, hash included.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getBy(ctx, `email = ?`, email)
}

// GetByIDAndEmail looks up the exact pair a session carries; a changed email
// or deleted account both come back as not-found.
func (r *AccountRepo) GetByIDAndEmail(ctx context.Context, id, email string) (*model.Account, error) {
	return r.getBy(ctx, `accid = ? AND email = ?`, id, email)
}

func (r *AccountRepo) getBy(ctx context.Context, where string, args ...any) (*model.Account, error) {
	var (
		a         model.Account
		createdAt string
	)
	err := r.conn.QueryRowContext(ctx,
		`SELECT accid, username, password_hash, email, created_at
		 FROM accounts WHERE `+where,
		args...,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("account", fmt.Sprint(args[0])))
		}
		return nil, fmt.Errorf("sqlite: getting account: %w", err)
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every account without password hashes, oldest first.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx, false)
}

// ListWithHashes returns every account including password hashes. Only the
// sync push uses this; the server needs the hashes so the same credentials
// work on another device.
func (r *AccountRepo) ListWithHashes(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx, true)
}

func (r *AccountRepo) list(ctx context.Context, withHashes bool) ([]model.Account, error) {
	hashCol := "''"
	if withHashes {
		hashCol = "password_hash"
	}

	rows, err := r.conn.QueryContext(ctx,
		`SELECT accid, username, `+hashCol+`, email, created_at
		 FROM accounts ORDER BY created_at ASC, accid ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var (
			a         model.Account
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning account: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}
	return accounts, nil
}

// UsernameByEmail returns the display name registered under email.
func (r *AccountRepo) UsernameByEmail(ctx context.Context, email string) (string, error) {
	var username string
	err := r.conn.QueryRowContext(ctx,
		`SELECT username FROM accounts WHERE email = ?`, email,
	).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("sqlite: %w", apperror.NotFound("account", email))
		}
		return "", fmt.Errorf("sqlite: getting username for %s: %w", email, err)
	}
	return username, nil
}

// UpsertFromSync replaces the whole row keyed by id with the remote payload.
// The pushing device's copy wins, no merging. ON CONFLICT DO UPDATE rather
// than INSERT OR REPLACE: REPLACE deletes the old row first, which the
// foreign keys from visits_and_reviews would veto.
func (r *AccountRepo) UpsertFromSync(ctx context.Context, account *model.Account) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO accounts (accid, username, password_hash, email, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(accid) DO UPDATE SET
			username      = excluded.username,
			password_hash = excluded.password_hash,
			email         = excluded.email,
			created_at    = excluded.created_at`,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.Email,
		formatTime(account.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: syncing account %s: %w", account.ID, err)
	}
	return nil
}
