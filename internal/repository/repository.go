// Package repository declares the storage interfaces the services depend on.
// The sqlite subpackage is the only real implementation; tests substitute
// in-memory fakes.
package repository

import (
	"context"

	"github.com/raducm/tourism-app/internal/model"
)

// AccountRepository persists user accounts.
type AccountRepository interface {
	// Create inserts the account, generating its id. Returns an error
	// wrapping apperror.ErrConflict if the email is already registered.
	// On success the account's ID and CreatedAt are populated.
	Create(ctx context.Context, account *model.Account) error

	// GetByEmail returns the account registered under the normalized email,
	// password hash included. Wraps apperror.ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)

	// GetByIDAndEmail looks an account up by the exact (id, email) pair the
	// session carries. Wraps apperror.ErrNotFound when either changed.
	GetByIDAndEmail(ctx context.Context, id, email string) (*model.Account, error)

	// List returns every account, without password hashes.
	List(ctx context.Context) ([]model.Account, error)

	// ListWithHashes returns every account including password hashes;
	// only the sync push path needs this.
	ListWithHashes(ctx context.Context) ([]model.Account, error)

	// UsernameByEmail returns the display name for an email.
	UsernameByEmail(ctx context.Context, email string) (string, error)

	// UpsertFromSync replaces the whole row keyed by id, trusting the
	// remote payload (sync-server side of /api/sync/account).
	UpsertFromSync(ctx context.Context, account *model.Account) error
}

// LocationRepository persists locally tracked locations.
type LocationRepository interface {
	// Create inserts a new location, generating its id.
	Create(ctx context.Context, loc *model.Location) error

	// GetByID wraps apperror.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*model.Location, error)

	List(ctx context.Context) ([]model.Location, error)

	// UpsertFromSync replaces the row keyed by id (sync pull, and the
	// sync-server side of /api/sync/location).
	UpsertFromSync(ctx context.Context, loc *model.Location) error
}

// SavedLocationRepository persists bookmarks.
type SavedLocationRepository interface {
	// Save inserts the bookmark. Returns an error wrapping
	// apperror.ErrConflict if the (account, location) pair is already saved.
	Save(ctx context.Context, saved *model.SavedLocation) error

	// Remove deletes the bookmark for the pair; removing an absent
	// bookmark succeeds.
	Remove(ctx context.Context, accountID, locationID string) error

	IsSaved(ctx context.Context, accountID, locationID string) (bool, error)

	// ListForAccount returns bookmarks newest-first.
	ListForAccount(ctx context.Context, accountID string) ([]model.SavedLocation, error)
}

// VisitParams carries everything SaveVisitAndReview needs, including the
// location snapshot used when the location isn't tracked locally yet.
// Coordinates are required at the call site; the repository never invents
// placeholder values.
type VisitParams struct {
	AccountID    string
	LocationID   string
	LocationName string
	Latitude     float64
	Longitude    float64
	ImageURL     string
	Rating       int
	ReviewText   string
}

// VisitReviewRepository persists visits and their reviews.
type VisitReviewRepository interface {
	// SaveVisitAndReview upserts the one visit row for
	// (AccountID, LocationID): first call inserts, later calls overwrite
	// rating/text and refresh the timestamp. The lazy location insert and
	// the visit write happen in one transaction.
	SaveVisitAndReview(ctx context.Context, p VisitParams) (*model.VisitReview, error)

	// ListVisited returns the account's visits newest-first, with display
	// name/image recovered from locations or the saved snapshot.
	ListVisited(ctx context.Context, accountID string) ([]model.VisitedLocation, error)

	Stats(ctx context.Context, accountID string) (model.VisitStats, error)

	IsVisited(ctx context.Context, accountID, locationID string) (bool, error)

	// List returns every visit row; used by the sync push and admin views.
	List(ctx context.Context) ([]model.VisitReview, error)

	// ListForLocation and ListForAccount return reviews joined with
	// usernames and location names (sync-server review listings).
	ListForLocation(ctx context.Context, locationID string) ([]model.ReviewDetail, error)
	ListForAccount(ctx context.Context, accountID string) ([]model.ReviewDetail, error)

	// UpsertFromSync replaces the row keyed by id (sync-server side of
	// /api/sync/review).
	UpsertFromSync(ctx context.Context, review *model.VisitReview) error
}
