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

var _ repository.SavedLocationRepository = (*SavedRepo)(nil)

// SavedRepo persists bookmarks. Obtain one from DB.Saved().
type SavedRepo struct {
	conn *sql.DB
}

// Save inserts the bookmark with its denormalized snapshot.
//
// Uniqueness of the (account, location) pair is enforced by the schema, not
// a prior SELECT: ON CONFLICT DO NOTHING plus a RowsAffected check means two
// racing saves produce one row and one AlreadySaved error instead of two
// rows. A saved_id collision retries with a fresh id.
func (r *SavedRepo) Save(ctx context.Context, saved *model.SavedLocation) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := ident.Saved()

		res, err := r.conn.ExecContext(ctx,
			`INSERT INTO saved_locations
				(saved_id, account_id, location_id, location_name,
				 location_image_url, location_rating, location_description)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(account_id, location_id) DO NOTHING`,
			id,
			saved.AccountID,
			saved.LocationID,
			saved.Name,
			nullIfEmpty(saved.ImageURL),
			saved.Rating,
			nullIfEmpty(saved.Description),
		)
		switch {
		case err == nil:
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: saving location: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("sqlite: saving location: %w", apperror.AlreadySaved(saved.LocationID))
			}

			created, err := r.getByID(ctx, id)
			if err != nil {
				return fmt.Errorf("sqlite: reading back saved location %s: %w", id, err)
			}
			*saved = *created
			return nil
		case isUniqueViolation(err, "saved_locations.saved_id"):
			continue
		default:
			return fmt.Errorf("sqlite: saving location: %w", err)
		}
	}
	return errors.New("sqlite: exhausted saved-location id space")
}

// Remove deletes the bookmark for the pair. Removing an absent bookmark is
// a successful no-op, so a double-tap on "unsave" stays silent.
func (r *SavedRepo) Remove(ctx context.Context, accountID, locationID string) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM saved_locations WHERE account_id = ? AND location_id = ?`,
		accountID, locationID)
	if err != nil {
		return fmt.Errorf("sqlite: removing saved location: %w", err)
	}
	return nil
}

// IsSaved reports whether the pair is bookmarked.
func (r *SavedRepo) IsSaved(ctx context.Context, accountID, locationID string) (bool, error) {
	var one int
	err := r.conn.QueryRowContext(ctx,
		`SELECT 1 FROM saved_locations WHERE account_id = ? AND location_id = ?`,
		accountID, locationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking saved location: %w", err)
	}
	return true, nil
}

// ListForAccount returns the account's bookmarks, most recently saved first.
func (r *SavedRepo) ListForAccount(ctx context.Context, accountID string) ([]model.SavedLocation, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT saved_id, account_id, location_id, location_name,
			location_image_url, location_rating, location_description, saved_at
		 FROM saved_locations
		 WHERE account_id = ?
		 ORDER BY saved_at DESC, rowid DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing saved locations: %w", err)
	}
	defer rows.Close()

	var saved []model.SavedLocation
	for rows.Next() {
		s, err := scanSaved(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning saved location: %w", err)
		}
		saved = append(saved, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating saved locations: %w", err)
	}
	return saved, nil
}

func (r *SavedRepo) getByID(ctx context.Context, id string) (*model.SavedLocation, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT saved_id, account_id, location_id, location_name,
			location_image_url, location_rating, location_description, saved_at
		 FROM saved_locations WHERE saved_id = ?`, id)
	return scanSaved(row.Scan)
}

func scanSaved(scan func(...any) error) (*model.SavedLocation, error) {
	var (
		s           model.SavedLocation
		imageURL    sql.NullString
		rating      sql.NullFloat64
		description sql.NullString
		savedAt     string
	)
	err := scan(&s.ID, &s.AccountID, &s.LocationID, &s.Name,
		&imageURL, &rating, &description, &savedAt)
	if err != nil {
		return nil, err
	}

	s.ImageURL = imageURL.String
	s.Rating = rating.Float64
	s.Description = description.String
	if s.SavedAt, err = parseTime(savedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
