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

var _ repository.VisitReviewRepository = (*VisitRepo)(nil)

// VisitRepo persists visits and reviews. Obtain one from DB.Visits().
type VisitRepo struct {
	conn *sql.DB
}

// SaveVisitAndReview records (or re-records) a visit.
//
// The lazy location insert and the visit upsert run in one transaction, so a
// crash can't leave a visit row pointing at a location the database has never
// heard of; the visit's foreign key always has a row to land on.
//
// The upsert is keyed on the unique (account_id, location_id) index: the
// first call inserts, every later call overwrites rating and review text and
// refreshes visited_at in place. One review per account per location, no
// history.
func (r *VisitRepo) SaveVisitAndReview(ctx context.Context, p repository.VisitParams) (*model.VisitReview, error) {
	if p.Rating < 1 || p.Rating > 5 {
		return nil, fmt.Errorf("sqlite: %w",
			apperror.ValidationFailed("rating", "rating must be between 1 and 5"))
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning visit transaction: %w", err)
	}
	defer tx.Rollback()

	// Track the location locally if the feed row was never persisted.
	// Coordinates come from the caller; an existing row is left untouched.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO locations (locid, name, latitude, longitude, image_url)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(locid) DO NOTHING`,
		p.LocationID,
		p.LocationName,
		p.Latitude,
		p.Longitude,
		nullIfEmpty(p.ImageURL),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tracking location %s: %w", p.LocationID, err)
	}

	for attempt := 0; ; attempt++ {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO visits_and_reviews (revid, account_id, location_id, rating, review_text)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(account_id, location_id) DO UPDATE SET
				rating      = excluded.rating,
				review_text = excluded.review_text,
				visited_at  = datetime('now')`,
			ident.Review(),
			p.AccountID,
			p.LocationID,
			p.Rating,
			nullIfEmpty(p.ReviewText),
		)
		if err == nil {
			break
		}
		if isUniqueViolation(err, "visits_and_reviews.revid") && attempt < maxIDAttempts {
			continue
		}
		return nil, fmt.Errorf("sqlite: saving visit: %w", err)
	}

	review, err := scanVisit(tx.QueryRowContext(ctx,
		`SELECT revid, account_id, location_id, rating, review_text, visited_at
		 FROM visits_and_reviews WHERE account_id = ? AND location_id = ?`,
		p.AccountID, p.LocationID,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading back visit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing visit: %w", err)
	}
	return review, nil
}

// ListVisited returns the account's visits, most recent first. Display name
// and image are recovered from the locations table when present, falling
// back to the saved-locations snapshot. Neither is guaranteed, since the
// canonical feed record never lands locally.
func (r *VisitRepo) ListVisited(ctx context.Context, accountID string) ([]model.VisitedLocation, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT v.revid, v.account_id, v.location_id, v.rating, v.review_text, v.visited_at,
			COALESCE(l.name, s.location_name, v.location_id) AS location_name,
			COALESCE(l.image_url, s.location_image_url, '') AS location_image
		 FROM visits_and_reviews v
		 LEFT JOIN locations l ON l.locid = v.location_id
		 LEFT JOIN saved_locations s
			ON s.location_id = v.location_id AND s.account_id = v.account_id
		 WHERE v.account_id = ?
		 ORDER BY v.visited_at DESC, v.rowid DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visits: %w", err)
	}
	defer rows.Close()

	var visited []model.VisitedLocation
	for rows.Next() {
		var (
			v          model.VisitedLocation
			reviewText sql.NullString
			visitedAt  string
		)
		err := rows.Scan(&v.ID, &v.AccountID, &v.LocationID, &v.Rating,
			&reviewText, &visitedAt, &v.Name, &v.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning visit: %w", err)
		}
		v.ReviewText = reviewText.String
		if v.VisitedAt, err = parseTime(visitedAt); err != nil {
			return nil, err
		}
		visited = append(visited, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating visits: %w", err)
	}
	return visited, nil
}

// Stats counts the account's distinct visited locations and how many of its
// visit rows carry an actual review text.
func (r *VisitRepo) Stats(ctx context.Context, accountID string) (model.VisitStats, error) {
	var s model.VisitStats
	err := r.conn.QueryRowContext(ctx,
		`SELECT
			COUNT(DISTINCT location_id),
			COUNT(CASE WHEN review_text IS NOT NULL AND TRIM(review_text) <> '' THEN 1 END)
		 FROM visits_and_reviews
		 WHERE account_id = ?`,
		accountID,
	).Scan(&s.Visited, &s.Reviews)
	if err != nil {
		return model.VisitStats{}, fmt.Errorf("sqlite: computing visit stats: %w", err)
	}
	return s, nil
}

// IsVisited reports whether the account has a visit row for the location.
func (r *VisitRepo) IsVisited(ctx context.Context, accountID, locationID string) (bool, error) {
	var one int
	err := r.conn.QueryRowContext(ctx,
		`SELECT 1 FROM visits_and_reviews WHERE account_id = ? AND location_id = ?`,
		accountID, locationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking visit: %w", err)
	}
	return true, nil
}

// List returns every visit row, for the sync push and the admin view.
func (r *VisitRepo) List(ctx context.Context) ([]model.VisitReview, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT revid, account_id, location_id, rating, review_text, visited_at
		 FROM visits_and_reviews ORDER BY visited_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.VisitReview
	for rows.Next() {
		v, err := scanVisit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review: %w", err)
		}
		reviews = append(reviews, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return reviews, nil
}

// ListForLocation returns a location's reviews with reviewer usernames,
// newest first.
func (r *VisitRepo) ListForLocation(ctx context.Context, locationID string) ([]model.ReviewDetail, error) {
	return r.listDetailed(ctx, `v.location_id = ?`, locationID)
}

// ListForAccount returns an account's reviews with location names,
// newest first.
func (r *VisitRepo) ListForAccount(ctx context.Context, accountID string) ([]model.ReviewDetail, error) {
	return r.listDetailed(ctx, `v.account_id = ?`, accountID)
}

func (r *VisitRepo) listDetailed(ctx context.Context, where string, arg string) ([]model.ReviewDetail, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT v.revid, v.account_id, v.location_id, v.rating, v.review_text, v.visited_at,
			COALESCE(a.username, '') AS username,
			COALESCE(l.name, '') AS location_name
		 FROM visits_and_reviews v
		 LEFT JOIN accounts a ON a.accid = v.account_id
		 LEFT JOIN locations l ON l.locid = v.location_id
		 WHERE `+where+`
		 ORDER BY v.visited_at DESC, v.rowid DESC`,
		arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing detailed reviews: %w", err)
	}
	defer rows.Close()

	var details []model.ReviewDetail
	for rows.Next() {
		var (
			d          model.ReviewDetail
			reviewText sql.NullString
			visitedAt  string
		)
		err := rows.Scan(&d.ID, &d.AccountID, &d.LocationID, &d.Rating,
			&reviewText, &visitedAt, &d.Username, &d.LocationName)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning detailed review: %w", err)
		}
		d.ReviewText = reviewText.String
		if d.VisitedAt, err = parseTime(visitedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating detailed reviews: %w", err)
	}
	return details, nil
}

// UpsertFromSync applies a pushed review row. Keyed on the business pair, not
// the pushed revid: the same user re-reviewing from two devices must still
// collapse into one row here. Device-minted revids are only four digits, so a
// pushed id may already belong to some other account/location pair; when the
// insert trips over the revid primary key instead of the pair index, the row
// is retried under a freshly minted id.
func (r *VisitRepo) UpsertFromSync(ctx context.Context, review *model.VisitReview) error {
	if review.Rating < 1 || review.Rating > 5 {
		return fmt.Errorf("sqlite: %w",
			apperror.ValidationFailed("rating", "rating must be between 1 and 5"))
	}

	id := review.ID
	for attempt := 0; ; attempt++ {
		_, err := r.conn.ExecContext(ctx,
			`INSERT INTO visits_and_reviews (revid, account_id, location_id, rating, review_text, visited_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(account_id, location_id) DO UPDATE SET
				rating      = excluded.rating,
				review_text = excluded.review_text,
				visited_at  = excluded.visited_at`,
			id,
			review.AccountID,
			review.LocationID,
			review.Rating,
			nullIfEmpty(review.ReviewText),
			formatTime(review.VisitedAt),
		)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err, "visits_and_reviews.revid") && attempt < maxIDAttempts {
			id = ident.Review()
			continue
		}
		return fmt.Errorf("sqlite: syncing review %s: %w", review.ID, err)
	}
}

func scanVisit(scan func(...any) error) (*model.VisitReview, error) {
	var (
		v          model.VisitReview
		reviewText sql.NullString
		visitedAt  string
	)
	err := scan(&v.ID, &v.AccountID, &v.LocationID, &v.Rating, &reviewText, &visitedAt)
	if err != nil {
		return nil, err
	}
	v.ReviewText = reviewText.String
	if v.VisitedAt, err = parseTime(visitedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
