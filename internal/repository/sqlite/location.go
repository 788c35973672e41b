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

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo persists locally tracked locations. Obtain one from
// DB.Locations().
type LocationRepo struct {
	conn *sql.DB
}

// Create inserts a new location under a freshly generated id.
func (r *LocationRepo) Create(ctx context.Context, loc *model.Location) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := ident.Location()

		_, err := r.conn.ExecContext(ctx,
			`INSERT INTO locations (locid, name, description, latitude, longitude, image_url, rating)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id,
			loc.Name,
			nullIfEmpty(loc.Description),
			loc.Latitude,
			loc.Longitude,
			nullIfEmpty(loc.ImageURL),
			loc.Rating,
		)
		switch {
		case err == nil:
			created, err := r.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("sqlite: reading back location %s: %w", id, err)
			}
			*loc = *created
			return nil
		case isUniqueViolation(err, "locations.locid"):
			continue
		default:
			return fmt.Errorf("sqlite: creating location: %w", err)
		}
	}
	return errors.New("sqlite: exhausted location id space")
}

// GetByID returns the location with the given id.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT locid, name, description, latitude, longitude, image_url, rating, created_at
		 FROM locations WHERE locid = ?`, id)

	loc, err := scanLocation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("location", id))
		}
		return nil, fmt.Errorf("sqlite: getting location %s: %w", id, err)
	}
	return loc, nil
}

// List returns every tracked location, newest first.
func (r *LocationRepo) List(ctx context.Context) ([]model.Location, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT locid, name, description, latitude, longitude, image_url, rating, created_at
		 FROM locations ORDER BY created_at DESC, locid ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		loc, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning location: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating locations: %w", err)
	}
	return locations, nil
}

// UpsertFromSync replaces the row keyed by id with the remote payload,
// used both when the device pulls the server's catalogue and when the
// server receives a pushed row.
func (r *LocationRepo) UpsertFromSync(ctx context.Context, loc *model.Location) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO locations (locid, name, description, latitude, longitude, image_url, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(locid) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			latitude    = excluded.latitude,
			longitude   = excluded.longitude,
			image_url   = excluded.image_url,
			rating      = excluded.rating,
			created_at  = excluded.created_at`,
		loc.ID,
		loc.Name,
		nullIfEmpty(loc.Description),
		loc.Latitude,
		loc.Longitude,
		nullIfEmpty(loc.ImageURL),
		loc.Rating,
		formatTime(loc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: syncing location %s: %w", loc.ID, err)
	}
	return nil
}

// scanLocation reads one locations row; works for both Row.Scan and Rows.Scan.
func scanLocation(scan func(...any) error) (*model.Location, error) {
	var (
		loc         model.Location
		description sql.NullString
		imageURL    sql.NullString
		createdAt   string
	)
	err := scan(&loc.ID, &loc.Name, &description, &loc.Latitude, &loc.Longitude,
		&imageURL, &loc.Rating, &createdAt)
	if err != nil {
		return nil, err
	}

	loc.Description = description.String
	loc.ImageURL = imageURL.String
	if loc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &loc, nil
}

// nullIfEmpty maps "" to NULL so optional TEXT columns stay NULL instead of
// accumulating empty strings.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
