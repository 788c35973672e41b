package model

import "time"

// Location is a locally tracked tourist location.
//
// The local table is not the primary source of location data; that is the
// remote JSON feed. Rows appear here lazily, when a user visits/reviews a
// location, or when the sync client pulls the server's copy. ImageURL and
// Rating mirror the sync server's schema and may be empty on rows created
// by the device itself.
type Location struct {
	ID          string    `json:"locid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ImageURL    string    `json:"image_url,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavedLocation is a user-curated bookmark of a location.
//
// Name, image, rating and description are a denormalized snapshot captured at
// save time; they are deliberately not kept in sync with the source feed so a
// saved list still renders offline. At most one row exists per
// (AccountID, LocationID) pair; the schema enforces it with a unique index.
type SavedLocation struct {
	ID          string    `json:"saved_id"`
	AccountID   string    `json:"account_id"`
	LocationID  string    `json:"location_id"`
	Name        string    `json:"location_name"`
	ImageURL    string    `json:"location_image_url,omitempty"`
	Rating      float64   `json:"location_rating,omitempty"`
	Description string    `json:"location_description,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}
