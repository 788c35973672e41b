package model

import "time"

// VisitReview records that an account visited a location, with a 1–5 rating
// and optional free-text review.
//
// Exactly one row exists per (AccountID, LocationID): marking a location
// visited again overwrites the previous rating/text and refreshes VisitedAt.
// There is no way back to "not visited".
type VisitReview struct {
	ID         string    `json:"revid"`
	AccountID  string    `json:"account_id"`
	LocationID string    `json:"location_id"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text,omitempty"`
	VisitedAt  time.Time `json:"visited_at"`
}

// VisitedLocation is a VisitReview joined with whatever display data is
// available locally. The canonical feed record isn't persisted, so Name and
// ImageURL are recovered from the locations table or the saved-locations
// snapshot, whichever has a value.
type VisitedLocation struct {
	VisitReview
	Name     string `json:"location_name"`
	ImageURL string `json:"location_image_url,omitempty"`
}

// ReviewDetail is a VisitReview joined with the reviewer's username and the
// location's name, the shape the sync server returns for review listings.
type ReviewDetail struct {
	VisitReview
	Username     string `json:"username"`
	LocationName string `json:"location_name"`
}

// VisitStats summarises an account's activity for the profile screen.
type VisitStats struct {
	Visited int `json:"visited"`
	Reviews int `json:"reviews"`
}

// StoreStats are whole-database row counts, shown on the admin screen.
type StoreStats struct {
	Accounts  int `json:"accounts"`
	Locations int `json:"locations"`
	Reviews   int `json:"reviews"`
}
