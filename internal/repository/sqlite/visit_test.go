package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
)

// visitParams builds a VisitParams for an already-tracked location.
func visitParams(accountID, locationID string, rating int, review string) repository.VisitParams {
	return repository.VisitParams{
		AccountID:    accountID,
		LocationID:   locationID,
		LocationName: "Visited Place",
		Latitude:     45.76,
		Longitude:    21.23,
		Rating:       rating,
		ReviewText:   review,
	}
}

func TestSaveVisitAndReview(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "visitor@example.com")

	visit, err := db.Visits().SaveVisitAndReview(context.Background(),
		visitParams(account.ID, "loc-feed-3", 4, "worth the climb"))
	if err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	if !strings.HasPrefix(visit.ID, "R") || len(visit.ID) != 5 {
		t.Errorf("id = %q, want R followed by four digits", visit.ID)
	}
	if visit.Rating != 4 || visit.ReviewText != "worth the climb" {
		t.Errorf("visit = %+v, want rating 4 and the review text", visit)
	}
	if visit.VisitedAt.IsZero() {
		t.Error("VisitedAt not populated")
	}
}

func TestSaveVisitAndReview_TracksLocationLazily(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "lazy@example.com")

	p := repository.VisitParams{
		AccountID:    account.ID,
		LocationID:   "loc-feed-42",
		LocationName: "Hidden Waterfall",
		Latitude:     45.1,
		Longitude:    24.9,
		ImageURL:     "https://example.com/falls.jpg",
		Rating:       5,
	}
	if _, err := db.Visits().SaveVisitAndReview(context.Background(), p); err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	// The location row was created from the caller's snapshot.
	loc, err := db.Locations().GetByID(context.Background(), "loc-feed-42")
	if err != nil {
		t.Fatalf("GetByID() after visit: %v", err)
	}
	if loc.Name != "Hidden Waterfall" {
		t.Errorf("Name = %q, want %q", loc.Name, "Hidden Waterfall")
	}
	if loc.Latitude != 45.1 || loc.Longitude != 24.9 {
		t.Errorf("coordinates = (%v, %v), want the caller's", loc.Latitude, loc.Longitude)
	}
}

func TestSaveVisitAndReview_DoesNotOverwriteExistingLocation(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "keeper@example.com")
	loc := trackTestLocation(t, db, "Original Name")

	p := visitParams(account.ID, loc.ID, 3, "")
	p.LocationName = "Wrong Name From Stale Client"
	if _, err := db.Visits().SaveVisitAndReview(context.Background(), p); err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	found, err := db.Locations().GetByID(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "Original Name" {
		t.Errorf("Name = %q, existing row must be left untouched", found.Name)
	}
}

func TestSaveVisitAndReview_SecondVisitUpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "repeat@example.com")

	first, err := db.Visits().SaveVisitAndReview(context.Background(),
		visitParams(account.ID, "loc-7", 2, "meh"))
	if err != nil {
		t.Fatalf("first SaveVisitAndReview() error = %v", err)
	}

	second, err := db.Visits().SaveVisitAndReview(context.Background(),
		visitParams(account.ID, "loc-7", 5, "came back in summer, wonderful"))
	if err != nil {
		t.Fatalf("second SaveVisitAndReview() error = %v", err)
	}

	// Same row: the id survives, the content is replaced.
	if second.ID != first.ID {
		t.Errorf("second visit id = %q, want %q (same row)", second.ID, first.ID)
	}
	if second.Rating != 5 || second.ReviewText != "came back in summer, wonderful" {
		t.Errorf("second visit = %+v, want the updated rating and text", second)
	}

	visits, err := db.Visits().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(visits) != 1 {
		t.Errorf("visit rows = %d, want exactly 1 per (account, location)", len(visits))
	}
}

func TestSaveVisitAndReview_RatingBounds(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "bounds@example.com")

	for _, rating := range []int{0, 6, -1} {
		_, err := db.Visits().SaveVisitAndReview(context.Background(),
			visitParams(account.ID, "loc-x", rating, ""))
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("rating %d: error = %v, want ErrValidation", rating, err)
		}
	}

	// Nothing was written, not even the lazy location row.
	if _, err := db.Locations().GetByID(context.Background(), "loc-x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("location row exists after rejected visit, GetByID error = %v", err)
	}
}

func TestIsVisited(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "been@example.com")

	ok, err := db.Visits().IsVisited(context.Background(), account.ID, "loc-5")
	if err != nil || ok {
		t.Fatalf("IsVisited() before visit = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := db.Visits().SaveVisitAndReview(context.Background(),
		visitParams(account.ID, "loc-5", 3, "")); err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	ok, err = db.Visits().IsVisited(context.Background(), account.ID, "loc-5")
	if err != nil {
		t.Fatalf("IsVisited() error = %v", err)
	}
	if !ok {
		t.Error("IsVisited() = false after a visit")
	}
}

func TestListVisited_ImageFallsBackToSavedSnapshot(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "fallback@example.com")

	// The visit's lazy location row carries no image; the bookmark snapshot
	// does, so the listing should surface the snapshot's.
	bookmark := &model.SavedLocation{
		AccountID:  account.ID,
		LocationID: "loc-snap",
		Name:       "Snapshot Name",
		ImageURL:   "https://example.com/snapshot.jpg",
	}
	if err := db.Saved().Save(context.Background(), bookmark); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	p := visitParams(account.ID, "loc-snap", 4, "")
	p.ImageURL = ""
	if _, err := db.Visits().SaveVisitAndReview(context.Background(), p); err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	visited, err := db.Visits().ListVisited(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("ListVisited() error = %v", err)
	}
	if len(visited) != 1 {
		t.Fatalf("ListVisited() returned %d rows, want 1", len(visited))
	}
	if visited[0].ImageURL != "https://example.com/snapshot.jpg" {
		t.Errorf("ImageURL = %q, want the saved-locations snapshot", visited[0].ImageURL)
	}
	if visited[0].Name != "Visited Place" {
		t.Errorf("Name = %q, want the locations row's name", visited[0].Name)
	}
}

func TestVisitStats(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "counter@example.com")

	// Three visits, two with review text; whitespace-only doesn't count.
	for _, v := range []struct {
		loc    string
		review string
	}{
		{"loc-1", "lovely"},
		{"loc-2", "   "},
		{"loc-3", "crowded but fun"},
	} {
		if _, err := db.Visits().SaveVisitAndReview(context.Background(),
			visitParams(account.ID, v.loc, 4, v.review)); err != nil {
			t.Fatalf("SaveVisitAndReview(%s) error = %v", v.loc, err)
		}
	}

	stats, err := db.Visits().Stats(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := model.VisitStats{Visited: 3, Reviews: 2}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestVisitStats_EmptyAccount(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "fresh@example.com")

	stats, err := db.Visits().Stats(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats != (model.VisitStats{}) {
		t.Errorf("Stats() = %+v, want zeros", stats)
	}
}

func TestListForLocation_JoinsUsernames(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "joined@example.com")
	loc := trackTestLocation(t, db, "Join Point")

	if _, err := db.Visits().SaveVisitAndReview(context.Background(),
		visitParams(account.ID, loc.ID, 5, "superb")); err != nil {
		t.Fatalf("SaveVisitAndReview() error = %v", err)
	}

	reviews, err := db.Visits().ListForLocation(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("ListForLocation() error = %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("ListForLocation() returned %d reviews, want 1", len(reviews))
	}
	if reviews[0].Username != "tester" {
		t.Errorf("Username = %q, want %q", reviews[0].Username, "tester")
	}
	if reviews[0].LocationName != "Join Point" {
		t.Errorf("LocationName = %q, want %q", reviews[0].LocationName, "Join Point")
	}
}

func TestVisitUpsertFromSync_CollapsesOnPair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	account := createTestAccount(t, db, "twodevices@example.com")
	loc := trackTestLocation(t, db, "Synced Spot")

	first := &model.VisitReview{
		ID:         "R1111",
		AccountID:  account.ID,
		LocationID: loc.ID,
		Rating:     3,
		ReviewText: "from the phone",
		VisitedAt:  time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := db.Visits().UpsertFromSync(ctx, first); err != nil {
		t.Fatalf("UpsertFromSync() (insert) error = %v", err)
	}

	// The same user re-reviews from another device under a different revid;
	// the row is keyed on the pair, so it must collapse, not duplicate.
	second := &model.VisitReview{
		ID:         "R2222",
		AccountID:  account.ID,
		LocationID: loc.ID,
		Rating:     5,
		ReviewText: "from the tablet",
		VisitedAt:  time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC),
	}
	if err := db.Visits().UpsertFromSync(ctx, second); err != nil {
		t.Fatalf("UpsertFromSync() (update) error = %v", err)
	}

	visits, err := db.Visits().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("rows = %d, want 1", len(visits))
	}
	if visits[0].ID != "R1111" {
		t.Errorf("id = %q, want the original R1111 to survive", visits[0].ID)
	}
	if visits[0].Rating != 5 || visits[0].ReviewText != "from the tablet" {
		t.Errorf("row = %+v, want the second push's content", visits[0])
	}
}

func TestVisitUpsertFromSync_RemintsIDTakenByAnotherPair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestAccount(t, db, "alice@example.com")
	bob := createTestAccount(t, db, "bob@example.com")
	locA := trackTestLocation(t, db, "First Spot")
	locB := trackTestLocation(t, db, "Second Spot")

	// Two devices independently minted the same four-digit revid for
	// different account/location pairs.
	first := &model.VisitReview{
		ID:         "R4444",
		AccountID:  alice.ID,
		LocationID: locA.ID,
		Rating:     4,
		ReviewText: "alice was here",
		VisitedAt:  time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Visits().UpsertFromSync(ctx, first); err != nil {
		t.Fatalf("UpsertFromSync() (first pair) error = %v", err)
	}

	second := &model.VisitReview{
		ID:         "R4444",
		AccountID:  bob.ID,
		LocationID: locB.ID,
		Rating:     2,
		ReviewText: "bob disagrees",
		VisitedAt:  time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Visits().UpsertFromSync(ctx, second); err != nil {
		t.Fatalf("UpsertFromSync() (colliding revid) error = %v", err)
	}

	visits, err := db.Visits().List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("rows = %d, want both pairs stored", len(visits))
	}

	byAccount := make(map[string]model.VisitReview, len(visits))
	for _, v := range visits {
		byAccount[v.AccountID] = v
	}
	if got := byAccount[alice.ID]; got.ID != "R4444" {
		t.Errorf("first pair id = %q, want the original R4444 to survive", got.ID)
	}
	got, ok := byAccount[bob.ID]
	if !ok {
		t.Fatal("no row stored for the second pair")
	}
	if got.ID == "R4444" {
		t.Error("second pair kept the colliding revid, want a fresh one")
	}
	if !strings.HasPrefix(got.ID, "R") || len(got.ID) != 5 {
		t.Errorf("reminted id = %q, want R followed by four digits", got.ID)
	}
	if got.Rating != 2 || got.ReviewText != "bob disagrees" {
		t.Errorf("second pair row = %+v, want its pushed content", got)
	}
}
