package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/model"
)

// saveTestLocation bookmarks locationID for the account and fails on error.
func saveTestLocation(t *testing.T, db *DB, accountID, locationID, name string) *model.SavedLocation {
	t.Helper()

	saved := &model.SavedLocation{
		AccountID:  accountID,
		LocationID: locationID,
		Name:       name,
		Rating:     4.5,
	}
	if err := db.Saved().Save(context.Background(), saved); err != nil {
		t.Fatalf("saving test location: %v", err)
	}
	return saved
}

func TestSavedSave(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "saver@example.com")

	saved := &model.SavedLocation{
		AccountID:   account.ID,
		LocationID:  "loc-feed-17",
		Name:        "Salina Turda",
		ImageURL:    "https://example.com/salina.jpg",
		Rating:      4.8,
		Description: "Salt mine turned theme park",
	}
	if err := db.Saved().Save(context.Background(), saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.HasPrefix(saved.ID, "S") || len(saved.ID) != 5 {
		t.Errorf("Save() id = %q, want S followed by four digits", saved.ID)
	}
	if saved.SavedAt.IsZero() {
		t.Error("Save() did not populate SavedAt")
	}
	// The snapshot survives the round trip.
	if saved.Description != "Salt mine turned theme park" {
		t.Errorf("Description = %q, want the snapshot text", saved.Description)
	}
}

func TestSavedSave_DuplicatePairConflicts(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "dup@example.com")
	saveTestLocation(t, db, account.ID, "loc-1", "Somewhere")

	again := &model.SavedLocation{
		AccountID:  account.ID,
		LocationID: "loc-1",
		Name:       "Somewhere Else Entirely",
	}
	err := db.Saved().Save(context.Background(), again)
	if err == nil {
		t.Fatal("Save() accepted a duplicate (account, location) pair")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Save() error = %v, want ErrConflict", err)
	}

	// The original snapshot is untouched.
	list, err := db.Saved().ListForAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("ListForAccount() error = %v", err)
	}
	if len(list) != 1 || list[0].Name != "Somewhere" {
		t.Errorf("ListForAccount() = %+v, want the single original bookmark", list)
	}
}

func TestSavedSave_SameLocationDifferentAccounts(t *testing.T) {
	db := newTestDB(t)
	first := createTestAccount(t, db, "first@example.com")
	second := createTestAccount(t, db, "second@example.com")

	saveTestLocation(t, db, first.ID, "loc-shared", "Shared Spot")
	saveTestLocation(t, db, second.ID, "loc-shared", "Shared Spot")

	for _, accountID := range []string{first.ID, second.ID} {
		ok, err := db.Saved().IsSaved(context.Background(), accountID, "loc-shared")
		if err != nil {
			t.Fatalf("IsSaved() error = %v", err)
		}
		if !ok {
			t.Errorf("IsSaved(%s) = false, want true", accountID)
		}
	}
}

func TestSavedRemove(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "remover@example.com")
	saveTestLocation(t, db, account.ID, "loc-9", "Removable")

	if err := db.Saved().Remove(context.Background(), account.ID, "loc-9"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	ok, err := db.Saved().IsSaved(context.Background(), account.ID, "loc-9")
	if err != nil {
		t.Fatalf("IsSaved() error = %v", err)
	}
	if ok {
		t.Error("IsSaved() = true after Remove()")
	}

	// Removing again is a silent no-op.
	if err := db.Saved().Remove(context.Background(), account.ID, "loc-9"); err != nil {
		t.Errorf("Remove() of an absent bookmark: %v", err)
	}
}

func TestSavedIsSaved_Unsaved(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "nobody@example.com")

	ok, err := db.Saved().IsSaved(context.Background(), account.ID, "loc-never")
	if err != nil {
		t.Fatalf("IsSaved() error = %v", err)
	}
	if ok {
		t.Error("IsSaved() = true for a never-saved pair")
	}
}

func TestSavedListForAccount_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	account := createTestAccount(t, db, "lister@example.com")
	other := createTestAccount(t, db, "other@example.com")

	saveTestLocation(t, db, account.ID, "loc-a", "Alpha")
	saveTestLocation(t, db, account.ID, "loc-b", "Beta")
	saveTestLocation(t, db, other.ID, "loc-c", "NotMine")

	list, err := db.Saved().ListForAccount(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("ListForAccount() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListForAccount() returned %d bookmarks, want 2", len(list))
	}
	if list[0].Name != "Beta" || list[1].Name != "Alpha" {
		t.Errorf("ListForAccount() order = [%s, %s], want newest first", list[0].Name, list[1].Name)
	}
}
