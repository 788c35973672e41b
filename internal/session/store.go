// Package session manages the device's single authentication slot: one
// serialized Session under one fixed key in durable key-value storage, plus
// the verifier that cross-checks it against the accounts table at startup.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/kv"
	"github.com/raducm/tourism-app/internal/model"
)

// storageKey is the single slot the session lives under. There is no concept
// of multiple concurrent logins on one device.
const storageKey = "user_session"

// Store persists the current session.
type Store struct {
	kv     *kv.Store
	logger zerolog.Logger
}

// NewStore creates a session store on top of the given key-value store.
func NewStore(kvStore *kv.Store, logger zerolog.Logger) *Store {
	return &Store{kv: kvStore, logger: logger}
}

// Save serializes the session into the slot.
func (s *Store) Save(session *model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session: encoding session: %w", err)
	}
	if err := s.kv.Set(storageKey, raw); err != nil {
		return fmt.Errorf("session: storing session: %w", err)
	}
	return nil
}

// Get returns the stored session, or nil when the slot is empty.
//
// A corrupt blob also comes back as nil: to the app "no usable session"
// means "show the login screen" either way. The two cases are only
// distinguished in the log, so operational damage stays visible.
func (s *Store) Get() (*model.Session, error) {
	raw, err := s.kv.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("session: reading session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.Warn().Err(err).Msg("stored session is corrupt, treating as signed out")
		return nil, nil
	}
	return &session, nil
}

// Clear empties the slot. Clearing an empty slot succeeds.
func (s *Store) Clear() error {
	if err := s.kv.Delete(storageKey); err != nil {
		return fmt.Errorf("session: clearing session: %w", err)
	}
	return nil
}
