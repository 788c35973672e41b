// Package kv is a small durable key-value store backed by a single JSON file.
//
// It plays the role the mobile platform's key-value storage plays on a device:
// a handful of keys (current session, sync flag, last sync time) that must
// survive restarts. Values are opaque byte slices; callers do their own
// (de)serialization. Writes go through a temp file and rename so a crash
// mid-write never corrupts the existing file.
//
// A Store is safe for concurrent use by a single process. It makes no attempt
// to coordinate between processes; the device model is single-writer.
package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Store struct {
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// Open loads the store at path, creating the parent directory if needed.
// A missing file is an empty store, not an error.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kv: creating directory for %s: %w", path, err)
	}

	s := &Store{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("kv: parsing %s: %w", path, err)
	}
	return s, nil
}

// Get returns the value stored under key, or (nil, nil) if the key is absent.
// The returned slice is the caller's to keep; mutating it does not touch the
// store's copy.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

// Set stores value under key and flushes the file to disk.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !json.Valid(value) {
		// The backing file is one JSON document, so every value must be
		// embeddable as-is. Wrap non-JSON payloads before storing them.
		return fmt.Errorf("kv: value for %q is not valid JSON", key)
	}

	s.data[key] = json.RawMessage(value)
	return s.flush()
}

// Delete removes key and flushes. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// flush writes the whole map atomically. Callers must hold s.mu.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: encoding store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("kv: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("kv: replacing %s: %w", s.path, err)
	}
	return nil
}
