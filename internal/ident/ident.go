// Package ident generates the short human-readable ids used as primary keys:
// a one-letter entity prefix followed by four random digits, e.g. "T4821".
//
// The format is part of the on-disk contract (the ids travel to the sync
// server and show up in exported data), so it cannot be swapped for a longer
// token. Four digits give only 9000 values per prefix; the repositories
// compensate by retrying the insert with a fresh id whenever the primary-key
// unique constraint fires.
package ident

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Entity prefixes, matching the sync server's expectations.
const (
	PrefixAccount  = "T"
	PrefixLocation = "L"
	PrefixReview   = "R"
	PrefixSaved    = "S"
)

// New returns prefix followed by a uniformly random number in 1000–9999.
func New(prefix string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// there is no sensible recovery at this layer.
		panic(fmt.Sprintf("ident: reading random source: %v", err))
	}
	return fmt.Sprintf("%s%d", prefix, 1000+n.Int64())
}

// Account returns a fresh account id ("T....").
func Account() string { return New(PrefixAccount) }

// Location returns a fresh location id ("L....").
func Location() string { return New(PrefixLocation) }

// Review returns a fresh visit/review id ("R....").
func Review() string { return New(PrefixReview) }

// Saved returns a fresh saved-location id ("S....").
func Saved() string { return New(PrefixSaved) }
