// Package model defines the data structures used throughout the application.
package model

import "time"

// Account represents a registered user identity.
//
// The primary key is a short generated token ("T" + four digits, e.g. "T4821")
// rather than an auto-increment integer: the same ids travel to the sync
// server, so they must be stable across devices. Username defaults to the
// local part of the email when the user doesn't pick one.
//
// PasswordHash is the bcrypt hash of the password. It is persisted locally and
// pushed to the sync server so a user can sign in on another device; the clear
// password never leaves the auth service.
type Account struct {
	ID           string    `json:"accid"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the device-local record asserting which Account is currently
// authenticated. It is not a database row; it lives as a JSON blob in the
// key-value store under a single fixed key.
//
// Email is duplicated outside the Account on purpose: the session verifier
// checks the (id, email) pair against the accounts table, so a session built
// before an email change is detected as stale.
type Session struct {
	Account Account `json:"account"`
	Email   string  `json:"email"`
}
