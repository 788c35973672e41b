// Package apperror defines the application's error taxonomy.
//
// Repositories and services return these as values; callers pick the
// category with errors.Is and render Message to the user. Nothing in the
// data layer panics or throws across its public boundary.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// invalidCredentialsMessage is deliberately identical for "unknown email" and
// "wrong password" so a caller probing sign-in cannot enumerate registered
// emails.
const invalidCredentialsMessage = "Invalid email or password"

type AppError struct {
	Err     error  // category sentinel, matched with errors.Is
	Message string // human-readable, safe to show in the UI
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateEmail is returned by sign-up when the email already has an account.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("an account with email %s already exists", email),
		Field:   "email",
	}
}

// AlreadySaved is returned when a location is bookmarked a second time.
func AlreadySaved(locationID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("location %s is already saved", locationID),
	}
}

// InvalidCredentials is returned by sign-in for both an unknown email and a
// wrong password. The two cases must stay indistinguishable to the caller.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: invalidCredentialsMessage,
	}
}
