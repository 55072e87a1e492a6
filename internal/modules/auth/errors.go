// Package auth exposes register/confirm/login endpoints backed by a managed
// identity provider, translating provider failures into this service's own
// error vocabulary.
package auth

import "errors"

// Identity provider failures, already translated from provider-specific
// error types. Anything outside this set is treated as an internal error.
var (
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrInvalidConfirmationCode = errors.New("invalid confirmation code")
	ErrUserNotFound            = errors.New("user not found")
	ErrIncorrectCredentials    = errors.New("incorrect username or password")
	ErrUserNotConfirmed        = errors.New("user is not confirmed")

	// ErrMissingSecret means the provider requires a client secret that is
	// not configured. A deployment problem, never a user error.
	ErrMissingSecret = errors.New("client secret is missing")
)
