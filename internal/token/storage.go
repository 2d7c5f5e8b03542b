// Package token supplies HTTPS credentials for submodule remotes.
//
// Tokens are looked up per provider. The provider is derived from the
// host of the remote URL (github.com -> GITHUB, gitlab.com -> GITLAB,
// any other host -> its name upper-cased with separators replaced).
//
// Environment Variable Usage:
//
//	export GIT_TOKEN_GITHUB="ghp_..."
//	export GIT_TOKEN_GIT_EXAMPLE_COM='{"Value":"...","ExpiresAt":"2027-01-01T00:00:00Z"}'
//
// Command-line Usage:
//
//	submod --token github=ghp_... update
//	submod --token glpat-... update
//
// Tokens given with --token are held in a MemoryStorage that the resolver
// consults before the environment.
package token

import (
	"context"
	"errors"
	"time"
)

// Common errors that may be returned by token operations
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token has expired")
)

// Token represents an authentication token with metadata
type Token struct {
	Value string `json:"Value"`
	// ExpiresAt is zero for tokens that do not expire
	ExpiresAt time.Time `json:"ExpiresAt"`
}

// Storage defines the interface for token storage implementations
type Storage interface {
	// Retrieve returns ErrTokenNotFound if no token exists for key
	Retrieve(ctx context.Context, key string) (Token, error)
	// List returns the normalised keys holding a token
	List(ctx context.Context) ([]string, error)
}

// IsExpired checks if a token has expired
func IsExpired(token Token) bool {
	if token.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(token.ExpiresAt)
}

// IsValid performs basic validation of a token
func IsValid(token Token) bool {
	return token.Value != ""
}

// check validates a retrieved token
func check(token Token) (Token, error) {
	if !IsValid(token) {
		return Token{}, ErrTokenInvalid
	}
	if IsExpired(token) {
		return Token{}, ErrTokenExpired
	}
	return token, nil
}
