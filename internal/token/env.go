package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvPrefix is the prefix used for all token environment variables
const EnvPrefix = "GIT_TOKEN_"

// EnvStorage implements Storage using GIT_TOKEN_* environment variables.
// A variable holds either the raw token or a JSON encoded Token.
type EnvStorage struct{}

// NewEnvStorage creates a new environment variable-based token storage
func NewEnvStorage() *EnvStorage {
	return &EnvStorage{}
}

// Retrieve gets a token by its key from environment variables
func (e *EnvStorage) Retrieve(_ context.Context, key string) (Token, error) {
	data := strings.TrimSpace(os.Getenv(FormatEnvKey(key)))
	if data == "" {
		return Token{}, ErrTokenNotFound
	}
	if !strings.HasPrefix(data, "{") {
		return Token{Value: data}, nil
	}

	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return Token{}, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return check(token)
}

// List returns all stored token keys from environment variables
func (e *EnvStorage) List(_ context.Context) ([]string, error) {
	var keys []string
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, EnvPrefix) {
			keys = append(keys, strings.TrimPrefix(name, EnvPrefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// FormatEnvKey converts a token key into an environment variable name
func FormatEnvKey(key string) string {
	return EnvPrefix + sanitize(key)
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}
