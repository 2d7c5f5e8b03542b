package token

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage keeps tokens for the lifetime of the process. It backs
// the --token flag.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryStorage creates a new instance of MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens: make(map[string]Token),
	}
}

// Store saves a token, replacing any existing one for key. Keys are
// normalised like env keys.
func (m *MemoryStorage) Store(_ context.Context, key string, token Token) error {
	if !IsValid(token) {
		return ErrTokenInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[sanitize(key)] = token
	return nil
}

// Retrieve implements Storage.Retrieve
func (m *MemoryStorage) Retrieve(_ context.Context, key string) (Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, exists := m.tokens[sanitize(key)]
	if !exists {
		return Token{}, ErrTokenNotFound
	}
	return check(token)
}

// List implements Storage.List
func (m *MemoryStorage) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ParseFlag parses a --token value of the form "provider=token" or a bare
// token whose provider is recognised from its prefix. The provider is a
// host name or one of github and gitlab.
func ParseFlag(value string) (string, Token, error) {
	value = strings.TrimSpace(value)
	key, tok, found := strings.Cut(value, "=")
	if !found {
		tok = value
		key = string(DetectProvider(value))
		if key == "" {
			return "", Token{}, fmt.Errorf("%w: cannot detect the provider of a bare token, use provider=token", ErrTokenInvalid)
		}
	}
	key, tok = strings.TrimSpace(key), strings.TrimSpace(tok)
	if key == "" || tok == "" {
		return "", Token{}, fmt.Errorf("%w: expected provider=token", ErrTokenInvalid)
	}
	if p := ProviderForURL("https://" + key); p != "" {
		key = string(p)
	}
	return key, Token{Value: tok}, nil
}

// NewFlagStorage stores every --token value in a new MemoryStorage
func NewFlagStorage(ctx context.Context, values []string) (*MemoryStorage, error) {
	m := NewMemoryStorage()
	for _, v := range values {
		key, tok, err := ParseFlag(v)
		if err != nil {
			return nil, err
		}
		if err := m.Store(ctx, key, tok); err != nil {
			return nil, err
		}
	}
	return m, nil
}
