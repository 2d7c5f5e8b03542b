package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Provider
	}{
		{"github token with ghp prefix", "ghp_1234567890abcdef", ProviderGitHub},
		{"github token with github_pat prefix", "github_pat_1234567890abcdef", ProviderGitHub},
		{"gitlab token", "glpat-1234567890abcdef", ProviderGitLab},
		{"invalid token format", "invalid-token", ""},
		{"empty token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProvider(tt.token))
		})
	}
}

func TestProviderForURL(t *testing.T) {
	tests := []struct {
		url  string
		want Provider
	}{
		{"https://github.com/org/repo.git", ProviderGitHub},
		{"https://gitlab.com/group/repo.git", ProviderGitLab},
		{"https://gitlab.internal.example/group/repo.git", ProviderGitLab},
		{"https://git.example.com/repo.git", "GIT_EXAMPLE_COM"},
		{"git@github.com:org/repo.git", ""},
		{"ssh://git@github.com/org/repo.git", ""},
		{"file:///tmp/repo", ""},
		{"../relative.git", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderForURL(tt.url))
		})
	}
}

func TestResolver_TokenFor(t *testing.T) {
	ctx := context.Background()
	first := NewMemoryStorage()
	second := NewMemoryStorage()
	require.NoError(t, second.Store(ctx, string(ProviderGitHub), Token{Value: "from-second"}))
	require.NoError(t, second.Store(ctx, string(ProviderGitLab), Token{Value: "gl"}))
	require.NoError(t, first.Store(ctx, string(ProviderGitLab), Token{Value: "gl-first"}))

	r := NewResolver(nil, first, second)

	tok, ok := r.TokenFor(ctx, "https://github.com/org/repo.git")
	assert.True(t, ok)
	assert.Equal(t, "from-second", tok)

	tok, ok = r.TokenFor(ctx, "https://gitlab.com/org/repo.git")
	assert.True(t, ok)
	assert.Equal(t, "gl-first", tok, "earlier storage wins")

	_, ok = r.TokenFor(ctx, "git@github.com:org/repo.git")
	assert.False(t, ok)

	_, ok = r.TokenFor(ctx, "https://unknown.example/repo.git")
	assert.False(t, ok)

	assert.Equal(t, []string{"GITHUB", "GITLAB"}, r.Providers(ctx))
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "oauth2", Username("https://gitlab.com/group/lib.git"))
	assert.Equal(t, "x-access-token", Username("https://github.com/org/lib.git"))
	assert.Equal(t, "x-access-token", Username("https://git.example.com/lib.git"))
}
