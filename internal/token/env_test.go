package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStorage_Retrieve(t *testing.T) {
	ctx := context.Background()
	storage := NewEnvStorage()

	tests := []struct {
		name    string
		key     string
		env     string
		want    string
		wantErr error
	}{
		{
			name: "raw value",
			key:  "GITHUB",
			env:  "ghp_raw",
			want: "ghp_raw",
		},
		{
			name: "json value",
			key:  "GITLAB",
			env:  `{"Value":"glpat-json"}`,
			want: "glpat-json",
		},
		{
			name:    "expired json value",
			key:     "EXPIRED",
			env:     `{"Value":"x","ExpiresAt":"2001-01-01T00:00:00Z"}`,
			wantErr: ErrTokenExpired,
		},
		{
			name:    "missing",
			key:     "NOT_SET_ANYWHERE",
			wantErr: ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv(FormatEnvKey(tt.key), tt.env)
			}
			tok, err := storage.Retrieve(ctx, tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok.Value)
		})
	}
}

func TestEnvStorage_List(t *testing.T) {
	ctx := context.Background()
	storage := NewEnvStorage()
	t.Setenv(FormatEnvKey("git.example.com"), "secret")

	keys, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "GIT_EXAMPLE_COM")

	tok, err := storage.Retrieve(ctx, "git.example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret", tok.Value)
}

func TestFormatEnvKey(t *testing.T) {
	assert.Equal(t, "GIT_TOKEN_GITHUB", FormatEnvKey("github"))
	assert.Equal(t, "GIT_TOKEN_GIT_EXAMPLE_COM", FormatEnvKey("git.example.com"))
}
