package token

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Provider represents a Git provider type
type Provider string

const (
	ProviderGitHub Provider = "GITHUB"
	ProviderGitLab Provider = "GITLAB"
)

// DetectProvider attempts to determine the token provider from the token format
func DetectProvider(tokenValue string) Provider {
	switch {
	case strings.HasPrefix(tokenValue, "ghp_"),
		strings.HasPrefix(tokenValue, "github_pat_"):
		return ProviderGitHub
	case strings.HasPrefix(tokenValue, "glpat-"):
		return ProviderGitLab
	default:
		return ""
	}
}

// ProviderForURL returns the storage key for an HTTPS remote. Other
// schemes return "" since tokens are only sent over HTTPS.
func ProviderForURL(rawURL string) Provider {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "github.com" || strings.HasSuffix(host, ".github.com"):
		return ProviderGitHub
	case host == "gitlab.com" || strings.HasPrefix(host, "gitlab."):
		return ProviderGitLab
	default:
		return Provider(sanitize(host))
	}
}

// Resolver finds the token for a remote URL by trying each storage in order
type Resolver struct {
	stores []Storage
	log    *zap.SugaredLogger
}

// NewResolver creates a resolver over stores
func NewResolver(log *zap.SugaredLogger, stores ...Storage) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{stores: stores, log: log}
}

// TokenFor returns the token for rawURL, if any storage holds a usable one
func (r *Resolver) TokenFor(ctx context.Context, rawURL string) (string, bool) {
	provider := ProviderForURL(rawURL)
	if provider == "" {
		return "", false
	}
	for _, s := range r.stores {
		tok, err := s.Retrieve(ctx, string(provider))
		if err == nil {
			return tok.Value, true
		}
		if !errors.Is(err, ErrTokenNotFound) {
			r.log.Warnw("ignoring unusable token", "provider", provider, "error", err)
		}
	}
	return "", false
}

// Providers lists the keys holding a token across every storage, sorted
// and without duplicates
func (r *Resolver) Providers(ctx context.Context) []string {
	var keys []string
	for _, s := range r.stores {
		k, err := s.List(ctx)
		if err != nil {
			r.log.Debugw("listing tokens failed", "error", err)
			continue
		}
		keys = append(keys, k...)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// Username returns the HTTP basic-auth user name that accompanies a token
// for rawURL
func Username(rawURL string) string {
	if ProviderForURL(rawURL) == ProviderGitLab {
		return "oauth2"
	}
	return "x-access-token"
}
