// Package urlutils classifies and normalises submodule remote URLs.
// It accepts the forms git itself understands: https/http, ssh://,
// scp-like user@host:path, file:// and plain local paths.
package urlutils

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrInvalidURL indicates that the provided URL is not valid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrInvalidPath indicates that the URL has no repository path
	ErrInvalidPath = errors.New("invalid repository path")

	// scp-like syntax: [user@]host:path, where host has no slash
	scpRegex = regexp.MustCompile(`^(?:([A-Za-z0-9._~-]+)@)?([A-Za-z0-9.-]+):(.+)$`)
)

// Kind classifies a remote URL
type Kind string

const (
	KindHTTPS Kind = "https"
	KindHTTP  Kind = "http"
	KindSSH   Kind = "ssh"
	KindSCP   Kind = "scp"
	KindFile  Kind = "file"
	KindLocal Kind = "local"
)

// Remote is a parsed submodule URL
type Remote struct {
	Kind Kind
	Host string
	// Path is the repository path without a leading slash for network
	// remotes, and the filesystem path for file and local remotes
	Path string
}

// IsNetwork reports whether the remote is reached over the network
func (r Remote) IsNetwork() bool {
	switch r.Kind {
	case KindHTTPS, KindHTTP, KindSSH, KindSCP:
		return true
	}
	return false
}

// Parse classifies rawURL
func Parse(rawURL string) (Remote, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Remote{}, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return Remote{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git+ssh":
			p := strings.Trim(u.Path, "/")
			if p == "" {
				return Remote{}, fmt.Errorf("%w: %s", ErrInvalidPath, Redact(rawURL))
			}
			if u.Hostname() == "" {
				return Remote{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
			}
			kind := Kind(u.Scheme)
			if u.Scheme == "git+ssh" {
				kind = KindSSH
			}
			return Remote{Kind: kind, Host: u.Hostname(), Path: p}, nil
		case "file":
			if u.Path == "" {
				return Remote{}, fmt.Errorf("%w: %s", ErrInvalidPath, rawURL)
			}
			return Remote{Kind: KindFile, Path: u.Path}, nil
		default:
			return Remote{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
		}
	}

	// A colon before the first slash means scp-like syntax
	if m := scpRegex.FindStringSubmatch(rawURL); m != nil && !isWindowsDrive(rawURL) {
		if i := strings.Index(rawURL, "/"); i == -1 || i > strings.Index(rawURL, ":") {
			return Remote{Kind: KindSCP, Host: m[2], Path: strings.Trim(m[3], "/")}, nil
		}
	}

	return Remote{Kind: KindLocal, Path: rawURL}, nil
}

func isWindowsDrive(s string) bool {
	return len(s) >= 2 && s[1] == ':' && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

// ValidateURL checks that rawURL is a usable submodule URL
func ValidateURL(rawURL string) error {
	_, err := Parse(rawURL)
	return err
}

// IsRelative reports whether rawURL is relative to the superproject's
// remote, as in "../lib.git"
func IsRelative(rawURL string) bool {
	return strings.HasPrefix(rawURL, "./") || strings.HasPrefix(rawURL, "../")
}

// ResolveRelative resolves a relative submodule URL against base, which
// is the superproject's remote URL or directory
func ResolveRelative(base, rel string) (string, error) {
	if !IsRelative(rel) {
		return rel, nil
	}
	remote, err := Parse(base)
	if err != nil {
		return "", err
	}
	switch remote.Kind {
	case KindLocal:
		return filepath.Clean(filepath.Join(base, rel)), nil
	case KindSCP:
		idx := strings.LastIndex(base, ":")
		joined := path.Join(base[idx+1:], rel)
		return base[:idx+1] + joined, nil
	default:
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		u.Path = path.Join(u.Path, rel)
		return u.String(), nil
	}
}

// RepoName derives a default submodule name from a URL: the last path
// element without a ".git" suffix
func RepoName(rawURL string) (string, error) {
	remote, err := Parse(rawURL)
	if err != nil {
		return "", err
	}
	p := strings.TrimRight(filepath.ToSlash(remote.Path), "/")
	name := strings.TrimSuffix(path.Base(p), ".git")
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: cannot derive a name from %s", ErrInvalidPath, Redact(rawURL))
	}
	return name, nil
}

// Redact removes credentials from a URL for logging
func Redact(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, hasPassword := u.User.Password(); hasPassword || u.Scheme == "https" || u.Scheme == "http" {
		u.User = url.User("redacted")
	}
	return u.String()
}
