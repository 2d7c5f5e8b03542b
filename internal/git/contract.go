package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
)

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks -source=contract.go Backend

// Backend is the set of git and submodule operations submod needs. A
// backend is bound to one superproject working tree; every path argument
// is relative to it. Operations a backend cannot perform return an error
// matching errors.ErrUnsupported.
type Backend interface {
	// Name identifies the backend in logs and errors
	Name() string

	// ReadGitmodules returns the entries of .gitmodules keyed by name
	ReadGitmodules(ctx context.Context) (map[string]*config.SubmoduleEntry, error)
	// WriteGitmodules replaces the content of .gitmodules
	WriteGitmodules(ctx context.Context, entries map[string]*config.SubmoduleEntry) error

	// ReadGitConfig returns the flattened key/value pairs of one config level
	ReadGitConfig(ctx context.Context, level ConfigLevel) (map[string]string, error)
	// SetGitConfig sets key (section[.subsection].name) at level
	SetGitConfig(ctx context.Context, key, value string, level ConfigLevel) error
	// RemoveGitConfigSection removes section (e.g. "submodule.lib") at level
	RemoveGitConfigSection(ctx context.Context, section string, level ConfigLevel) error

	AddSubmodule(ctx context.Context, opts AddOptions) error
	InitSubmodule(ctx context.Context, path string) error
	UpdateSubmodule(ctx context.Context, path string, opts UpdateOptions) error
	DeleteSubmodule(ctx context.Context, path string) error
	DeinitSubmodule(ctx context.Context, path string, force bool) error
	SubmoduleStatus(ctx context.Context, path string) (*DetailedStatus, error)
	ListSubmodules(ctx context.Context) ([]string, error)

	FetchSubmodule(ctx context.Context, path string, opts FetchOptions) error
	ResetSubmodule(ctx context.Context, path string, opts ResetOptions) error
	CleanSubmodule(ctx context.Context, path string, opts CleanOptions) error
	StashSubmodule(ctx context.Context, path string, opts StashOptions) error

	EnableSparseCheckout(ctx context.Context, path string) error
	SetSparsePatterns(ctx context.Context, path string, patterns []string) error
	SparsePatterns(ctx context.Context, path string) ([]string, error)
	ApplySparseCheckout(ctx context.Context, path string) error
}

// Credentials supplies HTTPS tokens for remote URLs
type Credentials interface {
	TokenFor(ctx context.Context, rawURL string) (string, bool)
}

// ConfigLevel selects a git configuration file
type ConfigLevel string

const (
	LevelLocal    ConfigLevel = "local"
	LevelGlobal   ConfigLevel = "global"
	LevelSystem   ConfigLevel = "system"
	LevelWorktree ConfigLevel = "worktree"
)

// ParseConfigLevel parses a level name
func ParseConfigLevel(s string) (ConfigLevel, error) {
	switch l := ConfigLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelLocal, LevelGlobal, LevelSystem, LevelWorktree:
		return l, nil
	case "":
		return LevelLocal, nil
	default:
		return "", fmt.Errorf("%w: unknown config level %q", errors.ErrInvalidConfig, s)
	}
}

// AddOptions describes a submodule to register and clone
type AddOptions struct {
	Name         string
	Path         string
	URL          string
	Branch       config.Branch
	Ignore       config.Ignore
	Update       config.Update
	FetchRecurse config.FetchRecurse
	Shallow      bool
	// NoInit registers the submodule without cloning it
	NoInit bool
}

// UpdateOptions controls UpdateSubmodule
type UpdateOptions struct {
	Strategy  config.Update
	Init      bool
	Recursive bool
	// Remote updates to the tip of the tracked branch instead of the
	// recorded commit
	Remote bool
	Depth  int
}

// FetchOptions controls FetchSubmodule
type FetchOptions struct {
	Remote string
	Prune  bool
	Depth  int
}

// ResetOptions controls ResetSubmodule. Resets always target HEAD.
type ResetOptions struct {
	Hard bool
}

// CleanOptions controls CleanSubmodule
type CleanOptions struct {
	Directories bool
	Ignored     bool
}

// StashOptions controls StashSubmodule
type StashOptions struct {
	IncludeUntracked bool
	Message          string
}

// SectionName returns the git config section for a submodule name
func SectionName(name string) string {
	return "submodule." + name
}

// SplitKey splits "section.sub.section.name" into its parts. The
// subsection is everything between the first and the last dot.
func SplitKey(key string) (section, subsection, name string, err error) {
	first := strings.Index(key, ".")
	last := strings.LastIndex(key, ".")
	if first <= 0 || last == len(key)-1 {
		return "", "", "", fmt.Errorf("%w: invalid config key %q", errors.ErrInvalidConfig, key)
	}
	section = key[:first]
	name = key[last+1:]
	if first != last {
		subsection = key[first+1 : last]
	}
	return section, subsection, name, nil
}
