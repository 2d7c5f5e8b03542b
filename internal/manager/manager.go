// Package manager implements submod's command workflows on top of a git
// backend and the TOML configuration store.
//
// The manager owns the in-memory configuration for one invocation.
// Mutating workflows run under the store's file lock and persist the
// configuration only after every git-level step has succeeded, so the
// backend always writes .gitmodules before the TOML file is replaced.
package manager

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/progress"
)

// Manager runs submodule workflows for the superproject at root
type Manager struct {
	root    string
	backend git.Backend
	store   *config.Store
	tracker progress.Tracker
	log     *zap.SugaredLogger
}

// Option configures a Manager
type Option func(*Manager)

// WithTracker reports per-submodule progress of bulk workflows
func WithTracker(t progress.Tracker) Option {
	return func(m *Manager) { m.tracker = t }
}

// New creates a manager
func New(root string, backend git.Backend, store *config.Store, log *zap.SugaredLogger, opts ...Option) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{
		root:    root,
		backend: backend,
		store:   store,
		tracker: progress.Nop(),
		log:     log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the superproject directory
func (m *Manager) Root() string {
	return m.root
}

// Store returns the configuration store
func (m *Manager) Store() *config.Store {
	return m.store
}

func (m *Manager) abs(path string) string {
	return filepath.Join(m.root, filepath.FromSlash(path))
}

// live reports whether path holds a checked out repository
func (m *Manager) live(path string) bool {
	return git.HasGitMarker(m.abs(path))
}

func lookup(cfg *config.Configuration, name string) (*config.SubmoduleEntry, error) {
	e, ok := cfg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", errors.ErrSubmoduleNotFound, name)
	}
	return e, nil
}

// registered reports whether path has a section in .gitmodules
func (m *Manager) registered(ctx context.Context, path string) (bool, error) {
	entries, err := m.backend.ReadGitmodules(ctx)
	if err != nil {
		return false, err
	}
	_, ok := git.FindByPath(entries, path)
	return ok, nil
}

// addOptions resolves the git rules of e. Values set neither on the entry
// nor in the defaults are left for git's own defaults.
func addOptions(cfg *config.Configuration, e *config.SubmoduleEntry) git.AddOptions {
	return git.AddOptions{
		Name:         e.Name,
		Path:         e.Path,
		URL:          e.URL,
		Branch:       pick(e.Branch, cfg.Defaults.Branch),
		Ignore:       pick(e.Ignore, cfg.Defaults.Ignore),
		Update:       pick(e.Update, cfg.Defaults.Update),
		FetchRecurse: pick(e.FetchRecurse, cfg.Defaults.FetchRecurse),
		Shallow:      e.Shallow,
	}
}

func pick[T ~string](value, fallback T) T {
	if value != "" {
		return value
	}
	return fallback
}

// each runs fn for every entry, reporting progress. It stops at the first
// failure.
func (m *Manager) each(verb string, entries []*config.SubmoduleEntry, fn func(*config.SubmoduleEntry) error) error {
	for i, e := range entries {
		m.tracker.Start(fmt.Sprintf("%s %s", verb, e.Name))
		m.tracker.Update(int64(i+1), int64(len(entries)))
		if err := fn(e); err != nil {
			m.tracker.Error(err)
			return fmt.Errorf("%s %s: %w", verb, e.Name, err)
		}
		m.tracker.Complete()
	}
	return nil
}
