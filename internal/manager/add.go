package manager

import (
	"context"
	"fmt"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/urlutils"
)

// AddRequest describes a submodule to add. Name defaults to the
// repository name of URL and Path defaults to Name.
type AddRequest struct {
	Name         string
	Path         string
	URL          string
	Branch       config.Branch
	Ignore       config.Ignore
	Update       config.Update
	FetchRecurse config.FetchRecurse
	Shallow      bool
	SparsePaths  []string
}

func (r AddRequest) entry() (*config.SubmoduleEntry, error) {
	if err := urlutils.ValidateURL(r.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	name := r.Name
	if name == "" {
		var err error
		if name, err = urlutils.RepoName(r.URL); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
	}
	path := r.Path
	if path == "" {
		path = name
	}

	e := config.NewEntry(name, path, r.URL)
	e.Branch = r.Branch
	e.Ignore = r.Ignore
	e.Update = r.Update
	e.FetchRecurse = r.FetchRecurse
	e.Shallow = r.Shallow
	e.SparsePaths = r.SparsePaths
	return e, nil
}

// Add clones a new submodule, configures sparse checkout when paths are
// given and records the entry. The configuration file is only written
// once the git-level add has succeeded; a name already present in the
// configuration fails before anything is touched.
func (m *Manager) Add(ctx context.Context, req AddRequest) (*config.SubmoduleEntry, error) {
	e, err := req.entry()
	if err != nil {
		return nil, errors.New("add", err).WithSubmodule(req.Name)
	}

	// checked before taking the lock so a collision leaves no trace
	current, err := m.store.Load()
	if err != nil {
		return nil, errors.New("add", err).WithSubmodule(e.Name)
	}
	if err := checkUnique(current, e); err != nil {
		return nil, errors.New("add", err).WithSubmodule(e.Name)
	}

	err = m.store.Update(ctx, func(cfg *config.Configuration) error {
		if err := checkUnique(cfg, e); err != nil {
			return err
		}
		if err := m.clone(ctx, cfg, e); err != nil {
			return err
		}
		return cfg.Add(e)
	})
	if err != nil {
		return nil, errors.New("add", err).WithSubmodule(e.Name)
	}

	m.log.Infow("submodule added", "name", e.Name, "path", e.Path, "sparse", len(e.SparsePaths) > 0)
	return e, nil
}

func checkUnique(cfg *config.Configuration, e *config.SubmoduleEntry) error {
	if _, exists := cfg.Get(e.Name); exists {
		return fmt.Errorf("%w: %q", errors.ErrNameCollision, e.Name)
	}
	if other, exists := cfg.ByPath(e.Path); exists {
		return fmt.Errorf("%w: %s is configured as %q", errors.ErrPathConflict, e.Path, other.Name)
	}
	return nil
}

// clone removes stale state at the target path, adds the submodule and
// applies its sparse patterns
func (m *Manager) clone(ctx context.Context, cfg *config.Configuration, e *config.SubmoduleEntry) error {
	if err := m.cleanupStale(ctx, e.Path); err != nil {
		return err
	}
	if err := m.backend.AddSubmodule(ctx, addOptions(cfg, e)); err != nil {
		return err
	}
	if e.HasSparse() {
		return m.configureSparse(ctx, e)
	}
	return nil
}

// cleanupStale deinitializes and deletes a submodule left registered at
// path by an earlier interrupted run
func (m *Manager) cleanupStale(ctx context.Context, path string) error {
	stale, err := m.registered(ctx, path)
	if err != nil || !stale {
		return err
	}
	m.log.Warnw("removing stale submodule state", "path", path)
	if err := m.backend.DeinitSubmodule(ctx, path, true); err != nil && !errors.IsNotFound(err) {
		return err
	}
	if err := m.backend.DeleteSubmodule(ctx, path); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

// configureSparse enables sparse checkout, writes the patterns and
// applies them to the working tree. Every step is idempotent.
func (m *Manager) configureSparse(ctx context.Context, e *config.SubmoduleEntry) error {
	if err := m.backend.EnableSparseCheckout(ctx, e.Path); err != nil {
		return err
	}
	if err := m.backend.SetSparsePatterns(ctx, e.Path, e.SparsePaths); err != nil {
		return err
	}
	return m.backend.ApplySparseCheckout(ctx, e.Path)
}
