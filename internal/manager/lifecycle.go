package manager

import (
	"context"
	"fmt"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// UpdateRequest holds per-invocation update flags
type UpdateRequest struct {
	Remote    bool
	Recursive bool
}

// Init brings the named submodule onto disk. A path that already holds a
// repository is not cloned again, but its sparse patterns are reapplied.
// A path missing from .gitmodules is added from scratch; a registered one
// is initialized and checked out.
func (m *Manager) Init(ctx context.Context, name string) error {
	cfg, err := m.store.Load()
	if err != nil {
		return errors.New("init", err).WithSubmodule(name)
	}
	e, err := lookup(cfg, name)
	if err != nil {
		return errors.New("init", err).WithSubmodule(name)
	}
	if err := m.init(ctx, cfg, e); err != nil {
		return errors.New("init", err).WithSubmodule(name)
	}
	return nil
}

// InitAll initializes every active submodule in name order, stopping at
// the first failure
func (m *Manager) InitAll(ctx context.Context) error {
	cfg, err := m.store.Load()
	if err != nil {
		return errors.New("init", err)
	}
	return m.each("init", cfg.ActiveEntries(), func(e *config.SubmoduleEntry) error {
		return m.init(ctx, cfg, e)
	})
}

func (m *Manager) init(ctx context.Context, cfg *config.Configuration, e *config.SubmoduleEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if m.live(e.Path) {
		m.log.Debugw("submodule already checked out", "name", e.Name, "path", e.Path)
		if e.HasSparse() {
			return m.configureSparse(ctx, e)
		}
		return nil
	}

	registered, err := m.registered(ctx, e.Path)
	if err != nil {
		return err
	}
	if !registered {
		m.log.Infow("submodule not registered, adding", "name", e.Name, "path", e.Path)
		return m.clone(ctx, cfg, e)
	}

	if err := m.backend.InitSubmodule(ctx, e.Path); err != nil {
		return err
	}
	opts := git.UpdateOptions{Init: true, Strategy: config.UpdateCheckout}
	if e.Shallow {
		opts.Depth = 1
	}
	if err := m.backend.UpdateSubmodule(ctx, e.Path, opts); err != nil {
		return err
	}
	if e.HasSparse() {
		return m.configureSparse(ctx, e)
	}
	return nil
}

// Update moves the named submodule according to its effective update
// strategy
func (m *Manager) Update(ctx context.Context, name string, req UpdateRequest) error {
	cfg, err := m.store.Load()
	if err != nil {
		return errors.New("update", err).WithSubmodule(name)
	}
	e, err := lookup(cfg, name)
	if err != nil {
		return errors.New("update", err).WithSubmodule(name)
	}
	if err := m.update(ctx, cfg, e, req); err != nil {
		return errors.New("update", err).WithSubmodule(name)
	}
	return nil
}

// UpdateAll updates every active submodule in name order, stopping at
// the first failure
func (m *Manager) UpdateAll(ctx context.Context, req UpdateRequest) error {
	cfg, err := m.store.Load()
	if err != nil {
		return errors.New("update", err)
	}
	return m.each("update", cfg.ActiveEntries(), func(e *config.SubmoduleEntry) error {
		return m.update(ctx, cfg, e, req)
	})
}

func (m *Manager) update(ctx context.Context, cfg *config.Configuration, e *config.SubmoduleEntry, req UpdateRequest) error {
	if err := e.Validate(); err != nil {
		return err
	}
	opts := git.UpdateOptions{
		Strategy:  cfg.EffectiveUpdate(e),
		Remote:    req.Remote,
		Recursive: req.Recursive,
	}
	err := m.backend.UpdateSubmodule(ctx, e.Path, opts)
	if err == nil || !strategyUnsupported(err) {
		return err
	}

	// no backend in the chain can merge or rebase
	m.log.Warnw("update strategy not supported, falling back to checkout",
		"name", e.Name, "strategy", opts.Strategy, "error", err)
	opts.Strategy = config.UpdateCheckout
	return m.backend.UpdateSubmodule(ctx, e.Path, opts)
}

// strategyUnsupported reports whether no backend could run the requested
// strategy. A real merge or rebase failure on any backend is not
// downgraded.
func strategyUnsupported(err error) bool {
	var fe *errors.FallbackError
	if !errors.As(err, &fe) {
		return errors.Is(err, errors.ErrUnsupportedStrategy)
	}
	seen := false
	for _, a := range fe.Attempts {
		switch {
		case errors.Is(a.Err, errors.ErrUnsupportedStrategy):
			seen = true
		case errors.IsUnsupported(a.Err):
		default:
			return false
		}
	}
	return seen
}

// Delete removes the submodule from git and from the configuration
func (m *Manager) Delete(ctx context.Context, name string) error {
	err := m.store.Update(ctx, func(cfg *config.Configuration) error {
		e, err := lookup(cfg, name)
		if err != nil {
			return err
		}
		if e.Path != "" {
			if err := m.backend.DeleteSubmodule(ctx, e.Path); err != nil && !errors.IsNotFound(err) {
				return err
			}
		}
		cfg.Remove(name)
		return nil
	})
	if err != nil {
		return errors.New("delete", err).WithSubmodule(name)
	}
	m.log.Infow("submodule deleted", "name", name)
	return nil
}

// Disable marks the submodule inactive in git and in the configuration.
// The entry and its checkout are kept.
func (m *Manager) Disable(ctx context.Context, name string) error {
	err := m.store.Update(ctx, func(cfg *config.Configuration) error {
		e, err := lookup(cfg, name)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s.%s", git.SectionName(e.Name), git.KeyActive)
		if err := m.backend.SetGitConfig(ctx, key, "false", git.LevelLocal); err != nil {
			return err
		}
		e.Active = false
		return nil
	})
	if err != nil {
		return errors.New("disable", err).WithSubmodule(name)
	}
	return nil
}

// Deinit empties the submodule's working directory. The configuration
// entry is kept, so a later init restores it.
func (m *Manager) Deinit(ctx context.Context, name string, force bool) error {
	cfg, err := m.store.Load()
	if err != nil {
		return errors.New("deinit", err).WithSubmodule(name)
	}
	e, err := lookup(cfg, name)
	if err == nil {
		err = e.Validate()
	}
	if err == nil {
		err = m.backend.DeinitSubmodule(ctx, e.Path, force)
	}
	if err != nil {
		return errors.New("deinit", err).WithSubmodule(name)
	}
	return nil
}
