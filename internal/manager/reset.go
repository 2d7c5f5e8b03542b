package manager

import (
	"context"
	"fmt"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

const stashMessage = "submod reset"

// ResetResult is the outcome of resetting one submodule
type ResetResult struct {
	Name string `json:"name" yaml:"name"`
	// Warning is set when the stash step failed without aborting the reset
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
	Err     error  `json:"-" yaml:"-"`
}

// OK reports whether the submodule was reset
func (r ResetResult) OK() bool {
	return r.Err == nil
}

// Reset stashes local changes, hard resets to HEAD and removes untracked
// files and directories, for every active submodule when all is set or
// for the named ones otherwise. A failing submodule does not stop the
// others; the returned error summarises the failures.
func (m *Manager) Reset(ctx context.Context, all bool, names []string) ([]ResetResult, error) {
	if !all && len(names) == 0 {
		return nil, errors.New("reset", fmt.Errorf("%w: name at least one submodule or use --all", errors.ErrInvalidConfig))
	}
	cfg, err := m.store.Load()
	if err != nil {
		return nil, errors.New("reset", err)
	}

	var targets []*config.SubmoduleEntry
	var results []ResetResult
	if all {
		targets = cfg.ActiveEntries()
	} else {
		for _, name := range names {
			e, err := lookup(cfg, name)
			if err != nil {
				results = append(results, ResetResult{Name: name, Err: errors.New("reset", err).WithSubmodule(name)})
				continue
			}
			targets = append(targets, e)
		}
	}

	for i, e := range targets {
		m.tracker.Start("reset " + e.Name)
		m.tracker.Update(int64(i+1), int64(len(targets)))
		res := m.reset(ctx, e)
		if res.Err != nil {
			m.tracker.Error(res.Err)
			m.log.Errorw("reset failed", "name", e.Name, "error", res.Err)
		} else {
			m.tracker.Complete()
		}
		results = append(results, res)
	}

	var failed []error
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Err)
		}
	}
	if len(failed) > 0 {
		return results, errors.New("reset", fmt.Errorf("%d of %d submodules failed: %w",
			len(failed), len(results), errors.Join(failed...)))
	}
	return results, nil
}

func (m *Manager) reset(ctx context.Context, e *config.SubmoduleEntry) ResetResult {
	res := ResetResult{Name: e.Name}
	if err := e.Validate(); err != nil {
		res.Err = errors.New("reset", err).WithSubmodule(e.Name)
		return res
	}

	err := m.backend.StashSubmodule(ctx, e.Path, git.StashOptions{IncludeUntracked: true, Message: stashMessage})
	switch {
	case err == nil:
	case errors.IsSoft(err):
		m.log.Debugw("nothing to stash", "name", e.Name)
	default:
		res.Warning = err.Error()
		m.log.Warnw("stash failed, continuing reset", "name", e.Name, "error", err)
	}

	if err := m.backend.ResetSubmodule(ctx, e.Path, git.ResetOptions{Hard: true}); err != nil {
		res.Err = errors.New("reset", err).WithSubmodule(e.Name)
		return res
	}
	if err := m.backend.CleanSubmodule(ctx, e.Path, git.CleanOptions{Directories: true}); err != nil {
		res.Err = errors.New("clean", err).WithSubmodule(e.Name)
		return res
	}
	return res
}
