package manager

import (
	"context"
	"os"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// CheckState summarises one submodule in a check report
type CheckState string

const (
	CheckOK          CheckState = "ok"
	CheckDirty       CheckState = "dirty"
	CheckConfigError CheckState = "config-error"
	CheckMissing     CheckState = "missing"
	CheckNotRepo     CheckState = "not-a-repository"
	CheckError       CheckState = "error"
)

// CheckResult is the state of one configured submodule
type CheckResult struct {
	Name   string     `json:"name" yaml:"name"`
	Path   string     `json:"path,omitempty" yaml:"path,omitempty"`
	URL    string     `json:"url,omitempty" yaml:"url,omitempty"`
	Active bool       `json:"active" yaml:"active"`
	State  CheckState `json:"state" yaml:"state"`
	// Problems lists configuration errors of the entry
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`

	Clean     bool   `json:"clean" yaml:"clean"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	HasRemote bool   `json:"hasRemote" yaml:"hasRemote"`
	Nested    bool   `json:"nestedSubmodules" yaml:"nestedSubmodules"`

	Sparse *git.SparseStatus   `json:"sparse,omitempty" yaml:"sparse,omitempty"`
	Status *git.DetailedStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Healthy reports whether the submodule needs no attention
func (r CheckResult) Healthy() bool {
	if r.State != CheckOK {
		return false
	}
	return r.Sparse == nil || r.Sparse.State == git.SparseCorrect
}

// Check inspects every configured submodule. Problems with one entry are
// recorded in its result and do not stop the scan; the error is only set
// when the configuration itself cannot be loaded.
func (m *Manager) Check(ctx context.Context) ([]CheckResult, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return nil, errors.New("check", err)
	}

	entries := cfg.Entries()
	results := make([]CheckResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, m.check(ctx, e))
	}
	return results, nil
}

func (m *Manager) check(ctx context.Context, e *config.SubmoduleEntry) CheckResult {
	res := CheckResult{Name: e.Name, Path: e.Path, URL: e.URL, Active: e.Active}

	if problems := e.Problems(); len(problems) > 0 {
		res.State = CheckConfigError
		res.Problems = problems
		return res
	}
	abs := m.abs(e.Path)
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		res.State = CheckMissing
		return res
	}
	if !git.HasGitMarker(abs) {
		res.State = CheckNotRepo
		return res
	}

	st, err := m.backend.SubmoduleStatus(ctx, e.Path)
	if err != nil {
		res.State = CheckError
		res.Error = err.Error()
		return res
	}
	res.Status = st
	res.Clean = st.Clean()
	res.Commit = st.WorkdirOID
	res.HasRemote = len(st.Remotes) > 0
	res.Nested = st.HasNestedSubmodules

	res.State = CheckOK
	if !res.Clean {
		res.State = CheckDirty
	}

	if e.HasSparse() || st.SparseEnabled {
		sparse, err := git.CheckSparse(abs, e.SparsePaths)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Sparse = &sparse
		}
	}
	return res
}

// SparseStatus compares the named submodule's configured sparse paths
// with its control file
func (m *Manager) SparseStatus(_ context.Context, name string) (git.SparseStatus, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return git.SparseStatus{}, errors.New("sparse-status", err).WithSubmodule(name)
	}
	e, err := lookup(cfg, name)
	if err == nil {
		err = e.Validate()
	}
	if err != nil {
		return git.SparseStatus{}, errors.New("sparse-status", err).WithSubmodule(name)
	}
	status, err := git.CheckSparse(m.abs(e.Path), e.SparsePaths)
	if err != nil {
		return git.SparseStatus{}, errors.New("sparse-status", err).WithSubmodule(name).WithKind(errors.KindSparse)
	}
	return status, nil
}

// Sync runs Check, then Init and Update for every active submodule.
// Unlike Reset it stops at the first failing submodule.
func (m *Manager) Sync(ctx context.Context, req UpdateRequest) ([]CheckResult, error) {
	results, err := m.Check(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if !r.Healthy() {
			m.log.Infow("submodule needs attention", "name", r.Name, "state", r.State)
		}
	}

	cfg, err := m.store.Load()
	if err != nil {
		return results, errors.New("sync", err)
	}
	entries := cfg.ActiveEntries()
	if err := m.each("init", entries, func(e *config.SubmoduleEntry) error {
		return m.init(ctx, cfg, e)
	}); err != nil {
		return results, errors.New("sync", err)
	}
	if err := m.each("update", entries, func(e *config.SubmoduleEntry) error {
		return m.update(ctx, cfg, e, req)
	}); err != nil {
		return results, errors.New("sync", err)
	}
	return results, nil
}
