package manager

import (
	"context"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// ListItem is a configured submodule with its effective rules
type ListItem struct {
	Name         string              `json:"name" yaml:"name"`
	Path         string              `json:"path" yaml:"path"`
	URL          string              `json:"url" yaml:"url"`
	Active       bool                `json:"active" yaml:"active"`
	Branch       config.Branch       `json:"branch" yaml:"branch"`
	Ignore       config.Ignore       `json:"ignore" yaml:"ignore"`
	Update       config.Update       `json:"update" yaml:"update"`
	FetchRecurse config.FetchRecurse `json:"fetchRecurse" yaml:"fetchRecurse"`
	Shallow      bool                `json:"shallow" yaml:"shallow"`
	SparsePaths  []string            `json:"sparse_paths,omitempty" yaml:"sparse_paths,omitempty"`
	CheckedOut   bool                `json:"checkedOut" yaml:"checkedOut"`
}

// List returns the configured submodules sorted by name
func (m *Manager) List(_ context.Context) ([]ListItem, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return nil, errors.New("list", err)
	}
	items := make([]ListItem, 0, len(cfg.Submodules))
	for _, e := range cfg.Entries() {
		items = append(items, ListItem{
			Name:         e.Name,
			Path:         e.Path,
			URL:          e.URL,
			Active:       e.Active,
			Branch:       cfg.EffectiveBranch(e),
			Ignore:       cfg.EffectiveIgnore(e),
			Update:       cfg.EffectiveUpdate(e),
			FetchRecurse: cfg.EffectiveFetchRecurse(e),
			Shallow:      e.Shallow,
			SparsePaths:  e.SparsePaths,
			CheckedOut:   e.Path != "" && m.live(e.Path),
		})
	}
	return items, nil
}

// GenerateConfig imports the submodules registered in .gitmodules into
// the configuration file. Existing entries are kept unless overwrite is
// set. Sparse patterns are read from checked out submodules. It returns
// the names written.
func (m *Manager) GenerateConfig(ctx context.Context, overwrite bool) ([]string, error) {
	registered, err := m.backend.ReadGitmodules(ctx)
	if err != nil {
		return nil, errors.New("generate-config", err)
	}

	var written []string
	err = m.store.Update(ctx, func(cfg *config.Configuration) error {
		for _, name := range git.SortedNames(registered) {
			if _, exists := cfg.Get(name); exists && !overwrite {
				m.log.Debugw("keeping configured submodule", "name", name)
				continue
			}
			e := registered[name].Clone()
			e.Active = true
			if e.Path != "" && m.live(e.Path) {
				patterns, err := m.backend.SparsePatterns(ctx, e.Path)
				if err != nil {
					m.log.Warnw("cannot read sparse patterns", "name", name, "error", err)
				}
				e.SparsePaths = patterns
			}
			cfg.Set(e)
			written = append(written, name)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("generate-config", err)
	}
	return written, nil
}
