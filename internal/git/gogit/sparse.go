package gogit

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

func (b *Backend) submoduleGitDir(path string) (string, error) {
	return git.ResolveGitDir(filepath.Join(b.root, filepath.FromSlash(path)))
}

// EnableSparseCheckout sets core.sparseCheckout in the submodule's config
// and creates an empty control file if there is none
func (b *Backend) EnableSparseCheckout(_ context.Context, path string) error {
	gitDir, err := b.submoduleGitDir(path)
	if err != nil {
		return b.fail("sparse-enable", path, err)
	}
	err = editConfigFile(osfs.New(gitDir), "config", func(cfg *format.Config) error {
		cfg.Section("core").SetOption("sparseCheckout", "true")
		return nil
	})
	if err != nil {
		return errors.New("sparse-enable", err).WithBackend(Name).WithSubmodule(path).WithKind(errors.KindSparse)
	}
	if _, err := os.Stat(git.SparseFile(gitDir)); os.IsNotExist(err) {
		if err := git.WriteSparsePatterns(gitDir, nil); err != nil {
			return b.fail("sparse-enable", path, err)
		}
	}
	return nil
}

// SetSparsePatterns replaces the submodule's control file
func (b *Backend) SetSparsePatterns(_ context.Context, path string, patterns []string) error {
	gitDir, err := b.submoduleGitDir(path)
	if err != nil {
		return b.fail("sparse-set", path, err)
	}
	if err := git.WriteSparsePatterns(gitDir, patterns); err != nil {
		return b.fail("sparse-set", path, err)
	}
	return nil
}

// SparsePatterns reads the submodule's control file. A missing file has
// no patterns.
func (b *Backend) SparsePatterns(_ context.Context, path string) ([]string, error) {
	gitDir, err := b.submoduleGitDir(path)
	if err != nil {
		return nil, b.fail("sparse-get", path, err)
	}
	patterns, err := git.ReadSparsePatterns(gitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, b.fail("sparse-get", path, err)
	}
	return patterns, nil
}

// ApplySparseCheckout is not implemented: go-git cannot prune a working
// tree to the control file
func (b *Backend) ApplySparseCheckout(context.Context, string) error {
	return errors.Unsupported("sparse-apply", Name)
}
