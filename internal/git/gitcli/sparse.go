package gitcli

import (
	"context"
	"os"

	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

func (b *Backend) sparseFail(op, path string, err error) error {
	return errors.New(op, classify(err)).WithBackend(Name).WithSubmodule(path).WithKind(errors.KindSparse)
}

func (b *Backend) submoduleGitDir(path string) (string, error) {
	abs, err := b.repo(path)
	if err != nil {
		return "", err
	}
	return git.ResolveGitDir(abs)
}

// EnableSparseCheckout sets core.sparseCheckout in the submodule and
// creates an empty control file when there is none
func (b *Backend) EnableSparseCheckout(ctx context.Context, path string) error {
	gitDir, err := b.submoduleGitDir(path)
	if err != nil {
		return b.fail("sparse-enable", path, err)
	}
	if _, err := b.runIn(ctx, path, "config", "core.sparseCheckout", "true"); err != nil {
		return b.sparseFail("sparse-enable", path, err)
	}
	if _, err := os.Stat(git.SparseFile(gitDir)); os.IsNotExist(err) {
		if err := git.WriteSparsePatterns(gitDir, nil); err != nil {
			return b.sparseFail("sparse-enable", path, err)
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
		return b.sparseFail("sparse-set", path, err)
	}
	return nil
}

// SparsePatterns returns the submodule's control file patterns, nil when
// the file does not exist
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
		return nil, b.sparseFail("sparse-get", path, err)
	}
	return patterns, nil
}

// ApplySparseCheckout updates the submodule's working tree to match its
// control file
func (b *Backend) ApplySparseCheckout(ctx context.Context, path string) error {
	if _, err := b.repo(path); err != nil {
		return b.fail("sparse-apply", path, err)
	}
	if _, err := b.runIn(ctx, path, "read-tree", "-mu", "HEAD"); err != nil {
		return b.sparseFail("sparse-apply", path, err)
	}
	return nil
}
