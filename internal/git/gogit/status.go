package gogit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// SubmoduleStatus inspects the superproject HEAD, index and config and
// the submodule's own working tree
func (b *Backend) SubmoduleStatus(ctx context.Context, path string) (*git.DetailedStatus, error) {
	st, err := b.status(ctx, path)
	if err != nil {
		return nil, b.fail("status", path, err)
	}
	return st, nil
}

func (b *Backend) status(_ context.Context, path string) (*git.DetailedStatus, error) {
	r, err := b.open()
	if err != nil {
		return nil, err
	}
	entries, err := b.readGitmodules()
	if err != nil {
		return nil, err
	}

	st := &git.DetailedStatus{Path: path}
	if e, ok := git.FindByPath(entries, path); ok {
		st.ApplyRules(e)
	}

	if head, err := r.Head(); err == nil {
		if commit, err := r.CommitObject(head.Hash()); err == nil {
			if tree, err := commit.Tree(); err == nil {
				if te, err := tree.FindEntry(path); err == nil && te.Mode == filemode.Submodule {
					st.Flags |= git.StatusInHead
					st.HeadOID = te.Hash.String()
				}
			}
		}
	}

	idx, err := r.Storer.Index()
	if err != nil {
		return nil, err
	}
	if ie, err := idx.Entry(path); err == nil && ie.Mode == filemode.Submodule {
		st.Flags |= git.StatusInIndex
		st.IndexOID = ie.Hash.String()
	}

	if !st.Flags.Has(git.StatusInConfig) && !st.Flags.Has(git.StatusInHead) && !st.Flags.Has(git.StatusInIndex) {
		return nil, fmt.Errorf("%w: %s", errors.ErrSubmoduleNotFound, path)
	}

	switch {
	case st.Flags.Has(git.StatusInIndex) && !st.Flags.Has(git.StatusInHead):
		st.Flags |= git.StatusIndexAdded
	case st.Flags.Has(git.StatusInHead) && !st.Flags.Has(git.StatusInIndex):
		st.Flags |= git.StatusIndexDeleted
	case st.HeadOID != st.IndexOID:
		st.Flags |= git.StatusIndexModified
	}

	if st.Name != "" {
		local, err := b.configValues(git.LevelLocal)
		if err != nil {
			return nil, err
		}
		prefix := git.SectionName(st.Name) + "."
		st.Active = local[prefix+"url"] != "" && local[prefix+"active"] != "false"
	}

	if err := b.inspectWorkdir(st); err != nil {
		return nil, err
	}
	st.HasModifications = st.Flags.Modified(st.Ignore)
	return st, nil
}

func (b *Backend) configValues(level git.ConfigLevel) (map[string]string, error) {
	fs, name, err := b.configFile(level)
	if err != nil {
		return nil, err
	}
	cfg, err := readConfigFile(fs, name)
	if err != nil {
		return nil, err
	}
	return flatten(cfg), nil
}

func (b *Backend) inspectWorkdir(st *git.DetailedStatus) error {
	fi, err := b.fs.Stat(st.Path)
	if err != nil || !fi.IsDir() {
		return nil
	}
	st.Flags |= git.StatusInWorkdir

	abs := filepath.Join(b.root, filepath.FromSlash(st.Path))
	if !git.HasGitMarker(abs) {
		st.Flags |= git.StatusWorkdirUninitialized
		return nil
	}
	sub, err := gogit.PlainOpen(abs)
	if err != nil {
		st.Flags |= git.StatusWorkdirUninitialized
		b.log.Debugw("cannot open submodule repository", "path", st.Path, "error", err)
		return nil
	}
	st.Initialized = true

	if head, err := sub.Head(); err == nil {
		st.WorkdirOID = head.Hash().String()
	}
	if st.IndexOID != "" && st.WorkdirOID != "" && st.WorkdirOID != st.IndexOID {
		st.Flags |= git.StatusWorkdirModified
	}

	remotes, err := sub.Remotes()
	if err != nil {
		return err
	}
	for _, r := range remotes {
		st.Remotes = append(st.Remotes, r.Config().Name)
	}
	sort.Strings(st.Remotes)

	if gitDir, err := git.ResolveGitDir(abs); err == nil {
		if patterns, err := git.ReadSparsePatterns(gitDir); err == nil {
			st.SparsePatterns = patterns
		}
	}
	if cfg, err := sub.Config(); err == nil {
		st.SparseEnabled = cfg.Raw.Section("core").Option("sparseCheckout") == "true"
	}

	wt, err := sub.Worktree()
	if err != nil {
		return err
	}
	files, err := wt.Status()
	if err != nil {
		return err
	}
	var skipped map[string]bool
	if st.SparseEnabled {
		if skipped, err = skipWorktree(sub); err != nil {
			return err
		}
	}
	for name, fs := range files {
		switch {
		case fs.Worktree == gogit.Untracked:
			st.Flags |= git.StatusWorkdirUntracked
			continue
		case st.SparseEnabled && fs.Worktree == gogit.Deleted && fs.Staging == gogit.Unmodified &&
			excludedBySparse(name, skipped, st.SparsePatterns):
			continue
		}
		if fs.Staging != gogit.Unmodified {
			st.Flags |= git.StatusWorkdirIndexModified
		}
		if fs.Worktree != gogit.Unmodified {
			st.Flags |= git.StatusWorkdirWorkdirModified
		}
	}

	if _, err := os.Stat(filepath.Join(abs, git.GitmodulesFile)); err == nil {
		st.HasNestedSubmodules = true
	}
	return nil
}

// skipWorktree returns the index paths carrying the skip-worktree bit
func skipWorktree(r *gogit.Repository) (map[string]bool, error) {
	idx, err := r.Storer.Index()
	if err != nil {
		return nil, err
	}
	skipped := make(map[string]bool)
	for _, e := range idx.Entries {
		if e.SkipWorktree {
			skipped[e.Name] = true
		}
	}
	return skipped, nil
}

// excludedBySparse reports whether a missing file is absent because sparse
// checkout left it out rather than because it was deleted
func excludedBySparse(name string, skipped map[string]bool, patterns []string) bool {
	if skipped[name] {
		return true
	}
	return len(patterns) > 0 && !git.SparseIncludes(patterns, name)
}

// ListSubmodules returns the paths registered in .gitmodules, sorted
func (b *Backend) ListSubmodules(_ context.Context) ([]string, error) {
	entries, err := b.readGitmodules()
	if err != nil {
		return nil, b.fail("list", "", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Path != "" {
			paths = append(paths, e.Path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
