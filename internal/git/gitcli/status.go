package gitcli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// SubmoduleStatus assembles the status of the submodule at path from
// ls-tree, ls-files and the submodule's own git status
func (b *Backend) SubmoduleStatus(ctx context.Context, path string) (*git.DetailedStatus, error) {
	st, err := b.status(ctx, path)
	if err != nil {
		return nil, b.failCmd("status", path, err)
	}
	return st, nil
}

func (b *Backend) status(ctx context.Context, path string) (*git.DetailedStatus, error) {
	entries, err := b.readGitmodules(ctx)
	if err != nil {
		return nil, err
	}
	st := &git.DetailedStatus{Path: path}
	if e, ok := git.FindByPath(entries, path); ok {
		st.ApplyRules(e)
	}

	// an unborn HEAD has no tree to list
	if out, err := b.run(ctx, "ls-tree", "-z", "HEAD", "--", path); err == nil {
		if oid, ok := gitlinkOID(out, path, 2); ok {
			st.Flags |= git.StatusInHead
			st.HeadOID = oid
		}
	}
	out, err := b.run(ctx, "ls-files", "-s", "-z", "--", path)
	if err != nil {
		return nil, err
	}
	if oid, ok := gitlinkOID(out, path, 1); ok {
		st.Flags |= git.StatusInIndex
		st.IndexOID = oid
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
		local, err := b.readGitConfig(ctx, git.LevelLocal)
		if err != nil {
			return nil, err
		}
		prefix := git.SectionName(st.Name) + "."
		st.Active = local[prefix+"url"] != "" && local[prefix+"active"] != "false"
	}

	if err := b.inspectWorkdir(ctx, st); err != nil {
		return nil, err
	}
	st.HasModifications = st.Flags.Modified(st.Ignore)
	return st, nil
}

// gitlinkOID extracts the object id of a gitlink from ls-tree output
// (field 2: "<mode> commit <oid>\t<path>") or ls-files -s output
// (field 1: "<mode> <oid> <stage>\t<path>")
func gitlinkOID(out []byte, path string, field int) (string, bool) {
	for _, record := range bytes.Split(out, []byte{0}) {
		meta, name, found := strings.Cut(string(record), "\t")
		if !found || name != path {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) <= field || fields[0] != "160000" {
			continue
		}
		return fields[field], true
	}
	return "", false
}

func (b *Backend) inspectWorkdir(ctx context.Context, st *git.DetailedStatus) error {
	abs := b.abs(st.Path)
	fi, err := os.Stat(abs)
	if err != nil || !fi.IsDir() {
		return nil
	}
	st.Flags |= git.StatusInWorkdir

	if !git.HasGitMarker(abs) {
		st.Flags |= git.StatusWorkdirUninitialized
		return nil
	}
	if _, err := b.runIn(ctx, st.Path, "rev-parse", "--git-dir"); err != nil {
		st.Flags |= git.StatusWorkdirUninitialized
		b.log.Debugw("cannot open submodule repository", "path", st.Path, "error", err)
		return nil
	}
	st.Initialized = true

	if out, err := b.runIn(ctx, st.Path, "rev-parse", "HEAD"); err == nil {
		st.WorkdirOID = strings.TrimSpace(string(out))
	}
	if st.IndexOID != "" && st.WorkdirOID != "" && st.WorkdirOID != st.IndexOID {
		st.Flags |= git.StatusWorkdirModified
	}

	out, err := b.runIn(ctx, st.Path, "remote")
	if err != nil {
		return err
	}
	st.Remotes = strings.Fields(string(out))
	sort.Strings(st.Remotes)

	if gitDir, err := git.ResolveGitDir(abs); err == nil {
		if patterns, err := git.ReadSparsePatterns(gitDir); err == nil {
			st.SparsePatterns = patterns
		}
	}
	// exit status 1 means the key is unset
	if out, err := b.runIn(ctx, st.Path, "config", "--bool", "--get", "core.sparseCheckout"); err == nil {
		st.SparseEnabled = strings.TrimSpace(string(out)) == "true"
	}

	out, err = b.runIn(ctx, st.Path, "status", "--porcelain", "--ignore-submodules=none")
	if err != nil {
		return err
	}
	st.Flags |= porcelainFlags(out)

	if _, err := os.Stat(filepath.Join(abs, git.GitmodulesFile)); err == nil {
		st.HasNestedSubmodules = true
	}
	return nil
}

// porcelainFlags maps git status --porcelain lines to workdir flags.
// Files excluded by sparse checkout carry skip-worktree and are not
// listed.
func porcelainFlags(out []byte) git.StatusFlags {
	var flags git.StatusFlags
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		x, y := line[0], line[1]
		if x == '?' && y == '?' {
			flags |= git.StatusWorkdirUntracked
			continue
		}
		if x != ' ' {
			flags |= git.StatusWorkdirIndexModified
		}
		if y != ' ' {
			flags |= git.StatusWorkdirWorkdirModified
		}
	}
	return flags
}

// ListSubmodules returns the paths registered in .gitmodules, sorted
func (b *Backend) ListSubmodules(ctx context.Context) ([]string, error) {
	entries, err := b.readGitmodules(ctx)
	if err != nil {
		return nil, b.failCmd("list", "", err)
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
