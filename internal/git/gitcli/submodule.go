package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
)

// stderr fragments git prints for conditions submod reports as sentinels
var stderrSentinels = []struct {
	text string
	err  error
}{
	{"already exists in the index", errors.ErrPathConflict},
	{"already exists and is not a valid git repo", errors.ErrPathConflict},
	{"contains local modifications", errors.ErrUncommittedChanges},
	{"contains modified content", errors.ErrUncommittedChanges},
	{"no submodule mapping found", errors.ErrSubmoduleNotFound},
	{"no url found for submodule", errors.ErrSubmoduleNotFound},
	{"did not match any file(s) known to git", errors.ErrSubmoduleNotFound},
	{"not a git repository", errors.ErrRepositoryNotFound},
}

// classify attaches the matching sentinel to a failed git command
func classify(err error) error {
	for _, s := range stderrSentinels {
		if stderrContains(err, s.text) {
			return fmt.Errorf("%w: %w", s.err, err)
		}
	}
	return err
}

func (b *Backend) failCmd(op, submodule string, err error) error {
	return b.fail(op, submodule, classify(err))
}

// AddSubmodule runs git submodule add and writes the remaining rules to
// .gitmodules. With NoInit only the .gitmodules entry is written.
func (b *Backend) AddSubmodule(ctx context.Context, opts git.AddOptions) error {
	if err := b.add(ctx, opts); err != nil {
		return b.failCmd("add", opts.Name, err)
	}
	return nil
}

func (b *Backend) add(ctx context.Context, opts git.AddOptions) error {
	if err := config.ValidateName(opts.Name); err != nil {
		return err
	}
	if opts.Path == "" || opts.URL == "" {
		return fmt.Errorf("%w: path and url are required", errors.ErrInvalidConfig)
	}
	entries, err := b.readGitmodules(ctx)
	if err != nil {
		return err
	}
	if _, ok := entries[opts.Name]; ok {
		return fmt.Errorf("%w: %q", errors.ErrNameCollision, opts.Name)
	}
	if e, ok := git.FindByPath(entries, opts.Path); ok {
		return fmt.Errorf("%w: %s is registered as %q", errors.ErrPathConflict, opts.Path, e.Name)
	}
	if err := b.checkTarget(opts.Path); err != nil {
		return err
	}

	entry := opts.Entry()
	if opts.NoInit {
		if err := b.writeEntry(ctx, entry); err != nil {
			return err
		}
		_, err := b.run(ctx, "add", "--", git.GitmodulesFile)
		return err
	}

	args := b.remoteArgs(ctx, opts.URL)
	args = append(args, "submodule", "add", "--name", opts.Name)
	if branch := opts.Branch.Name(); branch != "" {
		args = append(args, "-b", branch)
	}
	if opts.Shallow {
		args = append(args, "--depth", "1")
	}
	args = append(args, "--", opts.URL, opts.Path)

	modules, created := b.moduleDir(opts.Name)
	if _, err := b.run(ctx, args...); err != nil {
		if created {
			if rmErr := os.RemoveAll(modules); rmErr != nil {
				b.log.Warnw("failed to remove module storage", "name", opts.Name, "error", rmErr)
			}
		}
		return err
	}

	// submodule add records path, url and a named branch
	current, err := b.readGitmodules(ctx)
	if err != nil {
		return err
	}
	if written, ok := current[opts.Name]; ok {
		entry.URL = written.URL
	}
	if err := b.writeEntry(ctx, entry); err != nil {
		return err
	}
	if _, err := b.run(ctx, "add", "--", git.GitmodulesFile); err != nil {
		return err
	}
	b.log.Debugw("submodule added", "name", opts.Name, "path", opts.Path)
	return nil
}

// checkTarget fails unless path is missing or an empty directory
func (b *Backend) checkTarget(path string) error {
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is a file", errors.ErrPathConflict, path)
	}
	infos, err := b.fs.ReadDir(path)
	if err != nil {
		return err
	}
	if len(infos) > 0 {
		return fmt.Errorf("%w: %s is not empty", errors.ErrPathConflict, path)
	}
	return nil
}

// moduleDir returns the storage directory of submodule name and whether
// it does not exist yet
func (b *Backend) moduleDir(name string) (string, bool) {
	gitDir, err := git.ResolveGitDir(b.root)
	if err != nil {
		return "", false
	}
	dir := filepath.Join(gitDir, "modules", filepath.FromSlash(name))
	_, err = os.Stat(dir)
	return dir, os.IsNotExist(err)
}

// InitSubmodule copies the submodule's url into the superproject config
func (b *Backend) InitSubmodule(ctx context.Context, path string) error {
	e, _, err := b.entryByPath(ctx, path)
	if err != nil {
		return b.fail("init", "", err)
	}
	if _, err := b.run(ctx, "submodule", "init", "--", path); err != nil {
		return b.failCmd("init", e.Name, err)
	}
	return nil
}

// UpdateSubmodule runs git submodule update with the requested strategy
func (b *Backend) UpdateSubmodule(ctx context.Context, path string, opts git.UpdateOptions) error {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = config.UpdateCheckout
	}
	if strategy == config.UpdateNone {
		b.log.Debugw("update strategy is none, skipping", "path", path)
		return nil
	}

	e, _, err := b.entryByPath(ctx, path)
	if err != nil {
		return b.fail("update", "", err)
	}

	args := b.remoteArgs(ctx, e.URL)
	args = append(args, "submodule", "update")
	if opts.Init {
		args = append(args, "--init")
	}
	if opts.Recursive {
		args = append(args, "--recursive")
	}
	if opts.Remote {
		args = append(args, "--remote")
	}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	switch strategy {
	case config.UpdateCheckout:
		args = append(args, "--checkout")
	case config.UpdateMerge:
		args = append(args, "--merge")
	case config.UpdateRebase:
		args = append(args, "--rebase")
	default:
		return b.fail("update", e.Name, fmt.Errorf("%w: %s", errors.ErrUnsupportedStrategy, strategy))
	}
	args = append(args, "--", path)

	if _, err := b.run(ctx, args...); err != nil {
		return b.failCmd("update", e.Name, err)
	}
	return nil
}

// DeleteSubmodule removes the gitlink from the index, the working
// directory, the .gitmodules entry, the config section and the module
// storage.
func (b *Backend) DeleteSubmodule(ctx context.Context, path string) error {
	name, err := b.delete(ctx, path)
	if err != nil {
		return b.failCmd("delete", name, err)
	}
	return nil
}

func (b *Backend) delete(ctx context.Context, path string) (string, error) {
	e, _, err := b.entryByPath(ctx, path)
	if err != nil {
		return "", err
	}
	if _, err := b.run(ctx, "rm", "--cached", "-f", "-q", "--ignore-unmatch", "--", path); err != nil {
		return e.Name, err
	}
	if err := os.RemoveAll(b.abs(path)); err != nil {
		return e.Name, err
	}
	if err := b.removeSection(ctx, []string{"--file", git.GitmodulesFile}, git.SectionName(e.Name)); err != nil {
		return e.Name, err
	}
	if _, err := b.run(ctx, "add", "--", git.GitmodulesFile); err != nil {
		return e.Name, err
	}
	if err := b.removeSection(ctx, []string{"--local"}, git.SectionName(e.Name)); err != nil {
		return e.Name, err
	}
	if dir, missing := b.moduleDir(e.Name); dir != "" && !missing {
		return e.Name, os.RemoveAll(dir)
	}
	return e.Name, nil
}

// DeinitSubmodule runs git submodule deinit. Without force git refuses
// when the submodule has local modifications.
func (b *Backend) DeinitSubmodule(ctx context.Context, path string, force bool) error {
	e, _, err := b.entryByPath(ctx, path)
	if err != nil {
		return b.fail("deinit", "", err)
	}
	args := []string{"submodule", "deinit"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, "--", path)
	if _, err := b.run(ctx, args...); err != nil {
		return b.failCmd("deinit", e.Name, err)
	}
	return nil
}

// repo returns the absolute path of the submodule checkout at path. It
// fails when path holds no repository, so commands never fall through to
// the superproject.
func (b *Backend) repo(path string) (string, error) {
	abs := b.abs(path)
	if !git.HasGitMarker(abs) {
		return "", fmt.Errorf("%w: %s is not checked out", errors.ErrRepositoryNotFound, path)
	}
	return abs, nil
}

// FetchSubmodule fetches the submodule's remote
func (b *Backend) FetchSubmodule(ctx context.Context, path string, opts git.FetchOptions) error {
	if _, err := b.repo(path); err != nil {
		return b.fail("fetch", path, err)
	}
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	var args []string
	if out, err := b.runIn(ctx, path, "remote", "get-url", remote); err == nil {
		args = b.remoteArgs(ctx, strings.TrimSpace(string(out)))
	}
	args = append(args, "fetch")
	if opts.Prune {
		args = append(args, "--prune")
	}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	args = append(args, remote)
	if _, err := b.runIn(ctx, path, args...); err != nil {
		return b.failCmd("fetch", path, err)
	}
	return nil
}

// ResetSubmodule resets the submodule to its HEAD
func (b *Backend) ResetSubmodule(ctx context.Context, path string, opts git.ResetOptions) error {
	if _, err := b.repo(path); err != nil {
		return b.fail("reset", path, err)
	}
	mode := "--mixed"
	if opts.Hard {
		mode = "--hard"
	}
	if _, err := b.runIn(ctx, path, "reset", mode, "HEAD"); err != nil {
		return b.failCmd("reset", path, err)
	}
	return nil
}

// CleanSubmodule removes untracked files from the submodule
func (b *Backend) CleanSubmodule(ctx context.Context, path string, opts git.CleanOptions) error {
	if _, err := b.repo(path); err != nil {
		return b.fail("clean", path, err)
	}
	args := []string{"clean", "-f"}
	if opts.Directories {
		args = append(args, "-d")
	}
	if opts.Ignored {
		args = append(args, "-x")
	}
	if _, err := b.runIn(ctx, path, args...); err != nil {
		return b.failCmd("clean", path, err)
	}
	return nil
}

const noLocalChanges = "No local changes to save"

// StashSubmodule stashes the submodule's local changes. It returns
// errors.ErrNothingToStash when the working tree is clean.
func (b *Backend) StashSubmodule(ctx context.Context, path string, opts git.StashOptions) error {
	if _, err := b.repo(path); err != nil {
		return b.fail("stash", path, err)
	}
	args := []string{"stash", "push"}
	if opts.IncludeUntracked {
		args = append(args, "--include-untracked")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	out, err := b.runIn(ctx, path, args...)
	if err != nil {
		return b.failCmd("stash", path, err)
	}
	if strings.Contains(string(out), noLocalChanges) {
		return b.fail("stash", path, errors.ErrNothingToStash)
	}
	return nil
}
