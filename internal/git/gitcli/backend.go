// Package gitcli implements git.Backend by running the git executable. It
// covers the whole contract, including the stash, reset, clean and
// sparse-checkout operations go-git lacks.
package gitcli

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/token"
	"github.com/NicabarNimble/submod/internal/urlutils"
)

// Name identifies this backend in logs and errors
const Name = "git-cli"

// Backend runs git in the superproject at root
type Backend struct {
	root   string
	fs     billy.Filesystem
	runner git.Runner
	creds  git.Credentials
	log    *zap.SugaredLogger
}

var _ git.Backend = (*Backend)(nil)

// Option configures a Backend
type Option func(*Backend)

// WithCredentials supplies HTTPS tokens, sent as an Authorization header
func WithCredentials(c git.Credentials) Option {
	return func(b *Backend) { b.creds = c }
}

// New creates a backend for the superproject at root
func New(root string, runner git.Runner, log *zap.SugaredLogger, opts ...Option) *Backend {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &Backend{root: root, fs: osfs.New(root), runner: runner, log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "git-cli"
func (b *Backend) Name() string {
	return Name
}

func (b *Backend) fail(op, submodule string, err error) error {
	return errors.New(op, err).WithBackend(Name).WithSubmodule(submodule)
}

// run executes git in the superproject
func (b *Backend) run(ctx context.Context, args ...string) ([]byte, error) {
	return b.runner.Run(ctx, b.root, args...)
}

// runIn executes git inside the submodule checked out at path
func (b *Backend) runIn(ctx context.Context, path string, args ...string) ([]byte, error) {
	return b.runner.Run(ctx, b.abs(path), args...)
}

func (b *Backend) abs(path string) string {
	return filepath.Join(b.root, filepath.FromSlash(path))
}

// remoteArgs returns the -c options needed to reach rawURL: local clones
// must be allowed explicitly since git 2.38, and HTTPS tokens are sent as
// a header scoped to the remote's host
func (b *Backend) remoteArgs(ctx context.Context, rawURL string) []string {
	remote, err := urlutils.Parse(rawURL)
	if err != nil || urlutils.IsRelative(rawURL) {
		return []string{"-c", "protocol.file.allow=always"}
	}
	switch remote.Kind {
	case urlutils.KindFile, urlutils.KindLocal:
		return []string{"-c", "protocol.file.allow=always"}
	case urlutils.KindHTTPS:
		if b.creds == nil {
			return nil
		}
		tok, ok := b.creds.TokenFor(ctx, rawURL)
		if !ok {
			return nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil
		}
		basic := base64.StdEncoding.EncodeToString([]byte(token.Username(rawURL) + ":" + tok))
		scope := fmt.Sprintf("https://%s/", u.Host)
		return []string{"-c", fmt.Sprintf("http.%s.extraHeader=Authorization: Basic %s", scope, basic)}
	}
	return nil
}

func stderrContains(err error, text string) bool {
	var cmdErr *git.CommandError
	if errors.As(err, &cmdErr) {
		return strings.Contains(strings.ToLower(cmdErr.Stderr), strings.ToLower(text))
	}
	return false
}

// parseConfigList parses the output of git config -z --list
func parseConfigList(out []byte) map[string]string {
	values := make(map[string]string)
	for _, record := range bytes.Split(out, []byte{0}) {
		if len(record) == 0 {
			continue
		}
		key, value, found := strings.Cut(string(record), "\n")
		if !found {
			// a key without "=" is an implicit true
			value = "true"
		}
		values[key] = value
	}
	return values
}

func levelFlag(level git.ConfigLevel) (string, error) {
	switch level {
	case git.LevelLocal, "":
		return "--local", nil
	case git.LevelGlobal:
		return "--global", nil
	case git.LevelSystem:
		return "--system", nil
	case git.LevelWorktree:
		return "--worktree", nil
	}
	return "", fmt.Errorf("%w: unknown config level %q", errors.ErrInvalidConfig, level)
}

// ReadGitmodules parses .gitmodules with git config
func (b *Backend) ReadGitmodules(ctx context.Context) (map[string]*config.SubmoduleEntry, error) {
	entries, err := b.readGitmodules(ctx)
	if err != nil {
		return nil, b.fail("read-gitmodules", "", err)
	}
	return entries, nil
}

func (b *Backend) readGitmodules(ctx context.Context) (map[string]*config.SubmoduleEntry, error) {
	if _, err := b.fs.Stat(git.GitmodulesFile); os.IsNotExist(err) {
		return map[string]*config.SubmoduleEntry{}, nil
	}
	out, err := b.run(ctx, "config", "--file", git.GitmodulesFile, "-z", "--list")
	if err != nil {
		return nil, err
	}

	options := make(map[string]map[string]string)
	for key, value := range parseConfigList(out) {
		section, name, opt, err := git.SplitKey(key)
		if err != nil || section != "submodule" || name == "" {
			continue
		}
		if options[name] == nil {
			options[name] = make(map[string]string)
		}
		options[name][opt] = value
	}

	entries := make(map[string]*config.SubmoduleEntry, len(options))
	for name, opts := range options {
		entries[name] = git.EntryFromOptions(name, opts)
	}
	return entries, nil
}

func (b *Backend) entryByPath(ctx context.Context, path string) (*config.SubmoduleEntry, map[string]*config.SubmoduleEntry, error) {
	entries, err := b.readGitmodules(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, ok := git.FindByPath(entries, path)
	if !ok {
		return nil, entries, fmt.Errorf("%w: no submodule registered at %s", errors.ErrSubmoduleNotFound, path)
	}
	return e, entries, nil
}

// WriteGitmodules makes the submodule sections of .gitmodules match
// entries
func (b *Backend) WriteGitmodules(ctx context.Context, entries map[string]*config.SubmoduleEntry) error {
	if err := b.writeGitmodules(ctx, entries); err != nil {
		return b.fail("write-gitmodules", "", err)
	}
	return nil
}

var managedKeys = []string{
	git.KeyPath, git.KeyURL, git.KeyBranch, git.KeyIgnore,
	git.KeyUpdate, git.KeyFetchRecurse, git.KeyShallow,
}

func (b *Backend) writeGitmodules(ctx context.Context, entries map[string]*config.SubmoduleEntry) error {
	current, err := b.readGitmodules(ctx)
	if err != nil {
		return err
	}
	for _, name := range git.SortedNames(current) {
		if _, keep := entries[name]; keep {
			continue
		}
		if err := b.removeSection(ctx, []string{"--file", git.GitmodulesFile}, git.SectionName(name)); err != nil {
			return err
		}
	}
	for _, name := range git.SortedNames(entries) {
		if err := b.writeEntry(ctx, entries[name]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) writeEntry(ctx context.Context, e *config.SubmoduleEntry) error {
	prefix := git.SectionName(e.Name) + "."
	for _, key := range managedKeys {
		_, err := b.run(ctx, "config", "--file", git.GitmodulesFile, "--unset-all", prefix+key)
		// 5: the key was not set
		if err != nil && git.ExitCode(err) != 5 {
			return err
		}
	}
	for _, o := range git.EntryOptions(e) {
		if _, err := b.run(ctx, "config", "--file", git.GitmodulesFile, prefix+o.Key, o.Value); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) removeSection(ctx context.Context, fileArgs []string, section string) error {
	args := append([]string{"config"}, fileArgs...)
	args = append(args, "--remove-section", section)
	_, err := b.run(ctx, args...)
	if err != nil && stderrContains(err, "no such section") {
		return nil
	}
	return err
}

// ReadGitConfig lists one config level. A level whose file does not
// exist is empty.
func (b *Backend) ReadGitConfig(ctx context.Context, level git.ConfigLevel) (map[string]string, error) {
	values, err := b.readGitConfig(ctx, level)
	if err != nil {
		return nil, b.fail("read-config", "", err)
	}
	return values, nil
}

func (b *Backend) readGitConfig(ctx context.Context, level git.ConfigLevel) (map[string]string, error) {
	flag, err := levelFlag(level)
	if err != nil {
		return nil, err
	}
	out, err := b.run(ctx, "config", flag, "-z", "--list")
	if err != nil {
		if stderrContains(err, "no such file or directory") {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return parseConfigList(out), nil
}

// SetGitConfig sets key at level
func (b *Backend) SetGitConfig(ctx context.Context, key, value string, level git.ConfigLevel) error {
	if _, _, _, err := git.SplitKey(key); err != nil {
		return b.fail("set-config", "", err)
	}
	flag, err := levelFlag(level)
	if err != nil {
		return b.fail("set-config", "", err)
	}
	if _, err := b.run(ctx, "config", flag, key, value); err != nil {
		return b.fail("set-config", "", err)
	}
	return nil
}

// RemoveGitConfigSection removes section at level. Removing a missing
// section is not an error.
func (b *Backend) RemoveGitConfigSection(ctx context.Context, section string, level git.ConfigLevel) error {
	flag, err := levelFlag(level)
	if err != nil {
		return b.fail("remove-config-section", "", err)
	}
	if err := b.removeSection(ctx, []string{flag}, section); err != nil {
		return b.fail("remove-config-section", "", err)
	}
	return nil
}
