// Package gogit implements git.Backend on go-git. It runs no git
// executable. Operations go-git has no primitive for return an error
// matching errors.ErrUnsupported so that a fallback chain can hand them to
// the next backend.
package gogit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/progress"
	"github.com/NicabarNimble/submod/internal/token"
)

// Name identifies this backend in logs and errors
const Name = "go-git"

const submoduleSection = "submodule"

// Backend operates on the superproject at root
type Backend struct {
	root     string
	fs       billy.Filesystem
	creds    git.Credentials
	progress io.Writer
	log      *zap.SugaredLogger
}

var _ git.Backend = (*Backend)(nil)

// Option configures a Backend
type Option func(*Backend)

// WithCredentials supplies HTTPS tokens for clone and fetch
func WithCredentials(c git.Credentials) Option {
	return func(b *Backend) { b.creds = c }
}

// WithProgress streams clone and fetch progress to w
func WithProgress(w io.Writer) Option {
	return func(b *Backend) { b.progress = w }
}

// New creates a backend for the superproject working tree at root
func New(root string, log *zap.SugaredLogger, opts ...Option) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New("open", err).WithBackend(Name)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &Backend{root: abs, fs: osfs.New(abs), log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns "go-git"
func (b *Backend) Name() string {
	return Name
}

// Root returns the superproject working tree
func (b *Backend) Root() string {
	return b.root
}

func (b *Backend) fail(op, submodule string, err error) error {
	return errors.New(op, err).WithBackend(Name).WithSubmodule(submodule)
}

func (b *Backend) open() (*gogit.Repository, error) {
	r, err := gogit.PlainOpen(b.root)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", errors.ErrRepositoryNotFound, b.root)
		}
		return nil, err
	}
	return r, nil
}

// openSubmodule opens the repository checked out at path
func (b *Backend) openSubmodule(path string) (*gogit.Repository, error) {
	r, err := gogit.PlainOpen(filepath.Join(b.root, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: submodule at %s is not checked out", errors.ErrRepositoryNotFound, path)
		}
		return nil, err
	}
	return r, nil
}

func (b *Backend) auth(ctx context.Context, rawURL string) transport.AuthMethod {
	if b.creds == nil || !strings.HasPrefix(rawURL, "https://") {
		return nil
	}
	tok, ok := b.creds.TokenFor(ctx, rawURL)
	if !ok {
		return nil
	}
	return &githttp.BasicAuth{Username: token.Username(rawURL), Password: tok}
}

func (b *Backend) progressWriter(name string) *progress.Writer {
	if b.progress == nil {
		return nil
	}
	return progress.NewWriter(name+": ", b.progress)
}

// readConfigFile decodes a git config file. A missing file is empty.
func readConfigFile(fs billy.Filesystem, name string) (*format.Config, error) {
	cfg := format.New()
	f, err := fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := format.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, name, err)
	}
	return cfg, nil
}

// writeConfigFile encodes cfg into a temporary file and renames it over name
func writeConfigFile(fs billy.Filesystem, name string, cfg *format.Config) error {
	var buf bytes.Buffer
	if err := format.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}

	dir := filepath.Dir(name)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := util.TempFile(fs, dir, "."+filepath.Base(name)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmp.Name())
		return err
	}
	if err := fs.Rename(tmp.Name(), name); err != nil {
		fs.Remove(tmp.Name())
		return err
	}
	return nil
}

func editConfigFile(fs billy.Filesystem, name string, edit func(*format.Config) error) error {
	cfg, err := readConfigFile(fs, name)
	if err != nil {
		return err
	}
	if err := edit(cfg); err != nil {
		return err
	}
	return writeConfigFile(fs, name, cfg)
}

// configFile locates the file backing a config level
func (b *Backend) configFile(level git.ConfigLevel) (billy.Filesystem, string, error) {
	switch level {
	case git.LevelLocal, git.LevelWorktree:
		gitDir, err := git.ResolveGitDir(b.root)
		if err != nil {
			return nil, "", err
		}
		name := "config"
		if level == git.LevelWorktree {
			name = "config.worktree"
		}
		return osfs.New(gitDir), name, nil
	case git.LevelGlobal, git.LevelSystem:
		scope := gitconfig.GlobalScope
		if level == git.LevelSystem {
			scope = gitconfig.SystemScope
		}
		paths, err := gitconfig.Paths(scope)
		if err != nil {
			return nil, "", err
		}
		if len(paths) == 0 {
			return nil, "", fmt.Errorf("no %s config file location", level)
		}
		path := paths[0]
		for _, p := range paths {
			if filepath.Base(p) == ".gitconfig" {
				path = p
			}
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		return osfs.New(filepath.Dir(path)), filepath.Base(path), nil
	default:
		return nil, "", fmt.Errorf("%w: unknown config level %q", errors.ErrInvalidConfig, level)
	}
}

// ReadGitmodules parses .gitmodules in the superproject working tree
func (b *Backend) ReadGitmodules(_ context.Context) (map[string]*config.SubmoduleEntry, error) {
	entries, err := b.readGitmodules()
	if err != nil {
		return nil, b.fail("read-gitmodules", "", err)
	}
	return entries, nil
}

func (b *Backend) readGitmodules() (map[string]*config.SubmoduleEntry, error) {
	cfg, err := readConfigFile(b.fs, git.GitmodulesFile)
	if err != nil {
		return nil, err
	}
	return entriesFromConfig(cfg), nil
}

// entryByPath returns the .gitmodules entry registered at path
func (b *Backend) entryByPath(path string) (*config.SubmoduleEntry, map[string]*config.SubmoduleEntry, error) {
	entries, err := b.readGitmodules()
	if err != nil {
		return nil, nil, err
	}
	e, ok := git.FindByPath(entries, path)
	if !ok {
		return nil, entries, fmt.Errorf("%w: no submodule registered at %s", errors.ErrSubmoduleNotFound, path)
	}
	return e, entries, nil
}

func entriesFromConfig(cfg *format.Config) map[string]*config.SubmoduleEntry {
	entries := make(map[string]*config.SubmoduleEntry)
	if !cfg.HasSection(submoduleSection) {
		return entries
	}
	for _, sub := range cfg.Section(submoduleSection).Subsections {
		options := make(map[string]string, len(sub.Options))
		for _, o := range sub.Options {
			options[o.Key] = o.Value
		}
		entries[sub.Name] = git.EntryFromOptions(sub.Name, options)
	}
	return entries
}

// WriteGitmodules rewrites the submodule sections of .gitmodules. Options
// submod does not manage are kept for entries that survive.
func (b *Backend) WriteGitmodules(_ context.Context, entries map[string]*config.SubmoduleEntry) error {
	if err := b.writeGitmodules(entries); err != nil {
		return b.fail("write-gitmodules", "", err)
	}
	return nil
}

func (b *Backend) writeGitmodules(entries map[string]*config.SubmoduleEntry) error {
	return editConfigFile(b.fs, git.GitmodulesFile, func(cfg *format.Config) error {
		applyEntries(cfg, entries)
		return nil
	})
}

var managedKeys = []string{
	git.KeyPath, git.KeyURL, git.KeyBranch, git.KeyIgnore,
	git.KeyUpdate, git.KeyFetchRecurse, git.KeyShallow,
}

func applyEntries(cfg *format.Config, entries map[string]*config.SubmoduleEntry) {
	sec := cfg.Section(submoduleSection)
	kept := make(format.Subsections, 0, len(sec.Subsections))
	for _, sub := range sec.Subsections {
		if _, ok := entries[sub.Name]; ok {
			kept = append(kept, sub)
		}
	}
	sec.Subsections = kept

	for _, name := range git.SortedNames(entries) {
		sub := sec.Subsection(name)
		for _, key := range managedKeys {
			sub.RemoveOption(key)
		}
		for _, o := range git.EntryOptions(entries[name]) {
			sub.SetOption(o.Key, o.Value)
		}
	}

	if len(sec.Subsections) == 0 && len(sec.Options) == 0 {
		cfg.RemoveSection(submoduleSection)
	}
}

// ReadGitConfig flattens one config level into "section[.subsection].key"
// pairs. Section and key names are lower-cased as git prints them.
func (b *Backend) ReadGitConfig(_ context.Context, level git.ConfigLevel) (map[string]string, error) {
	fs, name, err := b.configFile(level)
	if err != nil {
		return nil, b.fail("read-config", "", err)
	}
	cfg, err := readConfigFile(fs, name)
	if err != nil {
		return nil, b.fail("read-config", "", err)
	}
	return flatten(cfg), nil
}

func flatten(cfg *format.Config) map[string]string {
	values := make(map[string]string)
	for _, sec := range cfg.Sections {
		prefix := strings.ToLower(sec.Name) + "."
		for _, o := range sec.Options {
			values[prefix+strings.ToLower(o.Key)] = o.Value
		}
		for _, sub := range sec.Subsections {
			for _, o := range sub.Options {
				values[prefix+sub.Name+"."+strings.ToLower(o.Key)] = o.Value
			}
		}
	}
	return values
}

// SetGitConfig sets key at level
func (b *Backend) SetGitConfig(_ context.Context, key, value string, level git.ConfigLevel) error {
	section, subsection, name, err := git.SplitKey(key)
	if err != nil {
		return b.fail("set-config", "", err)
	}
	fs, file, err := b.configFile(level)
	if err != nil {
		return b.fail("set-config", "", err)
	}
	err = editConfigFile(fs, file, func(cfg *format.Config) error {
		setOption(cfg, section, subsection, name, value)
		return nil
	})
	if err != nil {
		return b.fail("set-config", "", err)
	}
	return nil
}

func setOption(cfg *format.Config, section, subsection, key, value string) {
	if subsection == "" {
		cfg.Section(section).SetOption(key, value)
		return
	}
	cfg.Section(section).Subsection(subsection).SetOption(key, value)
}

// RemoveGitConfigSection removes section ("core" or "submodule.lib") at
// level. Removing a missing section is not an error.
func (b *Backend) RemoveGitConfigSection(_ context.Context, section string, level git.ConfigLevel) error {
	if err := b.removeConfigSection(section, level); err != nil {
		return b.fail("remove-config-section", "", err)
	}
	return nil
}

func (b *Backend) removeConfigSection(section string, level git.ConfigLevel) error {
	fs, file, err := b.configFile(level)
	if err != nil {
		return err
	}
	return editConfigFile(fs, file, func(cfg *format.Config) error {
		removeSection(cfg, section)
		return nil
	})
}

func removeSection(cfg *format.Config, section string) {
	name, subsection, hasSub := strings.Cut(section, ".")
	if !hasSub {
		cfg.RemoveSection(name)
		return
	}
	if !cfg.HasSection(name) {
		return
	}
	sec := cfg.Section(name).RemoveSubsection(subsection)
	if len(sec.Subsections) == 0 && len(sec.Options) == 0 {
		cfg.RemoveSection(name)
	}
}
