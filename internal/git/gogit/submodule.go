package gogit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/urlutils"
)

// AddSubmodule registers a submodule in .gitmodules, clones it into
// .git/modules/<name>, checks out its branch behind a gitlink file and
// stages the gitlink together with .gitmodules. A failed clone restores
// .gitmodules and removes what was created.
func (b *Backend) AddSubmodule(ctx context.Context, opts git.AddOptions) error {
	if err := b.add(ctx, opts); err != nil {
		return b.fail("add", opts.Name, err)
	}
	return nil
}

func (b *Backend) add(ctx context.Context, opts git.AddOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := config.ValidateName(opts.Name); err != nil {
		return err
	}
	if opts.Path == "" || opts.URL == "" {
		return fmt.Errorf("%w: path and url are required", errors.ErrInvalidConfig)
	}

	r, err := b.open()
	if err != nil {
		return err
	}
	entries, err := b.readGitmodules()
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

	previous := make(map[string]*config.SubmoduleEntry, len(entries))
	for name, e := range entries {
		previous[name] = e
	}

	entry := opts.Entry()
	entries[opts.Name] = entry
	if err := b.writeGitmodules(entries); err != nil {
		return err
	}
	if opts.NoInit {
		return b.stageFile(r, git.GitmodulesFile)
	}

	url, err := b.resolveURL(r, entry.URL)
	if err != nil {
		b.rollbackAdd(previous, entry)
		return err
	}
	hash, err := b.clone(ctx, r, entry, url)
	if err == nil {
		err = b.register(r, entry, url, hash)
	}
	if err != nil {
		b.rollbackAdd(previous, entry)
		return err
	}

	b.log.Debugw("submodule added", "name", entry.Name, "path", entry.Path, "commit", hash.String())
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

func (b *Backend) rollbackAdd(previous map[string]*config.SubmoduleEntry, e *config.SubmoduleEntry) {
	if err := b.writeGitmodules(previous); err != nil {
		b.log.Warnw("failed to restore .gitmodules", "error", err)
	}
	if err := util.RemoveAll(b.fs, e.Path); err != nil {
		b.log.Warnw("failed to remove submodule directory", "path", e.Path, "error", err)
	}
	if err := b.removeModuleDir(e.Name); err != nil {
		b.log.Warnw("failed to remove module storage", "name", e.Name, "error", err)
	}
	if err := b.removeConfigSection(git.SectionName(e.Name), git.LevelLocal); err != nil {
		b.log.Debugw("failed to remove submodule config", "name", e.Name, "error", err)
	}
}

// resolveURL resolves "../lib.git" style URLs against the superproject's
// origin, or its directory when it has none
func (b *Backend) resolveURL(r *gogit.Repository, rawURL string) (string, error) {
	if !urlutils.IsRelative(rawURL) {
		return rawURL, nil
	}
	base := b.root
	if remote, err := r.Remote(gogit.DefaultRemoteName); err == nil && len(remote.Config().URLs) > 0 {
		base = remote.Config().URLs[0]
	}
	return urlutils.ResolveRelative(base, rawURL)
}

func (b *Backend) clone(ctx context.Context, r *gogit.Repository, e *config.SubmoduleEntry, url string) (plumbing.Hash, error) {
	storer, err := r.Storer.Module(e.Name)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	worktree, err := b.fs.Chroot(e.Path)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	// Init writes the gitlink file and core.worktree for the module
	sub, err := gogit.Init(storer, worktree)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	remote, err := sub.CreateRemote(&gitconfig.RemoteConfig{
		Name: gogit.DefaultRemoteName,
		URLs: []string{url},
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	auth := b.auth(ctx, url)
	fetch := &gogit.FetchOptions{RemoteName: gogit.DefaultRemoteName, Auth: auth}
	if e.Shallow {
		fetch.Depth = 1
	}
	if pw := b.progressWriter(e.Name); pw != nil {
		fetch.Progress = pw
		defer pw.Flush()
	}
	b.log.Debugw("fetching submodule", "name", e.Name, "url", urlutils.Redact(url), "shallow", e.Shallow)
	if err := sub.FetchContext(ctx, fetch); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return plumbing.ZeroHash, err
	}

	branch, hash, err := b.resolveBranch(ctx, sub, remote, e.Branch, auth)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	wt, err := sub.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	ref := plumbing.NewBranchReferenceName(branch)
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: ref, Hash: hash, Create: true, Force: true}); err != nil {
		return plumbing.ZeroHash, err
	}

	cfg, err := sub.Config()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cfg.Branches[branch] = &gitconfig.Branch{Name: branch, Remote: gogit.DefaultRemoteName, Merge: ref}
	if err := sub.SetConfig(cfg); err != nil {
		return plumbing.ZeroHash, err
	}
	return hash, nil
}

// resolveBranch picks the branch to check out: the configured one, else
// the remote HEAD, else main or master
func (b *Backend) resolveBranch(ctx context.Context, r *gogit.Repository, remote *gogit.Remote, want config.Branch, auth transport.AuthMethod) (string, plumbing.Hash, error) {
	var candidates []string
	if name := want.Name(); name != "" {
		candidates = []string{name}
	} else {
		if head := remoteHead(ctx, remote, auth); head != "" {
			candidates = append(candidates, head)
		}
		candidates = append(candidates, "main", "master")
	}

	for _, name := range candidates {
		ref, err := r.Reference(plumbing.NewRemoteReferenceName(gogit.DefaultRemoteName, name), true)
		if err == nil {
			return name, ref.Hash(), nil
		}
	}
	return "", plumbing.ZeroHash, fmt.Errorf("none of the branches %v exist on the remote", candidates)
}

// remoteHead returns the branch the remote HEAD points to
func remoteHead(ctx context.Context, remote *gogit.Remote, auth transport.AuthMethod) string {
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: auth})
	if err != nil {
		return ""
	}
	var headHash plumbing.Hash
	for _, ref := range refs {
		if ref.Name() != plumbing.HEAD {
			continue
		}
		if ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short()
		}
		headHash = ref.Hash()
	}
	if headHash.IsZero() {
		return ""
	}
	for _, ref := range refs {
		if ref.Name().IsBranch() && ref.Hash() == headHash {
			return ref.Name().Short()
		}
	}
	return ""
}

// register activates the submodule in the superproject config and stages
// the gitlink and .gitmodules
func (b *Backend) register(r *gogit.Repository, e *config.SubmoduleEntry, url string, hash plumbing.Hash) error {
	if err := b.activate(e.Name, url); err != nil {
		return err
	}
	if err := stageGitlink(r, e.Path, hash); err != nil {
		return err
	}
	return b.stageFile(r, git.GitmodulesFile)
}

func (b *Backend) activate(name, url string) error {
	fs, file, err := b.configFile(git.LevelLocal)
	if err != nil {
		return err
	}
	return editConfigFile(fs, file, func(cfg *format.Config) error {
		sub := cfg.Section(submoduleSection).Subsection(name)
		sub.SetOption(git.KeyURL, url)
		sub.SetOption(git.KeyActive, "true")
		return nil
	})
}

func stageGitlink(r *gogit.Repository, path string, hash plumbing.Hash) error {
	idx, err := r.Storer.Index()
	if err != nil {
		return err
	}
	entry, err := idx.Entry(path)
	if err != nil {
		if !errors.Is(err, index.ErrEntryNotFound) {
			return err
		}
		entry = idx.Add(path)
	}
	entry.Hash = hash
	entry.Mode = filemode.Submodule
	entry.Size = 0
	entry.ModifiedAt = time.Now()
	return r.Storer.SetIndex(idx)
}

func unstage(r *gogit.Repository, path string) error {
	idx, err := r.Storer.Index()
	if err != nil {
		return err
	}
	if _, err := idx.Remove(path); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return err
	}
	return r.Storer.SetIndex(idx)
}

// stageFile writes the content of a worktree file as a blob and records
// it in the index. A missing file is removed from the index.
func (b *Backend) stageFile(r *gogit.Repository, name string) error {
	fi, err := b.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return unstage(r, name)
		}
		return err
	}
	data, err := util.ReadFile(b.fs, name)
	if err != nil {
		return err
	}

	obj := r.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	hash, err := r.Storer.SetEncodedObject(obj)
	if err != nil {
		return err
	}

	idx, err := r.Storer.Index()
	if err != nil {
		return err
	}
	entry, err := idx.Entry(name)
	if err != nil {
		if !errors.Is(err, index.ErrEntryNotFound) {
			return err
		}
		entry = idx.Add(name)
	}
	entry.Hash = hash
	entry.Mode = filemode.Regular
	entry.Size = uint32(len(data))
	entry.ModifiedAt = fi.ModTime()
	return r.Storer.SetIndex(idx)
}

func (b *Backend) removeModuleDir(name string) error {
	gitDir, err := git.ResolveGitDir(b.root)
	if err != nil {
		return err
	}
	return util.RemoveAll(osfs.New(gitDir), filepath.Join("modules", name))
}

func findSubmodule(r *gogit.Repository, path string) (*gogit.Submodule, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, err
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if s.Config().Path == path {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no submodule registered at %s", errors.ErrSubmoduleNotFound, path)
}

// InitSubmodule copies the submodule's URL into the superproject config
// and marks it active. Initializing twice is not an error.
func (b *Backend) InitSubmodule(_ context.Context, path string) error {
	name, err := b.initialize(path)
	if err != nil {
		return b.fail("init", name, err)
	}
	return nil
}

func (b *Backend) initialize(path string) (string, error) {
	r, err := b.open()
	if err != nil {
		return "", err
	}
	sub, err := findSubmodule(r, path)
	if err != nil {
		return "", err
	}
	name := sub.Config().Name
	if err := sub.Init(); err != nil && !errors.Is(err, gogit.ErrSubmoduleAlreadyInitialized) {
		return name, err
	}
	url, err := b.resolveURL(r, sub.Config().URL)
	if err != nil {
		return name, err
	}
	return name, b.activate(name, url)
}

// UpdateSubmodule checks out the commit recorded in the superproject
// index, cloning the submodule first when needed. Only the checkout
// strategy is implemented; none is a no-op.
func (b *Backend) UpdateSubmodule(ctx context.Context, path string, opts git.UpdateOptions) error {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = config.UpdateCheckout
	}
	switch strategy {
	case config.UpdateNone:
		b.log.Debugw("update strategy is none, skipping", "path", path)
		return nil
	case config.UpdateMerge, config.UpdateRebase:
		return errors.New("update", fmt.Errorf("%w: %s", errors.ErrUnsupportedStrategy, strategy)).
			WithBackend(Name).WithKind(errors.KindUnsupported)
	}
	if opts.Remote {
		return errors.Unsupported("update", Name).WithSubmodule(path)
	}
	// go-git checkouts ignore info/sparse-checkout and would restore
	// every excluded file
	if b.sparseActive(path) {
		return errors.New("update", fmt.Errorf("%w: sparse checkout is active", errors.ErrUnsupported)).
			WithBackend(Name).WithSubmodule(path)
	}

	name, err := b.update(ctx, path, opts)
	if err != nil {
		return b.fail("update", name, err)
	}
	return nil
}

func (b *Backend) update(ctx context.Context, path string, opts git.UpdateOptions) (string, error) {
	r, err := b.open()
	if err != nil {
		return "", err
	}
	sub, err := findSubmodule(r, path)
	if err != nil {
		return "", err
	}
	name := sub.Config().Name
	url, err := b.resolveURL(r, sub.Config().URL)
	if err != nil {
		return name, err
	}

	recurse := gogit.NoRecurseSubmodules
	if opts.Recursive {
		recurse = gogit.DefaultSubmoduleRecursionDepth
	}
	err = sub.UpdateContext(ctx, &gogit.SubmoduleUpdateOptions{
		Init:              opts.Init,
		RecurseSubmodules: recurse,
		Auth:              b.auth(ctx, url),
		Depth:             opts.Depth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return name, err
	}
	return name, nil
}

func (b *Backend) sparseActive(path string) bool {
	gitDir, err := git.ResolveGitDir(filepath.Join(b.root, filepath.FromSlash(path)))
	if err != nil {
		return false
	}
	_, err = os.Stat(git.SparseFile(gitDir))
	return err == nil
}

// DeleteSubmodule removes the gitlink from the index, the working
// directory, the .gitmodules entry, the config section and the module
// storage.
func (b *Backend) DeleteSubmodule(_ context.Context, path string) error {
	name, err := b.delete(path)
	if err != nil {
		return b.fail("delete", name, err)
	}
	return nil
}

func (b *Backend) delete(path string) (string, error) {
	r, err := b.open()
	if err != nil {
		return "", err
	}
	e, entries, err := b.entryByPath(path)
	if err != nil {
		return "", err
	}

	if err := unstage(r, path); err != nil {
		return e.Name, err
	}
	if err := util.RemoveAll(b.fs, path); err != nil {
		return e.Name, err
	}
	delete(entries, e.Name)
	if err := b.writeGitmodules(entries); err != nil {
		return e.Name, err
	}
	if err := b.stageFile(r, git.GitmodulesFile); err != nil {
		return e.Name, err
	}
	if err := b.removeConfigSection(git.SectionName(e.Name), git.LevelLocal); err != nil {
		return e.Name, err
	}
	return e.Name, b.removeModuleDir(e.Name)
}

// DeinitSubmodule empties the submodule's working directory and removes
// its section from the superproject config. Module storage is kept so a
// later init does not need to clone again.
func (b *Backend) DeinitSubmodule(ctx context.Context, path string, force bool) error {
	name, err := b.deinit(ctx, path, force)
	if err != nil {
		return b.fail("deinit", name, err)
	}
	return nil
}

func (b *Backend) deinit(ctx context.Context, path string, force bool) (string, error) {
	e, _, err := b.entryByPath(path)
	if err != nil {
		return "", err
	}
	if !force {
		st, err := b.status(ctx, path)
		if err != nil {
			return e.Name, fmt.Errorf("cannot verify %s is clean: %w", path, err)
		}
		if st.Initialized && st.Flags&git.LocalChanges != 0 {
			return e.Name, fmt.Errorf("%w: %s (use force to discard them)", errors.ErrUncommittedChanges, path)
		}
	}

	infos, err := b.fs.ReadDir(path)
	if err != nil && !os.IsNotExist(err) {
		return e.Name, err
	}
	for _, fi := range infos {
		if err := util.RemoveAll(b.fs, b.fs.Join(path, fi.Name())); err != nil {
			return e.Name, err
		}
	}
	return e.Name, b.removeConfigSection(git.SectionName(e.Name), git.LevelLocal)
}

// FetchSubmodule fetches the submodule's remote
func (b *Backend) FetchSubmodule(ctx context.Context, path string, opts git.FetchOptions) error {
	if opts.Prune {
		return errors.Unsupported("fetch", Name).WithSubmodule(path)
	}
	if err := b.fetch(ctx, path, opts); err != nil {
		return b.fail("fetch", path, err)
	}
	return nil
}

func (b *Backend) fetch(ctx context.Context, path string, opts git.FetchOptions) error {
	sub, err := b.openSubmodule(path)
	if err != nil {
		return err
	}
	name := opts.Remote
	if name == "" {
		name = gogit.DefaultRemoteName
	}
	remote, err := sub.Remote(name)
	if err != nil {
		return err
	}
	var url string
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}

	fetch := &gogit.FetchOptions{RemoteName: name, Depth: opts.Depth, Auth: b.auth(ctx, url)}
	if pw := b.progressWriter(path); pw != nil {
		fetch.Progress = pw
		defer pw.Flush()
	}
	if err := sub.FetchContext(ctx, fetch); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// ResetSubmodule is not implemented by go-git for submodules
func (b *Backend) ResetSubmodule(context.Context, string, git.ResetOptions) error {
	return errors.Unsupported("reset", Name)
}

// CleanSubmodule is not implemented by go-git for submodules
func (b *Backend) CleanSubmodule(context.Context, string, git.CleanOptions) error {
	return errors.Unsupported("clean", Name)
}

// StashSubmodule is not implemented: go-git has no stash
func (b *Backend) StashSubmodule(context.Context, string, git.StashOptions) error {
	return errors.Unsupported("stash", Name)
}
