package gogit

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/testutil"
)

// superproject creates a committed repository and a backend over it
func superproject(t *testing.T) (*Backend, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "super")
	testutil.CreateRepo(t, root, map[string]string{"README.md": "# super\n"})
	b, err := New(root, nil)
	require.NoError(t, err)
	return b, root
}

func sourceFiles() map[string]string {
	return map[string]string{
		"README.md":         "# lib\n",
		"src/lib.go":        "package lib\n",
		"docs/guide.md":     "guide\n",
		"tests/lib_test.go": "package lib\n",
		"examples/main.go":  "package main\n",
	}
}

func TestNew(t *testing.T) {
	b, root := superproject(t)
	assert.Equal(t, Name, b.Name())
	assert.Equal(t, root, b.Root())
}

func TestGitmodules_RoundTrip(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()

	entries, err := b.ReadGitmodules(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	lib := config.NewEntry("lib", "vendor/lib", "https://example.com/lib.git")
	lib.Branch = config.BranchCurrent
	lib.Ignore = config.IgnoreDirty
	lib.FetchRecurse = config.FetchNever
	lib.Shallow = true
	tools := config.NewEntry("tools", "vendor/tools", "../tools.git")
	tools.Update = config.UpdateRebase

	require.NoError(t, b.WriteGitmodules(ctx, map[string]*config.SubmoduleEntry{"lib": lib, "tools": tools}))

	data, err := os.ReadFile(filepath.Join(root, ".gitmodules"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `[submodule "lib"]`)
	assert.Contains(t, string(data), "fetchRecurseSubmodules = false")

	got, err := b.ReadGitmodules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, lib, got["lib"])
	assert.Equal(t, tools, got["tools"])

	delete(got, "tools")
	require.NoError(t, b.WriteGitmodules(ctx, got))
	got, err = b.ReadGitmodules(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGitmodules_KeepsUnmanagedOptions(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()

	testutil.WriteFile(t, root, ".gitmodules", "[submodule \"lib\"]\n\tpath = vendor/lib\n\turl = https://example.com/lib.git\n\tupdate = !custom\n\tdatestamp = yes\n")

	entries, err := b.ReadGitmodules(ctx)
	require.NoError(t, err)
	require.Contains(t, entries, "lib")
	assert.Empty(t, entries["lib"].Update, "custom update commands are not modelled")

	entries["lib"].Branch = "develop"
	require.NoError(t, b.WriteGitmodules(ctx, entries))

	data, err := os.ReadFile(filepath.Join(root, ".gitmodules"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "datestamp = yes")
	assert.Contains(t, string(data), "branch = develop")
}

func TestGitConfig_Local(t *testing.T) {
	b, _ := superproject(t)
	ctx := context.Background()

	require.NoError(t, b.SetGitConfig(ctx, "submodule.lib.url", "https://example.com/lib.git", git.LevelLocal))
	require.NoError(t, b.SetGitConfig(ctx, "submodule.lib.active", "true", git.LevelLocal))
	require.NoError(t, b.SetGitConfig(ctx, "user.name", "test", git.LevelLocal))

	values, err := b.ReadGitConfig(ctx, git.LevelLocal)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/lib.git", values["submodule.lib.url"])
	assert.Equal(t, "true", values["submodule.lib.active"])
	assert.Equal(t, "test", values["user.name"])

	require.NoError(t, b.RemoveGitConfigSection(ctx, "submodule.lib", git.LevelLocal))
	require.NoError(t, b.RemoveGitConfigSection(ctx, "submodule.missing", git.LevelLocal))

	values, err = b.ReadGitConfig(ctx, git.LevelLocal)
	require.NoError(t, err)
	assert.NotContains(t, values, "submodule.lib.url")
	assert.Equal(t, "test", values["user.name"])

	err = b.SetGitConfig(ctx, "nodot", "x", git.LevelLocal)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestUnsupportedOperations(t *testing.T) {
	b, _ := superproject(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"reset", func() error { return b.ResetSubmodule(ctx, "lib", git.ResetOptions{Hard: true}) }},
		{"clean", func() error { return b.CleanSubmodule(ctx, "lib", git.CleanOptions{Directories: true}) }},
		{"stash", func() error { return b.StashSubmodule(ctx, "lib", git.StashOptions{}) }},
		{"sparse-apply", func() error { return b.ApplySparseCheckout(ctx, "lib") }},
		{"update merge", func() error {
			return b.UpdateSubmodule(ctx, "lib", git.UpdateOptions{Strategy: config.UpdateMerge})
		}},
		{"update remote", func() error { return b.UpdateSubmodule(ctx, "lib", git.UpdateOptions{Remote: true}) }},
		{"fetch prune", func() error { return b.FetchSubmodule(ctx, "lib", git.FetchOptions{Prune: true}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.IsUnsupported(err), "got %v", err)
		})
	}

	err := b.UpdateSubmodule(ctx, "lib", git.UpdateOptions{Strategy: config.UpdateRebase})
	assert.ErrorIs(t, err, errors.ErrUnsupportedStrategy)
}

func TestUpdate_NoneIsNoop(t *testing.T) {
	b, _ := superproject(t)
	assert.NoError(t, b.UpdateSubmodule(context.Background(), "missing", git.UpdateOptions{Strategy: config.UpdateNone}))
}

func TestAdd_NoInit(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()

	err := b.AddSubmodule(ctx, git.AddOptions{
		Name:   "lib",
		Path:   "vendor/lib",
		URL:    "https://example.com/lib.git",
		Branch: "main",
		NoInit: true,
	})
	require.NoError(t, err)

	entries, err := b.ReadGitmodules(ctx)
	require.NoError(t, err)
	require.Contains(t, entries, "lib")
	assert.Equal(t, config.Branch("main"), entries["lib"].Branch)
	assert.False(t, testutil.Exists(filepath.Join(root, "vendor", "lib")))

	paths, err := b.ListSubmodules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/lib"}, paths)

	st, err := b.SubmoduleStatus(ctx, "vendor/lib")
	require.NoError(t, err)
	assert.True(t, st.Flags.Has(git.StatusInConfig))
	assert.False(t, st.Flags.Has(git.StatusInIndex))
	assert.False(t, st.Initialized)
}

func TestAdd_Collisions(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()

	require.NoError(t, b.AddSubmodule(ctx, git.AddOptions{
		Name: "lib", Path: "vendor/lib", URL: "https://example.com/lib.git", NoInit: true,
	}))
	before, err := os.ReadFile(filepath.Join(root, ".gitmodules"))
	require.NoError(t, err)

	err = b.AddSubmodule(ctx, git.AddOptions{Name: "lib", Path: "vendor/other", URL: "https://example.com/x.git"})
	assert.ErrorIs(t, err, errors.ErrNameCollision)

	err = b.AddSubmodule(ctx, git.AddOptions{Name: "other", Path: "vendor/lib", URL: "https://example.com/x.git"})
	assert.ErrorIs(t, err, errors.ErrPathConflict)
	assert.NotErrorIs(t, err, errors.ErrNameCollision)

	testutil.WriteFile(t, root, "occupied/file.txt", "x")
	err = b.AddSubmodule(ctx, git.AddOptions{Name: "occupied", Path: "occupied", URL: "https://example.com/x.git"})
	assert.ErrorIs(t, err, errors.ErrPathConflict)

	after, err := os.ReadFile(filepath.Join(root, ".gitmodules"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestStatus_NotFound(t *testing.T) {
	b, _ := superproject(t)
	_, err := b.SubmoduleStatus(context.Background(), "vendor/none")
	assert.True(t, errors.IsNotFound(err))

	err = b.DeleteSubmodule(context.Background(), "vendor/none")
	assert.ErrorIs(t, err, errors.ErrSubmoduleNotFound)

	err = b.InitSubmodule(context.Background(), "vendor/none")
	assert.ErrorIs(t, err, errors.ErrSubmoduleNotFound)
}

func TestOpen_NotARepository(t *testing.T) {
	b, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	err = b.AddSubmodule(context.Background(), git.AddOptions{Name: "lib", Path: "lib", URL: "https://example.com/lib.git"})
	assert.ErrorIs(t, err, errors.ErrRepositoryNotFound)
}

// addLocal clones a local source repository as a submodule. go-git's file
// transport runs git-upload-pack, so these tests need the git executable.
func addLocal(t *testing.T, b *Backend, name, path string, shallow bool) string {
	t.Helper()
	testutil.RequireGit(t)

	src := testutil.SourceRepo(t, name+"-src", sourceFiles())
	require.NoError(t, b.AddSubmodule(context.Background(), git.AddOptions{
		Name:    name,
		Path:    path,
		URL:     src,
		Shallow: shallow,
	}))
	return src
}

func TestAdd_ClonesAndStages(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()
	src := addLocal(t, b, "lib", "vendor/lib", true)

	dir := filepath.Join(root, "vendor", "lib")
	assert.Equal(t, []string{"README.md", "docs", "examples", "src", "tests"}, testutil.TopLevel(t, dir))

	gitDir, err := git.ResolveGitDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".git", "modules", "lib"), gitDir)

	values, err := b.ReadGitConfig(ctx, git.LevelLocal)
	require.NoError(t, err)
	assert.Equal(t, src, values["submodule.lib.url"])
	assert.Equal(t, "true", values["submodule.lib.active"])

	st, err := b.SubmoduleStatus(ctx, "vendor/lib")
	require.NoError(t, err)
	assert.Equal(t, "lib", st.Name)
	assert.True(t, st.Flags.Has(git.StatusInConfig|git.StatusInIndex|git.StatusInWorkdir|git.StatusIndexAdded))
	assert.True(t, st.Initialized)
	assert.True(t, st.Active)
	assert.Equal(t, st.IndexOID, st.WorkdirOID)
	assert.Equal(t, []string{"origin"}, st.Remotes)
	assert.False(t, st.Flags&git.LocalChanges != 0, "flags %s", st.Flags)
}

func TestDeinit_RefusesUnreadableStatus(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	gitDir, err := git.ResolveGitDir(filepath.Join(root, "vendor", "lib"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "index"), []byte("garbage"), 0o644))

	err = b.DeinitSubmodule(ctx, "vendor/lib", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot verify vendor/lib is clean")
	assert.NotEmpty(t, testutil.TopLevel(t, filepath.Join(root, "vendor", "lib")))

	values, err := b.ReadGitConfig(ctx, git.LevelLocal)
	require.NoError(t, err)
	assert.Contains(t, values, "submodule.lib.url")

	require.NoError(t, b.DeinitSubmodule(ctx, "vendor/lib", true))
	assert.Empty(t, testutil.TopLevel(t, filepath.Join(root, "vendor", "lib")))
}

func TestDeinit_RefusesLocalChanges(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	testutil.WriteFile(t, root, "vendor/lib/scratch.txt", "wip")

	err := b.DeinitSubmodule(ctx, "vendor/lib", false)
	assert.ErrorIs(t, err, errors.ErrUncommittedChanges)
	assert.True(t, testutil.Exists(filepath.Join(root, "vendor", "lib", "scratch.txt")))

	require.NoError(t, b.DeinitSubmodule(ctx, "vendor/lib", true))
	assert.Empty(t, testutil.TopLevel(t, filepath.Join(root, "vendor", "lib")))

	values, err := b.ReadGitConfig(ctx, git.LevelLocal)
	require.NoError(t, err)
	assert.NotContains(t, values, "submodule.lib.url")
	assert.True(t, testutil.Exists(filepath.Join(root, ".git", "modules", "lib")))
}

func TestDelete_RemovesEverything(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	require.NoError(t, b.DeleteSubmodule(ctx, "vendor/lib"))

	assert.False(t, testutil.Exists(filepath.Join(root, "vendor", "lib")))
	assert.False(t, testutil.Exists(filepath.Join(root, ".git", "modules", "lib")))
	entries, err := b.ReadGitmodules(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = b.SubmoduleStatus(ctx, "vendor/lib")
	assert.True(t, errors.IsNotFound(err))
}

func TestInit_IsIdempotent(t *testing.T) {
	b, _ := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	require.NoError(t, b.InitSubmodule(ctx, "vendor/lib"))
	require.NoError(t, b.InitSubmodule(ctx, "vendor/lib"))
}

func TestSparse_EnableSetGet(t *testing.T) {
	b, root := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	patterns, err := b.SparsePatterns(ctx, "vendor/lib")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	require.NoError(t, b.EnableSparseCheckout(ctx, "vendor/lib"))
	status, err := git.CheckSparse(filepath.Join(root, "vendor", "lib"), []string{"src"})
	require.NoError(t, err)
	assert.Equal(t, git.SparseNotConfigured, status.State)

	require.NoError(t, b.SetSparsePatterns(ctx, "vendor/lib", []string{"src", "docs"}))
	patterns, err = b.SparsePatterns(ctx, "vendor/lib")
	require.NoError(t, err)
	sort.Strings(patterns)
	assert.Equal(t, []string{"docs", "src"}, patterns)

	st, err := b.SubmoduleStatus(ctx, "vendor/lib")
	require.NoError(t, err)
	assert.True(t, st.SparseEnabled)

	err = b.UpdateSubmodule(ctx, "vendor/lib", git.UpdateOptions{})
	assert.True(t, errors.IsUnsupported(err), "sparse submodules are left to the git executable")
}

func TestFetch(t *testing.T) {
	b, _ := superproject(t)
	ctx := context.Background()
	addLocal(t, b, "lib", "vendor/lib", false)

	assert.NoError(t, b.FetchSubmodule(ctx, "vendor/lib", git.FetchOptions{}))

	err := b.FetchSubmodule(ctx, "vendor/lib", git.FetchOptions{Remote: "upstream"})
	assert.Error(t, err)
}
