package gitcli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/testutil"
)

// recorder is a git.Runner that records invocations and answers from a
// table keyed by the joined arguments
type recorder struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func (r *recorder) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	key := strings.Join(args, " ")
	if err, ok := r.errs[key]; ok {
		return nil, err
	}
	return []byte(r.outputs[key]), nil
}

func (r *recorder) last() string {
	if len(r.calls) == 0 {
		return ""
	}
	return strings.Join(r.calls[len(r.calls)-1], " ")
}

type staticCreds map[string]string

func (c staticCreds) TokenFor(_ context.Context, rawURL string) (string, bool) {
	tok, ok := c[rawURL]
	return tok, ok
}

func commandError(code int, stderr string) error {
	// "sh -c exit N" yields a real *exec.ExitError carrying the code
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	return &git.CommandError{Stderr: stderr, Err: err}
}

// fakeSuperproject returns a directory with a .gitmodules file and one
// checked out submodule marker at vendor/lib
func fakeSuperproject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	testutil.WriteFile(t, root, ".gitmodules", "")
	testutil.WriteFile(t, root, "vendor/lib/.git", "gitdir: ../../.git/modules/lib\n")
	return root
}

const gitmodulesList = "submodule.lib.path\nvendor/lib\x00submodule.lib.url\nhttps://example.com/lib.git\x00"

func TestRemoteArgs(t *testing.T) {
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:secret"))

	tests := []struct {
		name  string
		url   string
		creds git.Credentials
		want  []string
	}{
		{"local path", "/srv/lib", nil, []string{"-c", "protocol.file.allow=always"}},
		{"file url", "file:///srv/lib", nil, []string{"-c", "protocol.file.allow=always"}},
		{"relative", "../lib.git", nil, []string{"-c", "protocol.file.allow=always"}},
		{"ssh", "git@github.com:org/lib.git", staticCreds{}, nil},
		{"https without credentials", "https://github.com/org/lib.git", nil, nil},
		{"https unknown host", "https://github.com/org/lib.git", staticCreds{}, nil},
		{
			"https with token",
			"https://github.com/org/lib.git",
			staticCreds{"https://github.com/org/lib.git": "secret"},
			[]string{"-c", "http.https://github.com/.extraHeader=Authorization: Basic " + basic},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.creds != nil {
				opts = append(opts, WithCredentials(tt.creds))
			}
			b := New(t.TempDir(), &recorder{}, nil, opts...)
			assert.Equal(t, tt.want, b.remoteArgs(context.Background(), tt.url))
		})
	}
}

func TestParseConfigList(t *testing.T) {
	out := []byte("core.bare\nfalse\x00submodule.lib.url\n/srv/lib\x00core.flag\x00")
	assert.Equal(t, map[string]string{
		"core.bare":         "false",
		"submodule.lib.url": "/srv/lib",
		"core.flag":         "true",
	}, parseConfigList(out))
	assert.Empty(t, parseConfigList(nil))
}

func TestGitlinkOID(t *testing.T) {
	tree := []byte("100644 blob aaaa\tREADME.md\x00160000 commit bbbb\tvendor/lib\x00")
	oid, ok := gitlinkOID(tree, "vendor/lib", 2)
	assert.True(t, ok)
	assert.Equal(t, "bbbb", oid)

	_, ok = gitlinkOID(tree, "README.md", 2)
	assert.False(t, ok, "regular files are not gitlinks")

	index := []byte("160000 cccc 0\tvendor/lib\x00")
	oid, ok = gitlinkOID(index, "vendor/lib", 1)
	assert.True(t, ok)
	assert.Equal(t, "cccc", oid)

	_, ok = gitlinkOID(index, "vendor/other", 1)
	assert.False(t, ok)
}

func TestPorcelainFlags(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want git.StatusFlags
	}{
		{"clean", "", 0},
		{"untracked", "?? scratch.txt\n", git.StatusWorkdirUntracked},
		{"staged", "M  src/lib.go\n", git.StatusWorkdirIndexModified},
		{"modified", " M src/lib.go\n", git.StatusWorkdirWorkdirModified},
		{
			"mixed",
			"MM src/lib.go\n?? new.txt\n",
			git.StatusWorkdirIndexModified | git.StatusWorkdirWorkdirModified | git.StatusWorkdirUntracked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, porcelainFlags([]byte(tt.out)))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stderr string
		want   error
	}{
		{"fatal: 'vendor/lib' already exists in the index", errors.ErrPathConflict},
		{"error: the following file has local modifications", nil},
		{"fatal: Submodule work tree 'vendor/lib' contains local modifications; use '-f' to discard them", errors.ErrUncommittedChanges},
		{"fatal: not a git repository (or any of the parent directories): .git", errors.ErrRepositoryNotFound},
		{"error: pathspec 'x' did not match any file(s) known to git", errors.ErrSubmoduleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			err := classify(commandError(1, tt.stderr))
			if tt.want == nil {
				assert.False(t, errors.Is(err, errors.ErrUncommittedChanges))
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadGitmodules_Missing(t *testing.T) {
	rec := &recorder{}
	b := New(t.TempDir(), rec, nil)

	entries, err := b.ReadGitmodules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, rec.calls, "no command runs without a .gitmodules file")
}

func TestWriteGitmodules_Commands(t *testing.T) {
	rec := &recorder{
		outputs: map[string]string{
			"config --file .gitmodules -z --list": gitmodulesList +
				"submodule.old.path\nvendor/old\x00submodule.old.url\n/srv/old\x00",
		},
		errs: map[string]error{
			"config --file .gitmodules --unset-all submodule.lib.branch": commandError(5, ""),
		},
	}
	b := New(fakeSuperproject(t), rec, nil)

	lib := config.NewEntry("lib", "vendor/lib", "https://example.com/lib.git")
	lib.Branch = config.BranchCurrent
	require.NoError(t, b.WriteGitmodules(context.Background(), map[string]*config.SubmoduleEntry{"lib": lib}))

	var joined []string
	for _, c := range rec.calls {
		joined = append(joined, strings.Join(c, " "))
	}
	assert.Contains(t, joined, "config --file .gitmodules --remove-section submodule.old")
	assert.Contains(t, joined, "config --file .gitmodules submodule.lib.path vendor/lib")
	assert.Contains(t, joined, "config --file .gitmodules submodule.lib.branch .")
	assert.NotContains(t, joined, "config --file .gitmodules submodule.lib.ignore")
}

func TestWriteGitmodules_UnsetFailure(t *testing.T) {
	rec := &recorder{
		errs: map[string]error{
			"config --file .gitmodules --unset-all submodule.lib.path": commandError(4, "error: could not lock config file"),
		},
	}
	b := New(fakeSuperproject(t), rec, nil)

	err := b.WriteGitmodules(context.Background(), map[string]*config.SubmoduleEntry{
		"lib": config.NewEntry("lib", "vendor/lib", "/srv/lib"),
	})
	assert.Error(t, err)
}

func TestRemoveGitConfigSection_Missing(t *testing.T) {
	rec := &recorder{
		errs: map[string]error{
			"config --local --remove-section submodule.gone": commandError(128, "fatal: no such section: submodule.gone"),
		},
	}
	b := New(t.TempDir(), rec, nil)
	assert.NoError(t, b.RemoveGitConfigSection(context.Background(), "submodule.gone", git.LevelLocal))
}

func TestReadGitConfig_UnknownLevel(t *testing.T) {
	b := New(t.TempDir(), &recorder{}, nil)
	_, err := b.ReadGitConfig(context.Background(), git.ConfigLevel("team"))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestUpdate_Arguments(t *testing.T) {
	tests := []struct {
		name string
		opts git.UpdateOptions
		want string
	}{
		{
			"checkout by default",
			git.UpdateOptions{},
			"submodule update --checkout -- vendor/lib",
		},
		{
			"init recursive",
			git.UpdateOptions{Init: true, Recursive: true, Strategy: config.UpdateCheckout},
			"submodule update --init --recursive --checkout -- vendor/lib",
		},
		{
			"remote rebase",
			git.UpdateOptions{Remote: true, Strategy: config.UpdateRebase},
			"submodule update --remote --rebase -- vendor/lib",
		},
		{
			"shallow merge",
			git.UpdateOptions{Depth: 1, Strategy: config.UpdateMerge},
			"submodule update --depth 1 --merge -- vendor/lib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{outputs: map[string]string{"config --file .gitmodules -z --list": gitmodulesList}}
			b := New(fakeSuperproject(t), rec, nil)

			require.NoError(t, b.UpdateSubmodule(context.Background(), "vendor/lib", tt.opts))
			assert.Equal(t, tt.want, rec.last())
		})
	}
}

func TestUpdate_NoneIsNoop(t *testing.T) {
	rec := &recorder{}
	b := New(fakeSuperproject(t), rec, nil)

	require.NoError(t, b.UpdateSubmodule(context.Background(), "vendor/lib", git.UpdateOptions{Strategy: config.UpdateNone}))
	assert.Empty(t, rec.calls)
}

func TestUpdate_UnknownSubmodule(t *testing.T) {
	rec := &recorder{outputs: map[string]string{"config --file .gitmodules -z --list": gitmodulesList}}
	b := New(fakeSuperproject(t), rec, nil)

	err := b.UpdateSubmodule(context.Background(), "vendor/other", git.UpdateOptions{})
	assert.ErrorIs(t, err, errors.ErrSubmoduleNotFound)
}

func TestStash(t *testing.T) {
	tests := []struct {
		name    string
		opts    git.StashOptions
		output  string
		args    string
		wantErr error
	}{
		{
			"stashes changes",
			git.StashOptions{IncludeUntracked: true, Message: "submod reset"},
			"Saved working directory and index state On main: submod reset\n",
			"stash push --include-untracked -m submod reset",
			nil,
		},
		{
			"nothing to stash",
			git.StashOptions{},
			"No local changes to save\n",
			"stash push",
			errors.ErrNothingToStash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{outputs: map[string]string{tt.args: tt.output}}
			b := New(fakeSuperproject(t), rec, nil)

			err := b.StashSubmodule(context.Background(), "vendor/lib", tt.opts)
			assert.Equal(t, tt.args, rec.last())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsSoft(err))
		})
	}
}

func TestSubmoduleCommands_RequireCheckout(t *testing.T) {
	rec := &recorder{}
	b := New(t.TempDir(), rec, nil)
	ctx := context.Background()

	checks := map[string]error{
		"fetch":        b.FetchSubmodule(ctx, "vendor/lib", git.FetchOptions{}),
		"reset":        b.ResetSubmodule(ctx, "vendor/lib", git.ResetOptions{Hard: true}),
		"clean":        b.CleanSubmodule(ctx, "vendor/lib", git.CleanOptions{}),
		"stash":        b.StashSubmodule(ctx, "vendor/lib", git.StashOptions{}),
		"sparse-apply": b.ApplySparseCheckout(ctx, "vendor/lib"),
	}
	for op, err := range checks {
		assert.ErrorIs(t, err, errors.ErrRepositoryNotFound, op)
	}
	assert.Empty(t, rec.calls, "no command may fall through to an enclosing repository")
}

func TestResetAndClean_Arguments(t *testing.T) {
	rec := &recorder{}
	b := New(fakeSuperproject(t), rec, nil)
	ctx := context.Background()

	require.NoError(t, b.ResetSubmodule(ctx, "vendor/lib", git.ResetOptions{Hard: true}))
	assert.Equal(t, "reset --hard HEAD", rec.last())
	require.NoError(t, b.ResetSubmodule(ctx, "vendor/lib", git.ResetOptions{}))
	assert.Equal(t, "reset --mixed HEAD", rec.last())

	require.NoError(t, b.CleanSubmodule(ctx, "vendor/lib", git.CleanOptions{Directories: true, Ignored: true}))
	assert.Equal(t, "clean -f -d -x", rec.last())
}

func TestFetch_UsesRemoteCredentials(t *testing.T) {
	rec := &recorder{outputs: map[string]string{
		"remote get-url origin": "https://github.com/org/lib.git\n",
	}}
	b := New(fakeSuperproject(t), rec, nil,
		WithCredentials(staticCreds{"https://github.com/org/lib.git": "secret"}))

	require.NoError(t, b.FetchSubmodule(context.Background(), "vendor/lib", git.FetchOptions{Prune: true}))
	last := rec.calls[len(rec.calls)-1]
	assert.Equal(t, "-c", last[0])
	assert.True(t, strings.HasPrefix(last[1], "http.https://github.com/.extraHeader=Authorization: Basic "))
	assert.Equal(t, []string{"fetch", "--prune", "origin"}, last[2:])
}

func TestNew_AbsoluteRoot(t *testing.T) {
	b := New(".", &recorder{}, nil)
	assert.True(t, filepath.IsAbs(b.root))
	assert.Equal(t, Name, b.Name())
}
