package git_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/git/mocks"
)

func newChain(t *testing.T) (*git.Fallback, *mocks.MockBackend, *mocks.MockBackend) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockBackend(ctrl)
	secondary := mocks.NewMockBackend(ctrl)
	primary.EXPECT().Name().Return("go-git").AnyTimes()
	secondary.EXPECT().Name().Return("git-cli").AnyTimes()
	return git.NewFallback(nil, primary, secondary), primary, secondary
}

func TestFallback_Name(t *testing.T) {
	f, _, _ := newChain(t)
	assert.Equal(t, "go-git+git-cli", f.Name())
	assert.Len(t, f.Backends(), 2)
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	f, primary, _ := newChain(t)
	ctx := context.Background()

	primary.EXPECT().ListSubmodules(gomock.Any()).Return([]string{"vendor/lib"}, nil)

	paths, err := f.ListSubmodules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/lib"}, paths)
}

func TestFallback_UnsupportedFallsThrough(t *testing.T) {
	f, primary, secondary := newChain(t)
	ctx := context.Background()

	primary.EXPECT().ResetSubmodule(gomock.Any(), "vendor/lib", git.ResetOptions{Hard: true}).
		Return(errors.Unsupported("reset", "go-git"))
	secondary.EXPECT().ResetSubmodule(gomock.Any(), "vendor/lib", git.ResetOptions{Hard: true}).
		Return(nil)

	require.NoError(t, f.ResetSubmodule(ctx, "vendor/lib", git.ResetOptions{Hard: true}))
}

func TestFallback_FailureFallsThrough(t *testing.T) {
	f, primary, secondary := newChain(t)
	ctx := context.Background()

	want := &git.DetailedStatus{Path: "vendor/lib", Name: "lib"}
	primary.EXPECT().SubmoduleStatus(gomock.Any(), "vendor/lib").Return(nil, fmt.Errorf("object not found"))
	secondary.EXPECT().SubmoduleStatus(gomock.Any(), "vendor/lib").Return(want, nil)

	got, err := f.SubmoduleStatus(ctx, "vendor/lib")
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFallback_AllFailKeepsEveryCause(t *testing.T) {
	f, primary, secondary := newChain(t)
	ctx := context.Background()

	primaryErr := fmt.Errorf("primary: %w", errors.ErrRepositoryNotFound)
	secondaryErr := fmt.Errorf("exit status 128")
	opts := git.AddOptions{Name: "lib", Path: "vendor/lib", URL: "https://example.com/lib.git"}
	primary.EXPECT().AddSubmodule(gomock.Any(), opts).Return(primaryErr)
	secondary.EXPECT().AddSubmodule(gomock.Any(), opts).Return(secondaryErr)

	err := f.AddSubmodule(ctx, opts)
	require.Error(t, err)

	var fe *errors.FallbackError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "add", fe.Op)
	require.Len(t, fe.Attempts, 2)
	assert.Equal(t, "go-git", fe.Attempts[0].Backend)
	assert.Equal(t, "git-cli", fe.Attempts[1].Backend)
	assert.Equal(t, secondaryErr, fe.Last())
	assert.ErrorIs(t, err, errors.ErrRepositoryNotFound)
	assert.Contains(t, err.Error(), "exit status 128")
}

func TestFallback_UnsupportedEverywhere(t *testing.T) {
	f, primary, secondary := newChain(t)
	ctx := context.Background()

	primary.EXPECT().ApplySparseCheckout(gomock.Any(), "lib").Return(errors.Unsupported("sparse-apply", "go-git"))
	secondary.EXPECT().ApplySparseCheckout(gomock.Any(), "lib").Return(errors.Unsupported("sparse-apply", "git-cli"))

	err := f.ApplySparseCheckout(ctx, "lib")
	assert.True(t, errors.IsUnsupported(err))
	assert.True(t, errors.IsFallbackError(err))
}

func TestFallback_StashNothingToStash(t *testing.T) {
	f, primary, secondary := newChain(t)
	ctx := context.Background()

	primary.EXPECT().StashSubmodule(gomock.Any(), "lib", gomock.Any()).Return(errors.Unsupported("stash", "go-git"))
	secondary.EXPECT().StashSubmodule(gomock.Any(), "lib", gomock.Any()).Return(errors.ErrNothingToStash)

	err := f.StashSubmodule(ctx, "lib", git.StashOptions{})
	assert.ErrorIs(t, err, errors.ErrNothingToStash)
	assert.False(t, errors.IsFallbackError(err))
}

func TestFallback_WriteGitmodulesPassesEntries(t *testing.T) {
	f, primary, _ := newChain(t)
	ctx := context.Background()

	entries := map[string]*config.SubmoduleEntry{
		"lib": {Name: "lib", Path: "vendor/lib", URL: "https://example.com/lib.git"},
	}
	primary.EXPECT().WriteGitmodules(gomock.Any(), entries).Return(nil)

	require.NoError(t, f.WriteGitmodules(ctx, entries))
}

func TestFallback_CancelledContext(t *testing.T) {
	f, _, _ := newChain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.InitSubmodule(ctx, "lib")
	assert.ErrorIs(t, err, context.Canceled)
}
