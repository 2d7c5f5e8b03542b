package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      &OperationError{Op: "add", Err: stderrors.New("repository not found")},
			expected: "add: repository not found",
		},
		{
			name:     "without underlying error",
			err:      &OperationError{Op: "fetch"},
			expected: "fetch",
		},
		{
			name: "with backend and submodule",
			err: &OperationError{
				Op:        "reset",
				Backend:   "gitcli",
				Submodule: "lib",
				Err:       stderrors.New("exit status 128"),
			},
			expected: "reset [gitcli] (lib): exit status 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	underlying := stderrors.New("underlying error")
	opErr := New("stash", underlying)

	assert.Same(t, underlying, opErr.Unwrap())
}

func TestNew_InfersKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unsupported", ErrUnsupported, KindUnsupported},
		{"unsupported strategy", fmt.Errorf("merge: %w", ErrUnsupportedStrategy), KindUnsupported},
		{"not found", fmt.Errorf("vendor/lib: %w", ErrSubmoduleNotFound), KindNotFound},
		{"repository", ErrRepositoryNotFound, KindRepository},
		{"config", ErrInvalidConfig, KindConfig},
		{"nested operation error", New("inner", ErrUnsupported), KindUnsupported},
		{"plain error", stderrors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New("op", tt.err).Kind)
		})
	}
}

func TestOperationError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err1     *OperationError
		err2     error
		expected bool
	}{
		{
			name:     "matching operations",
			err1:     &OperationError{Op: "add", Err: stderrors.New("error1")},
			err2:     &OperationError{Op: "add", Err: stderrors.New("error2")},
			expected: true,
		},
		{
			name:     "different operations",
			err1:     &OperationError{Op: "add", Err: stderrors.New("error")},
			err2:     &OperationError{Op: "init", Err: stderrors.New("error")},
			expected: false,
		},
		{
			name:     "matching kind",
			err1:     &OperationError{Op: "stash", Kind: KindUnsupported},
			err2:     &OperationError{Op: "stash", Kind: KindUnsupported},
			expected: true,
		},
		{
			name:     "different kind",
			err1:     &OperationError{Op: "stash", Kind: KindIO},
			err2:     &OperationError{Op: "stash", Kind: KindUnsupported},
			expected: false,
		},
		{
			name:     "different error types",
			err1:     &OperationError{Op: "add", Err: stderrors.New("error")},
			err2:     stderrors.New("not an operation error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err1.Is(tt.err2))
		})
	}
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("stash", "gogit")

	assert.Equal(t, "stash [gogit]: operation not supported by this backend", err.Error())
	assert.True(t, IsUnsupported(err))
	assert.True(t, Is(err, ErrUnsupported))
	assert.False(t, IsNotFound(err))
}

func TestHelpers(t *testing.T) {
	wrapped := New("stash", ErrNothingToStash).WithSubmodule("lib").WithBackend("gitcli")

	assert.True(t, IsSoft(wrapped))
	assert.False(t, IsUnsupported(wrapped))
	assert.Equal(t, "lib", wrapped.Submodule)
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrRepositoryNotFound)))
	assert.Equal(t, "unsupported", KindUnsupported.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestFallbackError(t *testing.T) {
	primary := Unsupported("add", "gogit")
	secondary := New("add", stderrors.New("clone failed")).WithBackend("gitcli")
	err := NewFallbackError("add", []Attempt{
		{Backend: "gogit", Err: primary},
		{Backend: "gitcli", Err: secondary},
	})

	assert.Equal(t,
		"add: all backends failed: gogit: add [gogit]: operation not supported by this backend; gitcli: add [gitcli]: clone failed",
		err.Error())
	assert.True(t, Is(err, ErrUnsupported), "primary cause must stay reachable")
	assert.Same(t, secondary, err.Last())
	assert.True(t, IsFallbackError(fmt.Errorf("wrapped: %w", err)))

	var opErr *OperationError
	require.True(t, As(err, &opErr))
	assert.Equal(t, "gogit", opErr.Backend)
}

func TestFallbackError_Empty(t *testing.T) {
	err := NewFallbackError("list", nil)
	assert.Nil(t, err.Last())
	assert.Empty(t, err.Unwrap())
}
