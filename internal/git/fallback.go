package git

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
)

// Fallback implements Backend over an ordered chain of backends. Each call
// is tried on the backends in order until one succeeds. Attempts are
// sequential and hold no lock, so callers must serialise access to one
// working tree. Partial changes made by a failed backend are not rolled
// back before the next one runs.
type Fallback struct {
	backends []Backend
	log      *zap.SugaredLogger
}

var _ Backend = (*Fallback)(nil)

// NewFallback creates an orchestrator trying backends in the given order
func NewFallback(log *zap.SugaredLogger, backends ...Backend) *Fallback {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Fallback{backends: backends, log: log}
}

// Backends returns the chain in attempt order
func (f *Fallback) Backends() []Backend {
	return f.backends
}

// Name returns the names of the chain joined by "+"
func (f *Fallback) Name() string {
	names := make([]string, 0, len(f.backends))
	for _, b := range f.backends {
		names = append(names, b.Name())
	}
	return strings.Join(names, "+")
}

// attempt runs fn on each backend until one succeeds. When all fail the
// returned FallbackError carries every backend's error.
func attempt[T any](ctx context.Context, f *Fallback, op string, fn func(Backend) (T, error)) (T, error) {
	var zero T
	attempts := make([]errors.Attempt, 0, len(f.backends))

	for i, b := range f.backends {
		if err := ctx.Err(); err != nil {
			return zero, errors.New(op, err)
		}

		v, err := fn(b)
		if err == nil {
			if i > 0 {
				f.log.Debugw("operation succeeded on fallback backend", "op", op, "backend", b.Name())
			}
			return v, nil
		}
		attempts = append(attempts, errors.Attempt{Backend: b.Name(), Err: err})

		last := i == len(f.backends)-1
		switch {
		case errors.IsUnsupported(err):
			f.log.Debugw("backend does not support operation", "op", op, "backend", b.Name())
		case last:
			f.log.Debugw("backend failed", "op", op, "backend", b.Name(), "error", err)
		default:
			f.log.Warnw("backend failed, retrying on next backend; partial changes are not rolled back",
				"op", op, "backend", b.Name(), "error", err)
		}
	}

	return zero, errors.NewFallbackError(op, attempts)
}

func run(ctx context.Context, f *Fallback, op string, fn func(Backend) error) error {
	_, err := attempt(ctx, f, op, func(b Backend) (struct{}, error) {
		return struct{}{}, fn(b)
	})
	return err
}

func (f *Fallback) ReadGitmodules(ctx context.Context) (map[string]*config.SubmoduleEntry, error) {
	return attempt(ctx, f, "read-gitmodules", func(b Backend) (map[string]*config.SubmoduleEntry, error) {
		return b.ReadGitmodules(ctx)
	})
}

func (f *Fallback) WriteGitmodules(ctx context.Context, entries map[string]*config.SubmoduleEntry) error {
	return run(ctx, f, "write-gitmodules", func(b Backend) error {
		return b.WriteGitmodules(ctx, entries)
	})
}

func (f *Fallback) ReadGitConfig(ctx context.Context, level ConfigLevel) (map[string]string, error) {
	return attempt(ctx, f, "read-config", func(b Backend) (map[string]string, error) {
		return b.ReadGitConfig(ctx, level)
	})
}

func (f *Fallback) SetGitConfig(ctx context.Context, key, value string, level ConfigLevel) error {
	return run(ctx, f, "set-config", func(b Backend) error {
		return b.SetGitConfig(ctx, key, value, level)
	})
}

func (f *Fallback) RemoveGitConfigSection(ctx context.Context, section string, level ConfigLevel) error {
	return run(ctx, f, "remove-config-section", func(b Backend) error {
		return b.RemoveGitConfigSection(ctx, section, level)
	})
}

func (f *Fallback) AddSubmodule(ctx context.Context, opts AddOptions) error {
	return run(ctx, f, "add", func(b Backend) error {
		return b.AddSubmodule(ctx, opts)
	})
}

func (f *Fallback) InitSubmodule(ctx context.Context, path string) error {
	return run(ctx, f, "init", func(b Backend) error {
		return b.InitSubmodule(ctx, path)
	})
}

func (f *Fallback) UpdateSubmodule(ctx context.Context, path string, opts UpdateOptions) error {
	return run(ctx, f, "update", func(b Backend) error {
		return b.UpdateSubmodule(ctx, path, opts)
	})
}

func (f *Fallback) DeleteSubmodule(ctx context.Context, path string) error {
	return run(ctx, f, "delete", func(b Backend) error {
		return b.DeleteSubmodule(ctx, path)
	})
}

func (f *Fallback) DeinitSubmodule(ctx context.Context, path string, force bool) error {
	return run(ctx, f, "deinit", func(b Backend) error {
		return b.DeinitSubmodule(ctx, path, force)
	})
}

func (f *Fallback) SubmoduleStatus(ctx context.Context, path string) (*DetailedStatus, error) {
	return attempt(ctx, f, "status", func(b Backend) (*DetailedStatus, error) {
		return b.SubmoduleStatus(ctx, path)
	})
}

func (f *Fallback) ListSubmodules(ctx context.Context) ([]string, error) {
	return attempt(ctx, f, "list", func(b Backend) ([]string, error) {
		return b.ListSubmodules(ctx)
	})
}

func (f *Fallback) FetchSubmodule(ctx context.Context, path string, opts FetchOptions) error {
	return run(ctx, f, "fetch", func(b Backend) error {
		return b.FetchSubmodule(ctx, path, opts)
	})
}

func (f *Fallback) ResetSubmodule(ctx context.Context, path string, opts ResetOptions) error {
	return run(ctx, f, "reset", func(b Backend) error {
		return b.ResetSubmodule(ctx, path, opts)
	})
}

func (f *Fallback) CleanSubmodule(ctx context.Context, path string, opts CleanOptions) error {
	return run(ctx, f, "clean", func(b Backend) error {
		return b.CleanSubmodule(ctx, path, opts)
	})
}

// StashSubmodule stops at the first backend reporting nothing to stash,
// since that is an answer rather than a failure.
func (f *Fallback) StashSubmodule(ctx context.Context, path string, opts StashOptions) error {
	var soft error
	err := run(ctx, f, "stash", func(b Backend) error {
		err := b.StashSubmodule(ctx, path, opts)
		if errors.IsSoft(err) {
			soft = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return soft
}

func (f *Fallback) EnableSparseCheckout(ctx context.Context, path string) error {
	return run(ctx, f, "sparse-enable", func(b Backend) error {
		return b.EnableSparseCheckout(ctx, path)
	})
}

func (f *Fallback) SetSparsePatterns(ctx context.Context, path string, patterns []string) error {
	return run(ctx, f, "sparse-set", func(b Backend) error {
		return b.SetSparsePatterns(ctx, path, patterns)
	})
}

func (f *Fallback) SparsePatterns(ctx context.Context, path string) ([]string, error) {
	return attempt(ctx, f, "sparse-get", func(b Backend) ([]string, error) {
		return b.SparsePatterns(ctx, path)
	})
}

func (f *Fallback) ApplySparseCheckout(ctx context.Context, path string) error {
	return run(ctx, f, "sparse-apply", func(b Backend) error {
		return b.ApplySparseCheckout(ctx, path)
	})
}
