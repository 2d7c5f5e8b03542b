package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/errors"
)

const (
	defaultCommandTimeout = 10 * time.Minute
	defaultMaxTries       = 3
)

// Runner executes git commands. It exists so the native backend can be
// tested without a git binary.
type Runner interface {
	// Run executes git with args in dir and returns its standard output
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	return f(ctx, dir, args...)
}

// CommandError is returned when git exits unsuccessfully
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the git executable. Network commands are retried with
// exponential backoff when git reports a transient failure.
type ExecRunner struct {
	// Binary is the git executable, "git" when empty
	Binary string
	// Env is appended to the process environment
	Env []string
	// Progress receives standard error of network commands when set
	Progress io.Writer
	Timeout  time.Duration
	MaxTries uint
	// RetryInterval is the first backoff delay, one second when zero
	RetryInterval time.Duration
	Log           *zap.SugaredLogger
}

// NewExecRunner returns a runner with default timeout and retry settings
func NewExecRunner(log *zap.SugaredLogger) *ExecRunner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ExecRunner{
		Binary:   "git",
		Timeout:  defaultCommandTimeout,
		MaxTries: defaultMaxTries,
		Log:      log,
	}
}

// Available reports whether the git executable can be found
func (r *ExecRunner) Available() bool {
	_, err := exec.LookPath(r.binary())
	return err == nil
}

func (r *ExecRunner) binary() string {
	if r.Binary == "" {
		return "git"
	}
	return r.Binary
}

// Run executes git, retrying transient network failures
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if !isNetworkCommand(args) {
		return r.once(ctx, dir, args)
	}

	tries := r.MaxTries
	if tries == 0 {
		tries = defaultMaxTries
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Second
	if r.RetryInterval > 0 {
		expBackoff.InitialInterval = r.RetryInterval
	}
	expBackoff.Reset()

	return backoff.Retry(ctx, func() ([]byte, error) {
		out, err := r.once(ctx, dir, args)
		if err != nil && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger().Debugw("retrying git command", "args", redactArgs(args), "after", d, "error", err)
		}),
	)
}

func (r *ExecRunner) once(ctx context.Context, dir string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Progress != nil && isNetworkCommand(args) {
		cmd.Stderr = io.MultiWriter(&stderr, r.Progress)
	}

	r.logger().Debugw("running git", "dir", dir, "args", redactArgs(args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.Bytes(), &CommandError{Args: redactArgs(args), Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) logger() *zap.SugaredLogger {
	if r.Log == nil {
		return zap.NewNop().Sugar()
	}
	return r.Log
}

// subcommand returns the first argument that is not a global option
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "-c" || a == "-C":
			i++
		case strings.HasPrefix(a, "-"):
		default:
			return a
		}
	}
	return ""
}

func isNetworkCommand(args []string) bool {
	switch subcommand(args) {
	case "clone", "fetch", "pull", "submodule", "ls-remote":
		return true
	}
	return false
}

var transientMarkers = []string{
	"HTTP 429",
	"rate limit",
	"Could not resolve host",
	"Connection timed out",
	"Connection reset",
	"early EOF",
	"The remote end hung up unexpectedly",
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

const extraHeaderKey = "extraheader="

// redactArgs hides credentials passed through http.extraHeader and
// http.<url>.extraHeader options
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if idx := strings.Index(strings.ToLower(a), extraHeaderKey); idx >= 0 && strings.HasPrefix(a, "http.") {
			out[i] = a[:idx+len(extraHeaderKey)] + "<redacted>"
			continue
		}
		out[i] = a
	}
	return out
}

// ExitCode returns the exit status carried by a CommandError, or -1
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
