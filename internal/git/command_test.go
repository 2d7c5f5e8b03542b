package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "fetch", subcommand([]string{"-c", "http.extraHeader=x", "fetch", "origin"}))
	assert.Equal(t, "status", subcommand([]string{"-C", "dir", "--no-pager", "status"}))
	assert.Equal(t, "", subcommand([]string{"-c"}))
	assert.True(t, isNetworkCommand([]string{"clone", "url"}))
	assert.False(t, isNetworkCommand([]string{"config", "--file", ".gitmodules", "--list"}))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(fmt.Errorf("fatal: unable to access: Could not resolve host: github.com")))
	assert.True(t, isTransient(&CommandError{Stderr: "error: RPC failed; HTTP 429", Err: fmt.Errorf("exit status 128")}))
	assert.False(t, isTransient(fmt.Errorf("fatal: repository not found")))
	assert.False(t, isTransient(context.DeadlineExceeded))
}

func TestRedactArgs(t *testing.T) {
	args := []string{"-c", "http.extraHeader=Authorization: Basic c2VjcmV0", "fetch"}
	got := redactArgs(args)
	assert.Equal(t, []string{"-c", "http.extraHeader=<redacted>", "fetch"}, got)
	assert.Contains(t, args[1], "c2VjcmV0", "input is not modified")

	scoped := redactArgs([]string{"-c", "http.https://github.com/.extraheader=Authorization: Basic abc"})
	assert.Equal(t, "http.https://github.com/.extraheader=<redacted>", scoped[1])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, -1, ExitCode(fmt.Errorf("plain")))
	assert.Equal(t, -1, ExitCode(nil))
}

func TestCommandError(t *testing.T) {
	err := &CommandError{Args: []string{"stash", "push"}, Stderr: "No local changes to save\n", Err: fmt.Errorf("exit status 1")}
	assert.Equal(t, "git stash push: exit status 1: No local changes to save", err.Error())

	err = &CommandError{Args: []string{"status"}, Err: fmt.Errorf("exit status 128")}
	assert.Equal(t, "git status: exit status 128", err.Error())
}

// fakeGit writes a shell script standing in for git. It fails with
// stderr for the first failures runs and then prints "ok".
func fakeGit(t *testing.T, failures int, stderr string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script runner not supported on windows")
	}

	dir := t.TempDir()
	counter := filepath.Join(dir, "count")
	script := filepath.Join(dir, "git")
	content := fmt.Sprintf(`#!/bin/sh
echo x >> %q
n=$(wc -l < %q)
if [ "$n" -le %d ]; then
  echo %q >&2
  exit 128
fi
echo ok
`, counter, counter, failures, stderr)
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script, counter
}

func attempts(t *testing.T, counter string) int {
	t.Helper()
	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestExecRunner_RetriesTransientFailures(t *testing.T) {
	script, counter := fakeGit(t, 2, "fatal: Could not resolve host: example.com")
	r := NewExecRunner(nil)
	r.Binary = script
	r.RetryInterval = 10 * time.Millisecond

	out, err := r.Run(context.Background(), t.TempDir(), "fetch", "origin")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))
	assert.Equal(t, 3, attempts(t, counter))
}

func TestExecRunner_PermanentFailure(t *testing.T) {
	script, counter := fakeGit(t, 5, "fatal: repository not found")
	r := NewExecRunner(nil)
	r.Binary = script
	r.RetryInterval = 10 * time.Millisecond

	_, err := r.Run(context.Background(), t.TempDir(), "fetch", "origin")
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Stderr, "repository not found")
	assert.Equal(t, 128, ExitCode(err))
	assert.Equal(t, 1, attempts(t, counter))
}

func TestExecRunner_LocalCommandsAreNotRetried(t *testing.T) {
	script, counter := fakeGit(t, 1, "fatal: Could not resolve host: example.com")
	r := NewExecRunner(nil)
	r.Binary = script

	_, err := r.Run(context.Background(), t.TempDir(), "status", "--porcelain")
	require.Error(t, err)
	assert.Equal(t, 1, attempts(t, counter))
}

func TestExecRunner_GivesUpAfterMaxTries(t *testing.T) {
	script, counter := fakeGit(t, 10, "error: RPC failed; HTTP 429")
	r := NewExecRunner(nil)
	r.Binary = script
	r.MaxTries = 2
	r.RetryInterval = 10 * time.Millisecond

	_, err := r.Run(context.Background(), t.TempDir(), "clone", "https://example.com/x.git")
	require.Error(t, err)
	assert.Equal(t, 2, attempts(t, counter))
}
