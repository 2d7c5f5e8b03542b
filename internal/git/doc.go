// Package git defines the capability contract shared by submod's git
// backends and the orchestrator that chains them.
//
// Key Components:
//
// Backend: the interface every implementation satisfies. It covers
// .gitmodules and git config access, the submodule lifecycle (add, init,
// update, deinit, delete), status queries, fetch/reset/clean/stash and
// sparse-checkout control. An implementation that cannot perform an
// operation returns an error matching errors.ErrUnsupported.
//
// Fallback: a Backend over an ordered chain. Each call runs on the first
// backend and moves to the next one when it fails. When every backend
// fails the caller receives an *errors.FallbackError holding each cause.
//
// Runner: the seam used by the native backend to execute the git binary.
// ExecRunner retries transient network failures with exponential backoff.
//
// Sparse-checkout helpers: ResolveGitDir follows gitlink files, and
// ReadSparsePatterns, WriteSparsePatterns and CompareSparse operate on the
// info/sparse-checkout control file. Both backends share them.
//
// Example Usage:
//
//	primary, _ := gogit.New(root, log)
//	secondary := gitcli.New(root, git.NewExecRunner(log), log)
//	backend := git.NewFallback(log, primary, secondary)
//
//	if err := backend.AddSubmodule(ctx, git.AddOptions{
//	    Name: "lib",
//	    Path: "vendor/lib",
//	    URL:  "https://github.com/org/lib.git",
//	}); err != nil {
//	    return err
//	}
//
// Thread Safety:
//
// Backends mutate the index and config files of one working tree without
// locking. Callers must not run operations on the same working tree from
// multiple goroutines.
package git
