package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/errors"
)

const gitlinkPrefix = "gitdir:"

// ResolveGitDir returns the git directory of the working tree at workdir,
// following a gitlink file when .git is not a directory.
func ResolveGitDir(workdir string) (string, error) {
	marker := filepath.Join(workdir, ".git")
	info, err := os.Stat(marker)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errors.ErrRepositoryNotFound, workdir)
		}
		return "", err
	}
	if info.IsDir() {
		return marker, nil
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, gitlinkPrefix) {
		return "", fmt.Errorf("%w: malformed gitlink file %s", errors.ErrRepositoryNotFound, marker)
	}
	gitDir := strings.TrimSpace(strings.TrimPrefix(line, gitlinkPrefix))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(workdir, gitDir)
	}
	return filepath.Clean(gitDir), nil
}

// HasGitMarker reports whether workdir contains a .git file or directory
func HasGitMarker(workdir string) bool {
	_, err := os.Lstat(filepath.Join(workdir, ".git"))
	return err == nil
}

// SparseFile returns the sparse-checkout control file inside gitDir
func SparseFile(gitDir string) string {
	return filepath.Join(gitDir, "info", "sparse-checkout")
}

// ParseSparsePatterns returns the pattern lines of a control file,
// skipping blanks and comments.
func ParseSparsePatterns(data []byte) []string {
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// ReadSparsePatterns reads the control file of gitDir. The error wraps
// os.ErrNotExist when the file is missing.
func ReadSparsePatterns(gitDir string) ([]string, error) {
	data, err := os.ReadFile(SparseFile(gitDir))
	if err != nil {
		return nil, err
	}
	return ParseSparsePatterns(data), nil
}

// WriteSparsePatterns replaces the control file of gitDir
func WriteSparsePatterns(gitDir string, patterns []string) error {
	file := SparseFile(gitDir)
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errors.New("sparse-checkout", err).WithKind(errors.KindSparse)
	}
	var buf bytes.Buffer
	for _, p := range patterns {
		buf.WriteString(strings.TrimSpace(p))
		buf.WriteByte('\n')
	}
	if err := config.AtomicWriteFile(file, buf.Bytes(), 0644); err != nil {
		return errors.New("sparse-checkout", err).WithKind(errors.KindSparse)
	}
	return nil
}

// SparseState classifies a SparseStatus
type SparseState int

const (
	SparseNotEnabled SparseState = iota
	SparseNotConfigured
	SparseCorrect
	SparseMismatch
)

func (s SparseState) String() string {
	switch s {
	case SparseNotEnabled:
		return "not enabled"
	case SparseNotConfigured:
		return "not configured"
	case SparseCorrect:
		return "correct"
	case SparseMismatch:
		return "mismatch"
	}
	return fmt.Sprintf("SparseState(%d)", int(s))
}

// SparseStatus compares configured sparse paths with the control file.
// Expected and Actual are only set for SparseMismatch.
type SparseStatus struct {
	State    SparseState `json:"state" yaml:"state"`
	Expected []string    `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   []string    `json:"actual,omitempty" yaml:"actual,omitempty"`
}

func (s SparseStatus) String() string {
	if s.State == SparseMismatch {
		return fmt.Sprintf("mismatch (expected %v, actual %v)", s.Expected, s.Actual)
	}
	return s.State.String()
}

// MarshalText renders the state name for JSON and YAML reports
func (s SparseState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CompareSparse classifies the control file content against the expected
// patterns. enabled reports whether a control file exists. The state is
// correct when both hold the same set of patterns, in any order.
func CompareSparse(enabled bool, expected, actual []string) SparseStatus {
	if !enabled {
		return SparseStatus{State: SparseNotEnabled}
	}
	if len(actual) == 0 {
		return SparseStatus{State: SparseNotConfigured}
	}
	if !samePatterns(expected, actual) {
		return SparseStatus{
			State:    SparseMismatch,
			Expected: slices.Clone(expected),
			Actual:   slices.Clone(actual),
		}
	}
	return SparseStatus{State: SparseCorrect}
}

func samePatterns(a, b []string) bool {
	x := slices.Compact(slices.Sorted(slices.Values(a)))
	y := slices.Compact(slices.Sorted(slices.Values(b)))
	return slices.Equal(x, y)
}

// SparseIncludes reports whether path, relative to the submodule root, is
// selected by the non-cone patterns. Negated patterns are applied in
// order, as git does.
func SparseIncludes(patterns []string, rel string) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	included := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		if matchSparse(p, rel) {
			included = !negate
		}
	}
	return included
}

func matchSparse(pattern, rel string) bool {
	anchored := strings.HasPrefix(pattern, "/") || strings.Contains(strings.TrimSuffix(pattern, "/"), "/")
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return false
	}

	candidates := []string{rel}
	if !anchored {
		// an unanchored pattern matches at any depth
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			candidates = append(candidates, strings.Join(parts[i:], "/"))
		}
	}
	for _, c := range candidates {
		if c == pattern || strings.HasPrefix(c, pattern+"/") {
			return true
		}
		// a glob matches the entry itself or any of its leading directories
		parts := strings.Split(c, "/")
		for i := 1; i <= len(parts); i++ {
			if ok, _ := path.Match(pattern, strings.Join(parts[:i], "/")); ok {
				return true
			}
		}
	}
	return false
}

// CheckSparse reads the control file of the working tree at workdir and
// compares it with expected.
func CheckSparse(workdir string, expected []string) (SparseStatus, error) {
	gitDir, err := ResolveGitDir(workdir)
	if err != nil {
		return SparseStatus{}, err
	}
	actual, err := ReadSparsePatterns(gitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return CompareSparse(false, expected, nil), nil
		}
		return SparseStatus{}, errors.New("sparse-checkout", err).WithKind(errors.KindSparse)
	}
	return CompareSparse(true, expected, actual), nil
}
