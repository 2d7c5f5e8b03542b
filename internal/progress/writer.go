package progress

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
)

var (
	// Match lines like:
	// Receiving objects:  67% (35484/52960), 236.76 MiB | 78.92 MiB/s
	progressRegex = regexp.MustCompile(`(Counting objects|Compressing objects|Receiving objects|Resolving deltas):\s*(\d+)%\s*\((\d+)/(\d+)\)`)
	// Match completion lines like:
	// Receiving objects: 100% (52960/52960), 298.63 MiB | 81.39 MiB/s, done.
	completionRegex = regexp.MustCompile(`(Receiving objects|Resolving deltas):\s*100%.*done`)
)

// Writer reformats git sideband progress. It accepts both the output of
// the git binary and the go-git progress stream, which separate updates
// with carriage returns.
type Writer struct {
	mu      sync.Mutex
	prefix  string
	w       io.Writer
	partial string
	last    string
}

// NewWriter creates a Writer that prefixes every emitted line
func NewWriter(prefix string, w io.Writer) *Writer {
	return &Writer{prefix: prefix, w: w}
}

// Write implements io.Writer
func (pw *Writer) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	data := pw.partial + strings.ReplaceAll(string(p), "\r", "\n")
	lines := strings.Split(data, "\n")
	pw.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		pw.emit(line)
	}
	return len(p), nil
}

// Flush writes any buffered partial line
func (pw *Writer) Flush() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.partial != "" {
		pw.emit(pw.partial)
		pw.partial = ""
	}
}

func (pw *Writer) emit(line string) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "remote:"))
	if line == "" || strings.HasPrefix(line, "Cloning into") {
		return
	}

	if m := completionRegex.FindStringSubmatch(line); m != nil {
		line = fmt.Sprintf("%s: done", m[1])
	} else if m := progressRegex.FindStringSubmatch(line); m != nil {
		line = fmt.Sprintf("%s: %s%% (%s/%s)", m[1], m[2], m[3], m[4])
	}

	// go-git repeats identical updates
	if line == pw.last {
		return
	}
	pw.last = line
	fmt.Fprintf(pw.w, "%s%s\n", pw.prefix, line)
}
