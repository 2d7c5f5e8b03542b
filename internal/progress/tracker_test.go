package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTracker_Lifecycle(t *testing.T) {
	tracker := &DefaultTracker{}
	op := tracker.Start("update")

	require.NotNil(t, op)
	assert.Equal(t, "update", op.Name)
	assert.False(t, op.StartTime.IsZero())
	assert.Equal(t, StatusInProgress, op.Status)

	tracker.Update(2, 3)
	assert.Equal(t, int64(2), op.LastCurrent)
	assert.Equal(t, int64(3), op.LastTotal)

	tracker.Complete()
	assert.Equal(t, StatusCompleted, op.Status)

	op = tracker.Start("reset")
	testErr := errors.New("test error")
	tracker.Error(testErr)
	assert.Equal(t, StatusFailed, op.Status)
	assert.Same(t, testErr, op.Err)
}

func TestDefaultTracker_EdgeCases(t *testing.T) {
	tracker := &DefaultTracker{}

	tracker.Update(50, 100)
	tracker.Complete()
	tracker.Error(errors.New("test error"))
	assert.Nil(t, tracker.CurrentOperation)
}

func TestConsoleTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewConsoleTracker(&buf)

	tracker.Start("sync")
	tracker.Update(1, 2)
	tracker.Complete()
	tracker.Start("reset")
	tracker.Error(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "Starting: sync\n")
	assert.Contains(t, out, "  [1/2] sync\n")
	assert.Contains(t, out, "Completed: sync")
	assert.Contains(t, out, "Error: reset - boom\n")

	// Calls after completion are ignored
	buf.Reset()
	tracker.Update(1, 1)
	tracker.Complete()
	assert.Empty(t, buf.String())
}

func TestWriter(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{
			name:  "git binary progress",
			input: []string{"Cloning into 'lib'...\n", "Receiving objects:  67% (35484/52960), 236.76 MiB | 78.92 MiB/s\n"},
			want:  "> Receiving objects: 67% (35484/52960)\n",
		},
		{
			name:  "completion",
			input: []string{"Receiving objects: 100% (52960/52960), 298.63 MiB | 81.39 MiB/s, done.\n"},
			want:  "> Receiving objects: done\n",
		},
		{
			name:  "go-git carriage returns and repeats",
			input: []string{"Counting objects: 50% (1/2)\r", "Counting objects: 50% (1/2)\r", "Counting objects: 100% (2/2)\r"},
			want:  "> Counting objects: 50% (1/2)\n> Counting objects: 100% (2/2)\n",
		},
		{
			name:  "remote prefix and split writes",
			input: []string{"remote: Enumerating", " objects: 5, done.\n"},
			want:  "> Enumerating objects: 5, done.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter("> ", &buf)
			for _, in := range tt.input {
				n, err := w.Write([]byte(in))
				require.NoError(t, err)
				assert.Equal(t, len(in), n)
			}
			w.Flush()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
