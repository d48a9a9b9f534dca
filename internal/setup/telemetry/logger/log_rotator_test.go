package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robalyx/affiliates/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestLogRotator_KeepsNewestLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")

	w, err := logger.NewLogRotator(path, 3)
	require.NoError(t, err)

	for i := range 6 {
		_, err := fmt.Fprintf(w, "line %d\n", i)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, readLines(t, path))

	_, err = fmt.Fprintln(w, "line 6")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"line 3", "line 4", "line 5", "line 6"}, readLines(t, path))
}

func TestLogRotator_Unbounded(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")

	w, err := logger.NewLogRotator(path, 0)
	require.NoError(t, err)

	for i := range 10 {
		_, err := fmt.Fprintf(w, "line %d\n", i)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	assert.Len(t, readLines(t, path), 10)
}

func TestRingBuffer(t *testing.T) {
	t.Parallel()

	rb := logger.NewRingBuffer(2)
	assert.Nil(t, rb.Lines())

	rb.Add("a")
	rb.Add("b")
	rb.Add("c")

	assert.Equal(t, 2, rb.Len())
	assert.Equal(t, []string{"b", "c"}, rb.Lines())
}
