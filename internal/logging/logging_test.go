package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRotatingFileRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	f, err := OpenRotatingFile(path, 10, 2)
	require.NoError(t, err)
	defer f.Close()

	for _, line := range []string{"0123456789\n", "second\n", "third-line\n", "fourth\n"} {
		_, err := f.Write([]byte(line))
		require.NoError(t, err)
	}

	assert.Equal(t, "fourth\n", readFile(t, path))
	assert.Equal(t, "second\nthird-line\n", readFile(t, path+".1"))
	assert.Equal(t, "0123456789\n", readFile(t, path+".2"))

	for _, line := range []string{"fifth-----\n", "sixth\n"} {
		_, err := f.Write([]byte(line))
		require.NoError(t, err)
	}
	assert.Equal(t, "sixth\n", readFile(t, path))
	assert.Equal(t, "fourth\nfifth-----\n", readFile(t, path+".1"))
	assert.Equal(t, "second\nthird-line\n", readFile(t, path+".2"))
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRotatingFileClosed(t *testing.T) {
	f, err := OpenRotatingFile(filepath.Join(t.TempDir(), "x.log"), 0, 1)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	logger, closer, err := New(Options{Level: "warn", File: path, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("sticker image unavailable", "sticker", "todo")
	require.NoError(t, closer.Close())

	out := readFile(t, path)
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "level=WARN"))
	assert.Contains(t, out, "sticker=todo")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "hello", Truncate("hello", 0))
}
