package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	require.Equal(t, "Analysis I-II", Escape("Analysis I/II"))
	require.Equal(t, "a-b-c", Escape(`a/b\c`))
	require.Equal(t, "plain name", Escape("plain name"))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	require.NoError(t, EnsureDir(dir), "existing directory is fine")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	n, err := WriteFile(path, strings.NewReader("hello world"))
	require.NoError(t, err)
	require.Equal(t, int64(11), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteFileString(path, "long original content"))
	require.NoError(t, WriteFileString(path, "short"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "short", string(data))
}
