package ilias

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionClient(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".iliassession")
	content := "# saved by the login helper\nPHPSESSID=abc123\n\nauthtoken = xyz \n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	client, err := NewSessionClient(file)
	require.NoError(t, err)

	base, err := url.Parse(BaseURL)
	require.NoError(t, err)
	cookies := client.Jar.Cookies(base)
	require.Len(t, cookies, 2)
	require.Equal(t, "PHPSESSID", cookies[0].Name)
	require.Equal(t, "abc123", cookies[0].Value)
	require.Equal(t, "authtoken", cookies[1].Name)
	require.Equal(t, "xyz", cookies[1].Value)
}

func TestNewSessionClientErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewSessionClient(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".iliassession")
		require.NoError(t, os.WriteFile(file, []byte("# nothing here\n"), 0o600))
		_, err := NewSessionClient(file)
		require.Error(t, err)
	})

	t.Run("malformed line", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), ".iliassession")
		require.NoError(t, os.WriteFile(file, []byte("not a cookie\n"), 0o600))
		_, err := NewSessionClient(file)
		require.Error(t, err)
	})
}
