package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ILIASSYNC_OUTPUT", "/tmp/courses")
	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, "/tmp/courses", cfg.Output)
	require.Equal(t, 1, cfg.Jobs)
	require.Equal(t, float64(8), cfg.Rate)
	require.True(t, cfg.Videos)
	require.False(t, cfg.Forum)
	require.Equal(t, "iliassync/0.3", cfg.UserAgent)
	require.Equal(t, filepath.Join("/tmp/courses", ".iliassession"), cfg.SessionFile,
		"the session file defaults to living inside the output directory")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "output: /tmp/courses\njobs: 8\nrate: 30\nforum: true\nsession-file: /etc/ilias/cookies\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Jobs)
	require.Equal(t, float64(30), cfg.Rate)
	require.True(t, cfg.Forum)
	require.Equal(t, "/etc/ilias/cookies", cfg.SessionFile)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: /tmp/courses\njobs: 8\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("jobs", 1, "")
	flags.Bool("force", false, "")
	require.NoError(t, flags.Parse([]string{"--jobs=16", "--force"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Jobs)
	require.True(t, cfg.Force)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("ILIASSYNC_OUTPUT", "/tmp/courses")
	t.Setenv("ILIASSYNC_SKIP_FILES", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.True(t, cfg.SkipFiles)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing output", func(t *testing.T) {
		_, err := Load("", nil)
		require.Error(t, err)
	})

	t.Run("bad jobs", func(t *testing.T) {
		t.Setenv("ILIASSYNC_OUTPUT", "/tmp/courses")
		t.Setenv("ILIASSYNC_JOBS", "0")
		_, err := Load("", nil)
		require.Error(t, err)
	})

	t.Run("bad rate", func(t *testing.T) {
		t.Setenv("ILIASSYNC_OUTPUT", "/tmp/courses")
		t.Setenv("ILIASSYNC_RATE", "-1")
		_, err := Load("", nil)
		require.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		require.Error(t, err)
	})
}
