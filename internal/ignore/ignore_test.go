package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeIgnore(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))
}

func TestMatchSingleLevel(t *testing.T) {
	dir := t.TempDir()
	writeIgnore(t, dir, "# comment\n\n*.mp4\nOld Material/\n")
	rules := Load(dir, zaptest.NewLogger(t))

	require.True(t, rules.Match("Lecture 01.mp4", false))
	require.True(t, rules.Match("Old Material", true))
	require.True(t, rules.Match("Old Material/sheet.pdf", false))
	require.False(t, rules.Match("Old Material", false), "directory pattern must not match a file")
	require.False(t, rules.Match("sheet.pdf", false))
}

func TestMatchNegationWithinLevel(t *testing.T) {
	dir := t.TempDir()
	writeIgnore(t, dir, "*.mp4\n!keynote.mp4\n")
	rules := Load(dir, zaptest.NewLogger(t))

	require.True(t, rules.Match("lecture.mp4", false))
	require.False(t, rules.Match("keynote.mp4", false), "later negation overrides earlier pattern")
}

func TestMatchLayeredPrecedence(t *testing.T) {
	// the file closer to the sync target is consulted first and its
	// verdict short-circuits the outer files entirely
	t.Run("inner ignore beats outer re-include", func(t *testing.T) {
		root := t.TempDir()
		target := filepath.Join(root, "SS23", "NGI")
		writeIgnore(t, target, "foo/\n")
		writeIgnore(t, root, "!foo/bar\n")
		rules := Load(target, zaptest.NewLogger(t))

		require.True(t, rules.Match("foo/bar", true))
	})

	t.Run("inner re-include beats outer ignore", func(t *testing.T) {
		root := t.TempDir()
		target := filepath.Join(root, "SS23", "NGI")
		writeIgnore(t, root, "foo/\n")
		writeIgnore(t, target, "!foo/bar\n")
		rules := Load(target, zaptest.NewLogger(t))

		require.False(t, rules.Match("foo/bar", true))
		require.True(t, rules.Match("foo/baz", true), "outer ignore still applies elsewhere")
	})
}

func TestMatchOuterFileSeesPrefixedPath(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "SS23", "NGI")
	require.NoError(t, os.MkdirAll(target, 0o750))
	writeIgnore(t, root, "SS23/NGI/secret/\nSS24/*\n")
	rules := Load(target, zaptest.NewLogger(t))

	require.True(t, rules.Match("secret", true),
		"outer patterns match against the path relative to their own directory")
	require.False(t, rules.Match("anything-else", true),
		"the SS24 pattern lives on a different branch")
}

func TestMatchNeverMatchesTarget(t *testing.T) {
	dir := t.TempDir()
	writeIgnore(t, dir, "*\n")
	rules := Load(dir, zaptest.NewLogger(t))

	require.False(t, rules.Match("", true))
	require.False(t, rules.Match(".", true))
	require.True(t, rules.Match("anything", true))
}

func TestLoadWithoutAnyFiles(t *testing.T) {
	rules := Load(t.TempDir(), zaptest.NewLogger(t))
	require.False(t, rules.Match("whatever", false))
}
