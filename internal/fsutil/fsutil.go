// Package fsutil holds the small filesystem helpers shared by the handlers.
package fsutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// invalidChars are replaced in names destined for the local filesystem.
// Windows forbids a larger set than POSIX.
var invalidChars = func() string {
	if runtime.GOOS == "windows" {
		return `/\:<>"|?*`
	}
	return `/\`
}()

// Escape replaces filesystem-hostile characters in s with '-'.
func Escape(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return '-'
		}
		return r
	}, s)
}

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteFile streams r into a new file at path, replacing any previous
// content. The number of bytes written is returned.
func WriteFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	w := bufio.NewWriter(f)
	n, err := io.Copy(w, r)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("write file: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return n, fmt.Errorf("flush file: %w", err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close file: %w", err)
	}
	return n, nil
}

// WriteFileString is WriteFile for in-memory content.
func WriteFileString(path, content string) error {
	_, err := WriteFile(path, strings.NewReader(content))
	return err
}
