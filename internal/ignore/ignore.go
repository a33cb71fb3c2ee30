// Package ignore decides which destination paths are in scope for the sync,
// based on layered .iliasignore files with gitignore pattern syntax.
package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
)

// FileName is looked up in the sync target and every ancestor directory.
const FileName = ".iliasignore"

// level holds the patterns of one directory's ignore file together with the
// path segments between that directory and the sync target.
type level struct {
	patterns []gitignore.Pattern
	prefix   []string
}

// RuleSet is an ordered sequence of pattern levels, most specific first.
// It is read-only after Load and safe to share across crawl units.
type RuleSet struct {
	levels []level
}

// Load walks from dir upward, collecting an ignore file per directory until
// the filesystem root. An unreadable file is reported as a warning and
// contributes no patterns.
//
// Example: syncing into /courses/SS23/NGI, an ignore file in /courses is
// recorded with prefix "SS23/NGI/" while the one in NGI itself has none.
func Load(dir string, logger *zap.Logger) *RuleSet {
	path := filepath.Clean(dir)
	var (
		levels []level
		prefix []string
	)
	for {
		patterns, err := readPatterns(filepath.Join(path, FileName))
		if err != nil {
			logger.Warn("skipping unreadable ignore file",
				zap.String("dir", path), zap.Error(err))
		}
		if len(patterns) > 0 {
			levels = append(levels, level{
				patterns: patterns,
				prefix:   append([]string(nil), prefix...),
			})
		}
		base := filepath.Base(path)
		parent := filepath.Dir(path)
		if parent == path || base == "." || base == ".." || base == string(filepath.Separator) {
			break
		}
		prefix = append([]string{base}, prefix...)
		path = parent
	}
	return &RuleSet{levels: levels}
}

func readPatterns(file string) ([]gitignore.Pattern, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// Match reports whether rel, a path relative to the sync target, should be
// skipped. Levels are consulted most specific first and each level's
// explicit verdict, ignore or re-include, short-circuits the rest. Within a
// level, later patterns override earlier ones. The sync target itself is
// never matched.
func (r *RuleSet) Match(rel string, isDir bool) bool {
	if r == nil || rel == "" || rel == "." {
		return false
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, lv := range r.levels {
		full := make([]string, 0, len(lv.prefix)+len(segments))
		full = append(full, lv.prefix...)
		full = append(full, segments...)
		for i := len(lv.patterns) - 1; i >= 0; i-- {
			switch lv.patterns[i].Match(full, isDir) {
			case gitignore.Exclude:
				return true
			case gitignore.Include:
				return false
			}
		}
	}
	return false
}
