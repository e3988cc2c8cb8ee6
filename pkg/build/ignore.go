package build

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rotisserie/eris"
)

// ignoreRules matches source paths against a gitignore-style file.
// A nil matcher ignores nothing.
type ignoreRules struct {
	matcher gitignore.Matcher
}

// loadIgnoreRules reads the ignore file at path. A missing file yields rules
// that never match.
func loadIgnoreRules(path string) (*ignoreRules, error) {
	if path == "" {
		return &ignoreRules{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ignoreRules{}, nil
		}
		return nil, eris.Wrapf(err, "failed to open ignore file %s", path)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err = scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "failed to read ignore file %s", path)
	}
	if len(patterns) == 0 {
		return &ignoreRules{}, nil
	}
	return &ignoreRules{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Match reports whether the file at rel (relative to the source root) is ignored.
func (r *ignoreRules) Match(rel string) bool {
	if r.matcher == nil {
		return false
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	// A file is also ignored when one of its parent directories is.
	for i := 1; i < len(segments); i++ {
		if r.matcher.Match(segments[:i], true) {
			return true
		}
	}
	return r.matcher.Match(segments, false)
}
