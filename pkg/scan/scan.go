// Package scan lists the files of a source tree that match an extension and a name filter.
package scan

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultMaxDepth is the number of directory levels Scan descends below the
// root when no depth is configured.
const DefaultMaxDepth = 15

// Options controls which files Scan returns.
type Options struct {
	// MaxDepth is the number of subdirectory levels to descend into.
	// Zero lists only the root, a negative value removes the limit.
	MaxDepth int

	// ExtPattern is matched against the file extension (including the dot).
	// An empty pattern matches everything.
	ExtPattern string

	// NamePattern is matched against the base name of the file.
	// An empty pattern matches everything.
	NamePattern string

	// Logger receives one debug line per scanned directory. May be nil.
	Logger *slog.Logger
}

// DefaultOptions returns Options that match every file down to DefaultMaxDepth.
func DefaultOptions() Options {
	return Options{
		MaxDepth:    DefaultMaxDepth,
		ExtPattern:  ".*",
		NamePattern: ".*",
	}
}

type scanner struct {
	ext    *regexp.Regexp
	name   *regexp.Regexp
	logger *slog.Logger
}

// Scan recursively lists the regular files under root whose extension matches
// opts.ExtPattern and whose name matches opts.NamePattern. Both patterns are
// anchored at the start of the string. The returned paths are absolute and
// ordered the way the directories are enumerated (by name).
func Scan(root string, opts Options) ([]string, error) {
	ext, err := compilePrefix(opts.ExtPattern)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid extension pattern %q", opts.ExtPattern)
	}
	name, err := compilePrefix(opts.NamePattern)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid name pattern %q", opts.NamePattern)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve %s", root)
	}

	s := &scanner{ext: ext, name: name, logger: opts.Logger}
	result := []string{}
	if err = s.scanDir(absRoot, opts.MaxDepth, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *scanner) scanDir(dir string, depth int, result *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "failed to read directory %s", dir)
	}
	if s.logger != nil {
		s.logger.Debug("Scanning directory", "path", dir, "entries", len(entries))
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())

		// os.Stat follows symlinks so linked files and directories count as their target kind.
		info, err := os.Stat(fullPath)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("Skipping unreadable entry", "path", fullPath, "error", err)
			}
			continue
		}

		switch {
		case info.Mode().IsRegular():
			if s.ext.MatchString(Ext(entry.Name())) && s.name.MatchString(entry.Name()) {
				*result = append(*result, fullPath)
			}
		case info.IsDir() && depth != 0:
			if err = s.scanDir(fullPath, depth-1, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ext returns the extension of name, starting at the last dot. Leading dots
// belong to the name, so ".bashrc" has no extension.
func Ext(name string) string {
	base := filepath.Base(name)
	trimmed := strings.TrimLeft(base, ".")
	idx := strings.LastIndex(trimmed, ".")
	if idx < 0 {
		return ""
	}
	return trimmed[idx:]
}

// StripExt returns name without the extension reported by Ext.
func StripExt(name string) string {
	return strings.TrimSuffix(name, Ext(name))
}

func compilePrefix(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = ".*"
	}
	return regexp.Compile(`^(?:` + pattern + `)`)
}
