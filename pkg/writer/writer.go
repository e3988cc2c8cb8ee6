// Package writer writes build outputs without clobbering paths of a different kind.
//
// Every write first resolves its destination with Resolve. When the destination
// is free, missing parent directories are created. When it is taken, the path is
// renamed with an incrementing numeric suffix ("page_1.html", "assets_2") until
// a usable path is found. In overwrite mode the first candidate of the same kind
// (file or directory) is reused; otherwise only a wholly new path is accepted.
package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rotisserie/eris"

	"github.com/CTAG07/Nepenthes/pkg/scan"
)

// MaxRenameAttempts bounds the suffix search so that a directory full of
// collisions fails instead of spinning.
const MaxRenameAttempts = 100_000

// ErrTooManyCollisions is returned when no usable name is found within MaxRenameAttempts.
var ErrTooManyCollisions = errors.New("too many name collisions")

const (
	dirPerm  = 0755
	filePerm = 0644
)

// NewName returns the index-th alternative of path. Files get the suffix before
// their extension, directories at the end of their name.
func NewName(path string, index int, isDir bool) string {
	if isDir {
		return fmt.Sprintf("%s_%d", path, index)
	}
	ext := scan.Ext(path)
	return fmt.Sprintf("%s_%d%s", scan.StripExt(path), index, ext)
}

// Resolve returns the path that a file (or directory, when isDir is set) meant
// for path should actually be written to.
//
// A path that does not exist is returned unchanged after its parent directories
// (or the directory itself, for isDir) have been created. An existing path is
// replaced by the first suffixed alternative that fits: in overwrite mode one of
// the same kind, otherwise one that does not exist at all.
func Resolve(path string, isDir, overwrite bool) (string, error) {
	exists, sameKind, err := probe(path, isDir)
	if err != nil {
		return "", err
	}
	if !exists {
		return path, prepare(path, isDir)
	}

	actual := path
	for rename := 1; ; rename++ {
		if overwrite && sameKind {
			return actual, nil
		}
		if rename > MaxRenameAttempts {
			return "", eris.Wrapf(ErrTooManyCollisions, "no free name for %s", path)
		}

		actual = NewName(path, rename, isDir)
		exists, sameKind, err = probe(actual, isDir)
		if err != nil {
			return "", err
		}
		if !exists {
			return actual, prepare(actual, isDir)
		}
	}
}

// WriteFile resolves path and atomically writes content to the resolved
// location, returning the path that was written.
func WriteFile(path string, content []byte, overwrite bool) (string, error) {
	actual, err := Resolve(path, false, overwrite)
	if err != nil {
		return "", err
	}
	if err = writeAtomic(actual, bytes.NewReader(content), filePerm); err != nil {
		return "", eris.Wrapf(err, "failed to write %s", actual)
	}
	return actual, nil
}

// WriteString is WriteFile for text content. The text is written as UTF-8.
func WriteString(path, content string, overwrite bool) (string, error) {
	actual, err := Resolve(path, false, overwrite)
	if err != nil {
		return "", err
	}
	if err = writeAtomic(actual, strings.NewReader(content), filePerm); err != nil {
		return "", eris.Wrapf(err, "failed to write %s", actual)
	}
	return actual, nil
}

// CopyFile copies src byte-for-byte to the location Resolve picks for dst.
// The copy gets the permission bits of src.
func CopyFile(src, dst string, overwrite bool) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", eris.Wrapf(err, "failed to open %s", src)
	}
	defer func(in *os.File) {
		_ = in.Close()
	}(in)
	info, err := in.Stat()
	if err != nil {
		return "", eris.Wrapf(err, "failed to stat %s", src)
	}

	actual, err := Resolve(dst, false, overwrite)
	if err != nil {
		return "", err
	}
	if err = writeAtomic(actual, in, info.Mode().Perm()); err != nil {
		return "", eris.Wrapf(err, "failed to copy %s to %s", src, actual)
	}
	return actual, nil
}

// writeAtomic writes r to path through a temp file and sets perm on the result.
// atomic.WriteFile leaves a new file at 0600.
func writeAtomic(path string, r io.Reader, perm fs.FileMode) error {
	if err := atomic.WriteFile(path, r); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}

// probe reports whether path exists and, if so, whether it has the wanted kind.
func probe(path string, isDir bool) (exists, sameKind bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, false, nil
		}
		return false, false, eris.Wrapf(err, "failed to stat %s", path)
	}
	if isDir {
		return true, info.IsDir(), nil
	}
	return true, info.Mode().IsRegular(), nil
}

func prepare(path string, isDir bool) error {
	dir := filepath.Dir(path)
	if isDir {
		dir = path
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return eris.Wrapf(err, "failed to create directory %s", dir)
	}
	return nil
}
