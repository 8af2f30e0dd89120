package validation

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrSourceNotFound      = errors.New("source folder not found")
	ErrSourceNotDirectory  = errors.New("source is not a directory")
	ErrDestinationConflict = errors.New("destination path is occupied by an entry of a different type")
	ErrUnsupportedFileType = errors.New("only directories, regular files, and symlinks to regular files are supported")
)

// ValidateSource checks that a bundled source folder exists and is a directory.
// Symlinks to directories are accepted.
func ValidateSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrSourceNotFound, "%s", path)
		}
		return errors.Wrapf(err, "failed to stat source %s", path)
	}

	if !info.IsDir() {
		return errors.Wrapf(ErrSourceNotDirectory, "%s", path)
	}

	return nil
}

// ValidateDestination walks from root down to dest and fails on the first
// existing segment that is not a directory. Segments that do not exist yet
// are fine, they will be created. dest must be root or below it.
//
// Example:
//
//	root: /work
//	dest: /work/.cursor/rules
//	checks: /work, /work/.cursor, /work/.cursor/rules
func ValidateDestination(root, dest string) error {
	rel, err := filepath.Rel(root, dest)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s relative to %s", dest, root)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("destination %s is outside of %s", dest, root)
	}

	current := root
	segments := []string{""}
	if rel != "." {
		segments = append(segments, strings.Split(rel, string(filepath.Separator))...)
	}

	for _, segment := range segments {
		current = filepath.Join(current, segment)

		info, err := os.Stat(current)
		if err != nil {
			if os.IsNotExist(err) {
				// Nothing below a missing segment can exist either.
				return nil
			}
			return errors.Wrapf(err, "failed to stat destination %s", current)
		}

		if !info.IsDir() {
			return errors.Wrapf(ErrDestinationConflict, "%s exists but is not a directory", current)
		}
	}

	return nil
}

// IsUnsupportedType reports whether info describes something other than a
// directory, a regular file or a symlink.
func IsUnsupportedType(info os.FileInfo) bool {
	mode := info.Mode()
	return !(mode.IsDir() || mode.IsRegular() || mode&os.ModeSymlink != 0)
}
