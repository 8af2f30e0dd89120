package lister

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rulekit/rulekit/pkg/utils/size"
	"github.com/rulekit/rulekit/pkg/validation"
)

// Lister walks a source directory and sends every file it finds to the
// provided channel, so the workers can pick them up and copy them.
//
// Directories are created in the destination as soon as they are found and
// before any of their children is sent, so a worker never writes into a
// directory that does not exist yet. Existing directories are reused.
type Lister struct {
	conf   Config
	logger zerolog.Logger

	dirsCreated int
}

func New(config Config, logger zerolog.Logger) *Lister {
	return &Lister{
		conf:   config,
		logger: logger.With().Str("component", "lister").Logger(),
	}
}

// DirsCreated returns how many destination directories did not exist and were
// created. Only meaningful after Start returns.
func (l *Lister) DirsCreated() int {
	return l.dirsCreated
}

func (l *Lister) Start(ctx context.Context, listedFiles chan<- File) error {
	if err := l.conf.Validate(); err != nil {
		return err
	}

	// WalkDir does not descend into a root that is a symlink.
	source, err := filepath.EvalSymlinks(l.conf.SourcePath)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve source %s", l.conf.SourcePath)
	}

	if !l.conf.DoNotCreateDirs {
		if err := l.createRoot(l.conf.DestinationPath); err != nil {
			return err
		}
	}

	return l.walkDir(ctx, listedFiles, source)
}

// Existing destinations are checked with Stat so a symlink to a directory
// counts as a directory.
func (l *Lister) createRoot(dest string) error {
	info, err := os.Stat(dest)
	if err == nil && !info.IsDir() {
		return errors.Wrapf(validation.ErrDestinationConflict, "%s exists but is not a directory", dest)
	}
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat destination %s", dest)
	}

	if os.IsNotExist(err) {
		l.dirsCreated++
	}

	l.logger.Debug().Str("path", dest).Msg("Creating destination root")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dest)
	}

	return nil
}

func (l *Lister) walkDir(ctx context.Context, listedFiles chan<- File, sourceDirPath string) error {
	return filepath.WalkDir(sourceDirPath, func(srcPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to access %s", srcPath)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		// Example:
		//   sourceDirPath: /opt/rulekit/.tasks
		//   srcPath:       /opt/rulekit/.tasks/1-now/todo.md
		//   relPath:       1-now/todo.md
		//   dstPath:       /work/.tasks/1-now/todo.md
		relPath, err := filepath.Rel(sourceDirPath, srcPath)
		if err != nil {
			return errors.Wrap(err, "failed to get relative path")
		}
		dstPath := filepath.Join(l.conf.DestinationPath, relPath)

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "failed to get source file info for %s", srcPath)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			// Copy what the link points to.
			info, err = os.Stat(srcPath)
			if err != nil {
				return errors.Wrapf(err, "failed to stat symlink target for %s", srcPath)
			}
			if info.IsDir() {
				return errors.Wrapf(validation.ErrUnsupportedFileType, "%s is a symlink to a directory", srcPath)
			}
		}

		if validation.IsUnsupportedType(info) {
			l.logger.Warn().Str("path", srcPath).Str("type", info.Mode().String()).Msg("Ignoring unsupported file type")
			return nil
		}

		if info.IsDir() {
			if relPath == "." || l.conf.DoNotCreateDirs {
				return nil
			}
			return l.createDir(dstPath, info)
		}

		return l.sendFileJob(ctx, listedFiles, srcPath, dstPath, info)
	})
}

func (l *Lister) createDir(dest string, info os.FileInfo) error {
	existing, err := os.Stat(dest)
	switch {
	case err == nil && existing.IsDir():
		l.logger.Trace().Str("path", dest).Msg("Directory already exists")
		return nil
	case err == nil:
		return errors.Wrapf(validation.ErrDestinationConflict, "%s exists but is not a directory", dest)
	case !os.IsNotExist(err):
		return errors.Wrapf(err, "failed to stat destination %s", dest)
	}

	l.logger.Debug().Str("path", dest).Msg("Creating directory")

	// Keep the owner writable, files still have to be copied into it.
	if err := os.Mkdir(dest, info.Mode().Perm()|0o700); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dest)
	}
	l.dirsCreated++

	return nil
}

func (l *Lister) sendFileJob(
	ctx context.Context,
	listedFiles chan<- File,
	source, dest string,
	info os.FileInfo,
) error {
	if !l.conf.DoNotCreateDirs {
		if existing, err := os.Stat(dest); err == nil && existing.IsDir() {
			return errors.Wrapf(validation.ErrDestinationConflict, "%s is a directory, cannot overwrite it with a file", dest)
		}
	}

	job := File{
		SourcePath:      source,
		DestinationPath: dest,
		FileInfo:        info,
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case listedFiles <- job:
		l.logger.Trace().Str("source", source).Str("destination", dest).
			Int64("size", info.Size()).Str("sizeHuman", size.FormatBytes(info.Size())).
			Msg("Discovered regular file")
		return nil
	}
}
