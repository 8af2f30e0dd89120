// Package copier materializes a source directory tree at a destination.
//
// The copy is additive: missing directories are created, files with the same
// name are overwritten, and anything already in the destination that is not
// in the source is left alone. It is not transactional, a failure leaves
// whatever was already written in place.
package copier

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rulekit/rulekit/pkg/lister"
	"github.com/rulekit/rulekit/pkg/utils/size"
	"github.com/rulekit/rulekit/pkg/worker"
)

// Result summarizes a finished copy.
type Result struct {
	FilesCopied int64
	BytesCopied int64
	DirsCreated int
}

type Copier struct {
	conf   Config
	logger zerolog.Logger
}

func New(conf Config, logger zerolog.Logger) *Copier {
	return &Copier{
		conf:   conf,
		logger: logger.With().Str("component", "copier").Logger(),
	}
}

// CopyDir copies everything under src into dst.
func (c *Copier) CopyDir(ctx context.Context, src, dst string) (Result, error) {
	result, err := c.copyDir(ctx, src, dst)
	if err != nil {
		return result, errors.Wrapf(err, "failed to copy directory %s to %s", src, dst)
	}
	return result, nil
}

func (c *Copier) copyDir(ctx context.Context, src, dst string) (Result, error) {
	if err := c.conf.Validate(); err != nil {
		return Result{}, err
	}

	listerConfig := lister.Config{
		SourcePath:      src,
		DestinationPath: dst,
	}
	if err := listerConfig.Validate(); err != nil {
		return Result{}, err
	}

	workerConfig := worker.Config{
		MaxConcurrentFiles: c.conf.MaxConcurrentFiles,
		BlockSize:          c.conf.BlockSize,
	}

	l := lister.New(listerConfig, c.logger)
	w := worker.New(workerConfig, c.logger)

	eg, ctx := errgroup.WithContext(ctx)

	files := make(chan lister.File, 4096)
	eg.Go(func() error {
		defer close(files)
		return l.Start(ctx, files)
	})

	eg.Go(func() error {
		return w.Start(ctx, files, nil)
	})

	err := eg.Wait()

	stats := w.Stats()
	result := Result{
		FilesCopied: stats.FilesCopied,
		BytesCopied: stats.BytesCopied,
		DirsCreated: l.DirsCreated(),
	}
	if err != nil {
		return result, err
	}

	c.logger.Debug().
		Str("source", src).
		Str("destination", dst).
		Int64("files", result.FilesCopied).
		Str("sizeHuman", size.FormatBytes(result.BytesCopied)).
		Int("dirsCreated", result.DirsCreated).
		Msg("Copied directory")

	return result, nil
}
