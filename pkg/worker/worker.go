package worker

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rulekit/rulekit/pkg/lister"
	"github.com/rulekit/rulekit/pkg/utils/size"
)

type Stats struct {
	FilesBeingCopied int64
	FilesCopied      int64
	BytesCopied      int64
}

// Worker copies the files it receives with a fixed number of goroutines.
// Every file has its own destination path, so files never race with each
// other. Directories are created by the lister before files reach here.
type Worker struct {
	conf   Config
	logger zerolog.Logger

	filesBeingCopied atomic.Int64
	filesCopied      atomic.Int64
	bytesCopied      atomic.Int64
}

func New(conf Config, logger zerolog.Logger) *Worker {
	return &Worker{
		conf:   conf,
		logger: logger.With().Str("component", "worker").Logger(),
	}
}

func (w *Worker) Stats() Stats {
	return Stats{
		FilesBeingCopied: w.filesBeingCopied.Load(),
		FilesCopied:      w.filesCopied.Load(),
		BytesCopied:      w.bytesCopied.Load(),
	}
}

// Start copies files until incomingFiles is closed or an error occurs. The
// first error cancels the remaining copies and is returned.
//
// rateLimiter can be nil, in which case no rate limiting is applied.
func (w *Worker) Start(
	ctx context.Context,
	incomingFiles <-chan lister.File,
	rateLimiter *rate.Limiter,
) error {
	if err := w.conf.Validate(); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.conf.MaxConcurrentFiles; i++ {
		eg.Go(func() error {
			// Local copy buffer, avoid reallocations.
			buffer := make([]byte, w.conf.BlockSize)

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case file, ok := <-incomingFiles:
					if !ok {
						return nil
					}
					if err := w.copy(ctx, file, buffer, rateLimiter); err != nil {
						return err
					}
				}
			}
		})
	}

	return eg.Wait()
}

func (w *Worker) copy(ctx context.Context, file lister.File, buffer []byte, rateLimiter *rate.Limiter) error {
	w.filesBeingCopied.Add(1)
	defer w.filesBeingCopied.Add(-1)

	logger := w.logger.With().
		Str("source", file.SourcePath).
		Str("destination", file.DestinationPath).
		Logger()

	written, err := copyFile(ctx, logger, file, buffer, rateLimiter, w.updateBytesCopied)
	if err != nil {
		return errors.Wrapf(err, "failed to copy file %s to %s", file.SourcePath, file.DestinationPath)
	}

	w.filesCopied.Add(1)
	logger.Debug().
		Int64("size", written).
		Str("sizeHuman", size.FormatBytes(written)).
		Msg("Copied file")

	return nil
}

func (w *Worker) updateBytesCopied(bytes, _ int64) {
	w.bytesCopied.Add(bytes)
}
