package worker

import (
	"context"
	"os"

	"github.com/detailyang/go-fallocate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rulekit/rulekit/pkg/lister"
	"github.com/rulekit/rulekit/pkg/utils/cp"
)

// copyFile writes the full content of job.SourcePath to job.DestinationPath,
// creating the destination or truncating it if it already exists.
//
// rateLimiter and progressTracker can be nil.
func copyFile(
	ctx context.Context,
	logger zerolog.Logger,
	job lister.File,
	buffer []byte,
	rateLimiter *rate.Limiter,
	progressTracker func(int64, int64),
) (written int64, err error) {
	src, err := os.Open(job.SourcePath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open for reading")
	}
	defer src.Close()

	dst, err := os.OpenFile(job.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, job.FileInfo.Mode().Perm())
	if err != nil {
		return 0, errors.Wrap(err, "failed to open for writing")
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close destination")
		}
	}()

	if size := job.FileInfo.Size(); size > 0 {
		if err := fallocate.Fallocate(dst, 0, size); err != nil {
			// Not every filesystem supports it. The copy works without.
			logger.Debug().Err(err).Msg("Failed to preallocate disk space for destination file. Continuing anyway.")
		}
	}

	written, err = cp.Copy(ctx, dst, src,
		cp.WithBuffer(buffer),
		cp.WithRateLimiter(rateLimiter),
		cp.WithProgressTracker(progressTracker),
	)
	if err != nil {
		return written, err
	}

	// The source may have shrunk since it was listed, drop the preallocated tail.
	if written != job.FileInfo.Size() {
		if err := dst.Truncate(written); err != nil {
			return written, errors.Wrap(err, "failed to truncate destination")
		}
	}

	return written, nil
}
