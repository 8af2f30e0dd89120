package hasher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rulekit/rulekit/pkg/lister"
	"github.com/rulekit/rulekit/pkg/utils/cp"
)

var ErrMismatch = errors.New("destination does not match source")

// HashOne computes the SHA-256 hash of a single file.
func HashOne(
	ctx context.Context,
	copyBuffer []byte,
	file string,
	rateLimiter *rate.Limiter,
	progressTracker func(int64, int64),
) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file for hashing")
	}
	defer f.Close()

	hash := sha256.New()

	_, err = cp.Copy(ctx, hash, f,
		cp.WithBuffer(copyBuffer),
		cp.WithRateLimiter(rateLimiter),
		cp.WithProgressTracker(progressTracker),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file for hashing")
	}

	return hash.Sum(nil), nil
}

// Config tunes how many files are compared at once and how much of each file
// is read per call.
type Config struct {
	ConcurrentFiles int
	BlockSize       int
}

func (c Config) Validate() error {
	if c.ConcurrentFiles <= 0 {
		return errors.New("concurrent files must be greater than 0")
	}
	if c.BlockSize <= 0 {
		return errors.New("block size must be greater than 0")
	}
	return nil
}

type Stats struct {
	FilesHashed int64
	BytesHashed int64
	Mismatched  int64
}

// Hasher compares every listed source file with its destination.
type Hasher struct {
	logger zerolog.Logger
	conf   Config

	filesHashed atomic.Int64
	bytesHashed atomic.Int64
	mismatched  atomic.Int64
}

func New(config Config, logger zerolog.Logger) *Hasher {
	return &Hasher{
		conf:   config,
		logger: logger.With().Str("component", "hasher").Logger(),
	}
}

func (h *Hasher) Stats() Stats {
	return Stats{
		FilesHashed: h.filesHashed.Load(),
		BytesHashed: h.bytesHashed.Load(),
		Mismatched:  h.mismatched.Load(),
	}
}

// Start hashes files from the channel until it is closed. Every file is
// checked even after a mismatch; the mismatches are logged and Start returns
// ErrMismatch at the end if there were any.
//
// Both limiters can be nil. transferRateLimiter is shared by source and
// destination reads.
func (h *Hasher) Start(
	ctx context.Context,
	files <-chan lister.File,
	transferRateLimiter *rate.Limiter,
	fileRateLimiter *rate.Limiter,
) error {
	if err := h.conf.Validate(); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)

	for i := 0; i < h.conf.ConcurrentFiles; i++ {
		eg.Go(func() error {
			buffer := make([]byte, h.conf.BlockSize)
			for file := range files {
				if fileRateLimiter != nil {
					if err := fileRateLimiter.Wait(ctx); err != nil {
						return errors.Wrap(err, "failed to wait for file rate limiter")
					}
				}
				if err := h.compare(ctx, file, buffer, transferRateLimiter); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "failed to hash files")
	}

	if n := h.mismatched.Load(); n > 0 {
		return errors.Wrapf(ErrMismatch, "%d file(s) differ, see logs for details", n)
	}

	return nil
}

// compare only returns an error when hashing cannot continue at all, such as
// a cancelled context. A missing or different destination is a mismatch.
func (h *Hasher) compare(ctx context.Context, file lister.File, buffer []byte, limiter *rate.Limiter) error {
	logger := h.logger.With().Str("source", file.SourcePath).Str("destination", file.DestinationPath).Logger()

	srcHash, err := h.hashFile(ctx, file.SourcePath, buffer, limiter)
	if err != nil {
		return errors.Wrapf(err, "failed to hash source %s", file.SourcePath)
	}

	if _, err := os.Stat(file.DestinationPath); os.IsNotExist(err) {
		h.mismatched.Add(1)
		logger.Warn().Msg("Destination file is missing")
		return nil
	}

	dstHash, err := h.hashFile(ctx, file.DestinationPath, buffer, limiter)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.mismatched.Add(1)
		logger.Error().Err(err).Msg("Failed to hash destination file")
		return nil
	}

	logger = logger.With().
		Str("sourceHash", hex.EncodeToString(srcHash)).
		Str("destinationHash", hex.EncodeToString(dstHash)).
		Logger()

	if !bytes.Equal(srcHash, dstHash) {
		h.mismatched.Add(1)
		logger.Warn().Msg("Source and destination hashes do not match")
		return nil
	}

	logger.Debug().Msg("Source and destination hashes match")
	return nil
}

func (h *Hasher) hashFile(ctx context.Context, file string, buffer []byte, limiter *rate.Limiter) ([]byte, error) {
	hash, err := HashOne(ctx, buffer, file, limiter, h.updateBytesHashed)
	if err != nil {
		return nil, err
	}
	h.filesHashed.Add(1)
	h.logger.Trace().Str("file", file).Str("hash", hex.EncodeToString(hash)).Msg("Hashed file")
	return hash, nil
}

func (h *Hasher) updateBytesHashed(n, _ int64) {
	h.bytesHashed.Add(n)
}
