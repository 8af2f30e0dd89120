package cp

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultBufferSize is used when no buffer is given with WithBuffer.
var DefaultBufferSize = 64 * 1024

type options struct {
	limiter  *rate.Limiter
	progress func(n, total int64)
	buffer   []byte
}

type Option func(*options)

// WithRateLimiter throttles the copy to the limiter's rate, in bytes. A nil
// limiter disables throttling.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithProgressTracker registers a callback invoked after every write with the
// bytes written by that write and the running total. It runs on the copying
// goroutine and must not block.
func WithProgressTracker(tracker func(n, total int64)) Option {
	return func(o *options) {
		o.progress = tracker
	}
}

// WithBuffer sets the block size used for each read and write.
func WithBuffer(buffer []byte) Option {
	return func(o *options) {
		o.buffer = buffer
	}
}

// Copy is io.Copy with cancellation, rate limiting and progress reporting.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, opts ...Option) (int64, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.buffer) == 0 {
		o.buffer = make([]byte, DefaultBufferSize)
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := src.Read(o.buffer)
		if n > 0 {
			if o.limiter != nil {
				if err := waitN(ctx, o.limiter, n); err != nil {
					return total, errors.Wrap(err, "rate limiter wait failed")
				}
			}

			written, writeErr := dst.Write(o.buffer[:n])
			if written < 0 || written > n {
				written = 0
				if writeErr == nil {
					writeErr = errors.New("invalid write result")
				}
			}
			total += int64(written)
			if o.progress != nil {
				o.progress(int64(written), total)
			}
			if writeErr != nil {
				return total, errors.Wrap(writeErr, "failed to write buffer")
			}
			if written != n {
				return total, io.ErrShortWrite
			}
		}

		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, errors.Wrap(readErr, "failed to read buffer")
		}
	}
}

// waitN splits n into burst-sized requests, since WaitN rejects anything
// larger than the limiter's burst.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()
	if burst <= 0 {
		return limiter.WaitN(ctx, n)
	}
	for n > 0 {
		step := min(n, burst)
		if err := limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
