package throttle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
)

// Limiter meters body bytes with a token bucket, one token per byte.
// A single Limiter may be shared by concurrent downloads, in which
// case they share the bandwidth budget.
type Limiter struct {
	limiter *rate.Limiter
	burst   int
}

// New returns a Limiter allowing bytesPerSec sustained throughput with
// the given burst capacity in bytes.
func New(bytesPerSec, burst int) (*Limiter, error) {
	if bytesPerSec <= 0 || burst <= 0 {
		return nil, fmt.Errorf("bytesPerSec[%d] and burst[%d] %w", bytesPerSec, burst, ErrMustNotBeZero)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}, nil
}

// reader paces reads from an underlying body stream against a Limiter.
type reader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

// NewReader wraps r so that reads block until the limiter grants
// tokens for the bytes just read. A nil Limiter returns r unchanged.
func NewReader(ctx context.Context, r io.Reader, l *Limiter) io.Reader {
	if l == nil {
		return r
	}

	return &reader{ctx: ctx, r: r, l: l}
}

func (tr *reader) Read(p []byte) (int, error) {
	// Never request more tokens than the bucket can hold, or WaitN
	// fails outright.
	if len(p) > tr.l.burst {
		p = p[:tr.l.burst]
	}

	n, err := tr.r.Read(p)
	if n > 0 {
		if werr := tr.l.limiter.WaitN(tr.ctx, n); werr != nil {
			return n, fmt.Errorf("%w: %w", ErrWaitingFailed, werr)
		}
	}

	return n, err
}
