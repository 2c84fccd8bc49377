package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrGroupShutdown indicates a download was enqueued after its group
// was shut down.
var ErrGroupShutdown = errors.New("download group shut down")

// Group runs a batch of concurrent async downloads under a shared
// concurrency limit, collecting their errors.
type Group struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
}

// NewGroup creates a Group with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewGroup(maxConcurrent int) *Group {
	g := &Group{}
	if maxConcurrent > 0 {
		g.sem = make(chan struct{}, maxConcurrent)
	}

	return g
}

// Wait blocks until all downloads in the group complete.
// Returns all errors joined via errors.Join.
func (g *Group) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	return errors.Join(g.errs...)
}

// Shutdown prevents downloads not yet started from executing in this group.
func (g *Group) Shutdown() {
	g.shutdown.Store(true)
}

func (g *Group) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.errs = append(g.errs, err)
}

// Result represents an in-flight or completed async download.
type Result struct {
	done   chan struct{}
	file   *File
	err    error
	cancel context.CancelFunc
	group  *Group
}

// Done returns a channel that is closed when this download completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until this download completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// File blocks until this download completes and returns its result.
func (r *Result) File() (*File, error) {
	<-r.done
	return r.file, r.err
}

// Wait blocks until all downloads in the group complete.
// Returns all errors joined.
func (r *Result) Wait() error {
	return r.group.Wait()
}

// Cancel cancels this download's context.
func (r *Result) Cancel() {
	r.cancel()
}

// DownloadAsync starts a download in a new goroutine and returns a
// [Result] for tracking it. Use [WithGroup] to run several downloads
// under a shared concurrency limit; without it each call gets its own
// unlimited group.
func (c *Client) DownloadAsync(ctx context.Context, rawURL string, optFns ...DownloadOption) (*Result, error) {
	var settings downloadOpts
	for _, opt := range optFns {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying download option: %w", err)
		}
	}

	g := settings.group
	if g == nil {
		g = NewGroup(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
		group:  g,
	}

	g.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(r.done)
			g.wg.Done()
		}()

		if g.sem != nil {
			select {
			case g.sem <- struct{}{}:
				defer func() {
					<-g.sem
				}()
			case <-ctx.Done():
				r.err = ctx.Err()
				g.record(r.err)
				return
			}
		}

		if g.shutdown.Load() {
			r.err = ErrGroupShutdown
			g.record(r.err)
			return
		}

		r.file, r.err = c.download(ctx, rawURL, &settings)
		if r.err != nil {
			g.record(r.err)
		}
	}()

	return r, nil
}
