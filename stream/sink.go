package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrTooLarge indicates the transfer exceeded the configured size limit.
	ErrTooLarge = errors.New("download exceeds maximum size")

	// ErrSinkDiscarded indicates an append or finalize on a discarded sink.
	ErrSinkDiscarded = errors.New("sink already discarded")
)

// Sink is an append-only byte store with a running size counter,
// backed by a temp file on the given filesystem. It is created when a
// transfer starts, discarded on any failure, and finalized into a
// readable handle on success. A Sink is not safe for concurrent use;
// each download owns its sink exclusively.
type Sink struct {
	fs        afero.Fs
	file      afero.File
	written   int64
	discarded bool
}

// NewSink allocates a temp file for an incoming transfer. dir selects
// where the file lives ("" means the default temp dir); content that
// will later be renamed into place must start on the same filesystem
// as its final home, so callers with a known destination pass its
// directory. extHint, when non-empty, becomes the file's extension so
// tooling that inspects the directory sees a meaningful suffix.
func NewSink(fs afero.Fs, dir, extHint string) (*Sink, error) {
	pattern := "fetch-*"
	if hint := cleanExt(extHint); hint != "" {
		pattern += hint
	}

	f, err := afero.TempFile(fs, dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	return &Sink{fs: fs, file: f}, nil
}

// Append writes p to the end of the store. Safe to call with
// arbitrarily small chunks.
func (s *Sink) Append(p []byte) error {
	if s.discarded {
		return ErrSinkDiscarded
	}

	n, err := s.file.Write(p)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("appending to sink: %w", err)
	}

	return nil
}

// BytesWritten reports the total bytes appended so far.
func (s *Sink) BytesWritten() int64 {
	return s.written
}

// Finalize flushes buffered writes and returns a readable handle
// positioned at the start of the content. After Finalize the caller
// owns the handle; Discard remains safe to call and removes the
// backing file.
func (s *Sink) Finalize() (afero.File, error) {
	if s.discarded {
		return nil, ErrSinkDiscarded
	}

	if err := s.file.Sync(); err != nil {
		return nil, fmt.Errorf("syncing sink: %w", err)
	}

	if _, err := s.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewinding sink: %w", err)
	}

	return s.file, nil
}

// Name returns the path of the backing file.
func (s *Sink) Name() string {
	return s.file.Name()
}

// Discard releases the backing storage. It is idempotent; calling it
// on an already-discarded sink is a no-op. Errors closing or removing
// the file are swallowed: by the time Discard runs, the transfer has
// already failed and the original error is the one that matters.
func (s *Sink) Discard() {
	if s.discarded {
		return
	}
	s.discarded = true

	name := s.file.Name()
	_ = s.file.Close()
	_ = s.fs.Remove(name)
}

// cleanExt restricts an extension hint to a short, dot-prefixed suffix
// of safe characters. Anything else is dropped rather than rejected.
func cleanExt(ext string) string {
	if ext == "" || !strings.HasPrefix(ext, ".") || len(ext) > 16 {
		return ""
	}

	for _, r := range ext[1:] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
		default:
			return ""
		}
	}

	return ext
}
