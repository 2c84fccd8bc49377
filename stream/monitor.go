package stream

import (
	"net/http"
	"strconv"
	"strings"
)

// Monitor wraps a Sink as an io.Writer for use with io.Copy, invoking
// callbacks and enforcing the size limit as chunks arrive. The copy
// driving the monitor delivers chunks strictly in order, so callbacks
// are never invoked concurrently for the same transfer.
type Monitor struct {
	sink          *Sink
	maxSize       int64
	progress      func(int64)
	contentLength func(int64)
}

// NoLimit disables size enforcement when passed as a Monitor's maxSize.
const NoLimit int64 = -1

// NewMonitor builds a Monitor writing into sink. maxSize caps the
// cumulative byte count, [NoLimit] disables the cap. progress and
// contentLength may be nil.
func NewMonitor(sink *Sink, maxSize int64, progress, contentLength func(int64)) *Monitor {
	return &Monitor{
		sink:          sink,
		maxSize:       maxSize,
		progress:      progress,
		contentLength: contentLength,
	}
}

// Start inspects the declared Content-Length once, at stream start,
// and invokes the content-length callback if the header is present and
// parses as a non-negative integer. An absent or malformed header is
// skipped silently; it is not an error.
func (m *Monitor) Start(header http.Header) {
	if m.contentLength == nil {
		return
	}

	raw := strings.TrimSpace(header.Get("Content-Length"))
	if raw == "" {
		return
	}

	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || length < 0 {
		return
	}

	m.contentLength(length)
}

// Write handles one chunk: append to the sink, notify progress with
// the cumulative count, then check the limit. The check runs after
// every chunk whether or not a progress callback exists, so the sink
// never exceeds maxSize by more than one chunk.
func (m *Monitor) Write(p []byte) (int, error) {
	if err := m.sink.Append(p); err != nil {
		return 0, err
	}

	if m.progress != nil {
		m.progress(m.sink.BytesWritten())
	}

	if m.maxSize >= 0 && m.sink.BytesWritten() > m.maxSize {
		return len(p), ErrTooLarge
	}

	return len(p), nil
}
