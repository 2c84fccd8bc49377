package stream_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/kwilsonmg/fetch/stream"
)

func newSink(t *testing.T) *stream.Sink {
	t.Helper()

	sink, err := stream.NewSink(afero.NewMemMapFs(), "", "")
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	t.Cleanup(sink.Discard)

	return sink
}

func TestMonitor_ContentLength(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCall bool
		want     int64
	}{
		{name: "valid", header: "1024", wantCall: true, want: 1024},
		{name: "valid with whitespace", header: " 42 ", wantCall: true, want: 42},
		{name: "zero", header: "0", wantCall: true, want: 0},
		{name: "absent", header: "", wantCall: false},
		{name: "non-numeric", header: "banana", wantCall: false},
		{name: "negative", header: "-5", wantCall: false},
		{name: "float", header: "10.5", wantCall: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []int64
			mon := stream.NewMonitor(newSink(t), stream.NoLimit, nil, func(n int64) {
				calls = append(calls, n)
			})

			header := http.Header{}
			if tt.header != "" {
				header.Set("Content-Length", tt.header)
			}
			mon.Start(header)

			if !tt.wantCall {
				if len(calls) != 0 {
					t.Fatalf("content-length callback invoked %d times, want 0", len(calls))
				}
				return
			}

			if len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("content-length calls = %v, want exactly [%d]", calls, tt.want)
			}
		})
	}
}

func TestMonitor_ProgressCumulative(t *testing.T) {
	sink := newSink(t)

	var progress []int64
	mon := stream.NewMonitor(sink, stream.NoLimit, func(n int64) {
		progress = append(progress, n)
	}, nil)

	for _, chunk := range []string{"aaaa", "bb", "cccccc"} {
		if _, err := mon.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write(%q): %v", chunk, err)
		}
	}

	want := []int64{4, 6, 12}
	if diff := cmp.Diff(want, progress); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}

	if got := sink.BytesWritten(); got != progress[len(progress)-1] {
		t.Errorf("final progress %d != BytesWritten %d", progress[len(progress)-1], got)
	}
}

func TestMonitor_TooLarge(t *testing.T) {
	sink := newSink(t)
	mon := stream.NewMonitor(sink, 10, nil, nil)

	// 4-byte chunks against a 10-byte limit: the third chunk tips it over.
	// LimitReader also hides bytes.Reader's WriteTo so CopyBuffer actually
	// uses the 4-byte buffer.
	src := io.LimitReader(bytes.NewReader(bytes.Repeat([]byte("x"), 100)), 100)
	buf := make([]byte, 4)

	_, err := io.CopyBuffer(mon, src, buf)
	if !errors.Is(err, stream.ErrTooLarge) {
		t.Fatalf("copy error = %v, want ErrTooLarge", err)
	}

	// Overshoot is bounded by one chunk.
	if got := sink.BytesWritten(); got > 10+4 {
		t.Errorf("sink holds %d bytes, want at most maxSize+chunk = 14", got)
	}
	if got := sink.BytesWritten(); got <= 10 {
		t.Errorf("sink holds %d bytes, expected the limit to be exceeded before aborting", got)
	}
}

func TestMonitor_LimitCheckedWithoutProgressCallback(t *testing.T) {
	mon := stream.NewMonitor(newSink(t), 3, nil, nil)

	if _, err := mon.Write([]byte("1234")); !errors.Is(err, stream.ErrTooLarge) {
		t.Errorf("Write past limit = %v, want ErrTooLarge even with no progress callback", err)
	}
}

func TestMonitor_ExactLimitSucceeds(t *testing.T) {
	mon := stream.NewMonitor(newSink(t), 4, nil, nil)

	if _, err := mon.Write([]byte("1234")); err != nil {
		t.Errorf("Write of exactly maxSize bytes = %v, want nil", err)
	}
}
