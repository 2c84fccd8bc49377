package throttle_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kwilsonmg/fetch/throttle"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		bytesPerSec int
		burst       int
		wantErr     bool
	}{
		{name: "valid", bytesPerSec: 1024, burst: 512},
		{name: "zero rate", bytesPerSec: 0, burst: 512, wantErr: true},
		{name: "zero burst", bytesPerSec: 1024, burst: 0, wantErr: true},
		{name: "negative rate", bytesPerSec: -1, burst: 512, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := throttle.New(tt.bytesPerSec, tt.burst)
			if tt.wantErr {
				if !errors.Is(err, throttle.ErrMustNotBeZero) {
					t.Errorf("New(%d, %d) = %v, want ErrMustNotBeZero", tt.bytesPerSec, tt.burst, err)
				}
				return
			}
			if err != nil {
				t.Errorf("New(%d, %d) = %v, want nil", tt.bytesPerSec, tt.burst, err)
			}
		})
	}
}

func TestNewReader_NilLimiterPassthrough(t *testing.T) {
	src := strings.NewReader("data")

	if got := throttle.NewReader(context.Background(), src, nil); got != src {
		t.Error("NewReader with nil limiter should return the reader unchanged")
	}
}

func TestReader_DeliversAllBytes(t *testing.T) {
	// Rate high enough that the test never actually blocks.
	lim, err := throttle.New(1<<30, 1<<20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := strings.Repeat("abc123", 1000)
	r := throttle.NewReader(context.Background(), strings.NewReader(payload), lim)

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != payload {
		t.Errorf("read %d bytes, want %d, content mismatch", len(got), len(payload))
	}
}

func TestReader_ClampsToBurst(t *testing.T) {
	lim, err := throttle.New(1<<30, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := throttle.NewReader(context.Background(), strings.NewReader("0123456789abcdef"), lim)

	// A read buffer larger than the burst must still succeed; the
	// reader clamps it rather than tripping WaitN.
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n > 8 {
		t.Errorf("Read returned %d bytes, want at most burst (8)", n)
	}
}

func TestReader_ContextCancelled(t *testing.T) {
	// Tiny rate so the second read must wait, then expires the context.
	lim, err := throttle.New(1, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := throttle.NewReader(ctx, strings.NewReader(strings.Repeat("x", 1024)), lim)

	_, err = io.ReadAll(r)
	if !errors.Is(err, throttle.ErrWaitingFailed) {
		t.Errorf("ReadAll with expired context = %v, want ErrWaitingFailed", err)
	}
}
