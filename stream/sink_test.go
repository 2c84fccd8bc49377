package stream_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/kwilsonmg/fetch/stream"
)

func TestSink_AppendAndFinalize(t *testing.T) {
	fs := afero.NewMemMapFs()

	sink, err := stream.NewSink(fs, "", ".bin")
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}

	chunks := []string{"hello", " ", "world"}
	var total int64
	for _, c := range chunks {
		if err := sink.Append([]byte(c)); err != nil {
			t.Fatalf("Append(%q): %v", c, err)
		}
		total += int64(len(c))

		if got := sink.BytesWritten(); got != total {
			t.Errorf("BytesWritten() = %d after %q, want %d", got, c, total)
		}
	}

	f, err := sink.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("reading finalized content: %v", err)
	}

	if string(content) != "hello world" {
		t.Errorf("finalized content = %q, want %q", content, "hello world")
	}
}

func TestSink_DiscardRemovesFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	sink, err := stream.NewSink(fs, "", "")
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}

	if err := sink.Append([]byte("partial")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	name := sink.Name()
	sink.Discard()

	exists, err := afero.Exists(fs, name)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Errorf("backing file %q still exists after Discard", name)
	}
}

func TestSink_DiscardIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()

	sink, err := stream.NewSink(fs, "", "")
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}

	sink.Discard()
	sink.Discard() // must not panic or error

	if err := sink.Append([]byte("x")); err != stream.ErrSinkDiscarded {
		t.Errorf("Append after Discard = %v, want ErrSinkDiscarded", err)
	}
	if _, err := sink.Finalize(); err != stream.ErrSinkDiscarded {
		t.Errorf("Finalize after Discard = %v, want ErrSinkDiscarded", err)
	}
}

func TestSink_PlacedInRequestedDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/data/out", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	sink, err := stream.NewSink(fs, "/data/out", ".bin")
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Discard()

	if dir := filepath.Dir(sink.Name()); dir != "/data/out" {
		t.Errorf("backing file in %q, want %q", dir, "/data/out")
	}
}

func TestSink_ExtensionHint(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		hint       string
		wantSuffix string
	}{
		{".csv", ".csv"},
		{".tar.gz", ".tar.gz"},
		{"", ""},
		{"noleadingdot", ""},
		{".has/slash", ""},
		{".waytoolongextension", ""},
	}

	for _, tt := range tests {
		sink, err := stream.NewSink(fs, "", tt.hint)
		if err != nil {
			t.Fatalf("NewSink(%q): %v", tt.hint, err)
		}

		name := sink.Name()
		if tt.wantSuffix != "" {
			if got := name[len(name)-len(tt.wantSuffix):]; got != tt.wantSuffix {
				t.Errorf("NewSink(%q) name = %q, want suffix %q", tt.hint, name, tt.wantSuffix)
			}
		}
		sink.Discard()
	}
}
