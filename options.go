package fetch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/kwilsonmg/fetch/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

type options struct {
	client       *http.Client
	rt           http.RoundTripper
	timeout      *time.Duration
	userAgent    string
	maxRedirects *int
	basicAuth    *credentials
	throttle     *throttleConfig
	fs           afero.Fs
	logger       *slog.Logger
	tracer       trace.Tracer
}

type credentials struct {
	user, pass string
}

type throttleConfig struct {
	bytesPerSec, burst int
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying
// [http.Client]. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithMaxRedirects sets the client-wide redirect budget. The default
// is 2. A per-call [WithRedirects] overrides it outright.
func WithMaxRedirects(n int) Option {
	return func(c *options) error {
		if n < 0 {
			return errors.New("redirect budget must not be negative")
		}
		c.maxRedirects = &n
		return nil
	}
}

// WithBasicAuth sets default credentials applied to every request.
// Credentials embedded in a download URL take precedence for that call.
func WithBasicAuth(user, pass string) Option {
	return func(c *options) error {
		if user == "" {
			return errors.New("basic auth user must not be empty")
		}
		c.basicAuth = &credentials{user: user, pass: pass}
		return nil
	}
}

// WithThrottle caps body streaming at bytesPerSec with the given burst
// capacity, shared across all of the client's downloads.
func WithThrottle(bytesPerSec, burst int) Option {
	return func(c *options) error {
		if bytesPerSec <= 0 || burst <= 0 {
			return fmt.Errorf("bytesPerSec[%d] and burst[%d] %w", bytesPerSec, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttleConfig{bytesPerSec: bytesPerSec, burst: burst}
		return nil
	}
}

// WithFs replaces the filesystem backing temp sinks and destinations.
// Primarily useful for tests via [afero.NewMemMapFs].
func WithFs(fs afero.Fs) Option {
	return func(c *options) error {
		if fs == nil {
			return errors.New("fs must not be nil")
		}
		c.fs = fs
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTracer records a span per download on the given tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// DownloadOption is a functional option for a single [Client.Download]
// or [Client.DownloadAsync] call.
type DownloadOption func(*downloadOpts) error

type downloadOpts struct {
	method        string
	maxSize       *int64
	progress      func(int64)
	contentLength func(int64)
	destination   string
	redirects     *int
	header        http.Header
	throttle      *throttleConfig
	group         *Group
}

// WithMethod overrides the default GET method. The method is
// normalized to its canonical upper-case form.
func WithMethod(method string) DownloadOption {
	return func(opts *downloadOpts) error {
		method = strings.ToUpper(strings.TrimSpace(method))
		if method == "" {
			return errors.New("method must not be empty")
		}
		opts.method = method
		return nil
	}
}

// WithMaxSize fails the download with [ErrTooLarge] once the body
// exceeds n bytes. Enforcement happens per chunk during streaming, so
// temp storage never grows past n by more than one chunk.
func WithMaxSize(n int64) DownloadOption {
	return func(opts *downloadOpts) error {
		if n <= 0 {
			return errors.New("max size must be positive")
		}
		opts.maxSize = &n
		return nil
	}
}

// WithProgress invokes fn after every received chunk with the
// cumulative byte count.
func WithProgress(fn func(bytesSoFar int64)) DownloadOption {
	return func(opts *downloadOpts) error {
		if fn == nil {
			return errors.New("progress callback must not be nil")
		}
		opts.progress = fn
		return nil
	}
}

// WithContentLength invokes fn exactly once at stream start with the
// declared Content-Length, if the header is present and parseable.
func WithContentLength(fn func(declared int64)) DownloadOption {
	return func(opts *downloadOpts) error {
		if fn == nil {
			return errors.New("content-length callback must not be nil")
		}
		opts.contentLength = fn
		return nil
	}
}

// WithDestination moves the finished content to path instead of
// leaving it in a free-floating temp file.
func WithDestination(path string) DownloadOption {
	return func(opts *downloadOpts) error {
		if path == "" {
			return errors.New("destination must not be empty")
		}
		opts.destination = path
		return nil
	}
}

// WithRedirects overrides the client's redirect budget for this call.
func WithRedirects(n int) DownloadOption {
	return func(opts *downloadOpts) error {
		if n < 0 {
			return errors.New("redirect budget must not be negative")
		}
		opts.redirects = &n
		return nil
	}
}

// WithHeader adds a request header for this call.
func WithHeader(key, value string) DownloadOption {
	return func(opts *downloadOpts) error {
		if key == "" {
			return errors.New("header key must not be empty")
		}
		if opts.header == nil {
			opts.header = http.Header{}
		}
		opts.header.Add(key, value)
		return nil
	}
}

// WithBandwidth caps this call's body streaming rate, overriding any
// client-wide throttle.
func WithBandwidth(bytesPerSec, burst int) DownloadOption {
	return func(opts *downloadOpts) error {
		if bytesPerSec <= 0 || burst <= 0 {
			return fmt.Errorf("bytesPerSec[%d] and burst[%d] %w", bytesPerSec, burst, throttle.ErrMustNotBeZero)
		}
		opts.throttle = &throttleConfig{bytesPerSec: bytesPerSec, burst: burst}
		return nil
	}
}

// WithGroup runs an async download inside g, sharing its concurrency
// limit and error collection. Only meaningful with
// [Client.DownloadAsync].
func WithGroup(g *Group) DownloadOption {
	return func(opts *downloadOpts) error {
		if g == nil {
			return errors.New("group must not be nil")
		}
		opts.group = g
		return nil
	}
}
