package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kwilsonmg/fetch/stream"
	"github.com/kwilsonmg/fetch/throttle"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 2
	defaultUserAgent    = "fetch/1.0"

	// maxDrainBytes caps how much of an unused body is read before
	// closing, keeping the connection reusable without risking an
	// unbounded read of a huge error response.
	maxDrainBytes = 256 << 10
)

// Client wraps the std-lib *http.Client with download semantics:
// redirect budgeting, URL-credential auth, size-limited streaming to
// temp storage, and a stable error taxonomy. Construct via [Build];
// the zero value is not usable. A Client is safe for concurrent use
// and its configuration is never mutated by a call.
type Client struct {
	c            *http.Client
	fs           afero.Fs
	logger       *slog.Logger
	tracer       trace.Tracer
	limiter      *throttle.Limiter
	auth         *credentials
	maxRedirects int
}

// Build creates a Client from functional options.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:            &http.Client{Timeout: defaultTimeout},
		fs:           afero.NewOsFs(),
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer(""),
		maxRedirects: defaultMaxRedirects,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}
	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}
	if opts.maxRedirects != nil {
		client.maxRedirects = *opts.maxRedirects
	}
	if opts.basicAuth != nil {
		client.auth = opts.basicAuth
	}
	if opts.fs != nil {
		client.fs = opts.fs
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}
	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	ua := defaultUserAgent
	if opts.userAgent != "" {
		ua = opts.userAgent
	}
	client.c.Transport = userAgent{value: ua, base: transport}

	if opts.throttle != nil {
		limiter, err := throttle.New(opts.throttle.bytesPerSec, opts.throttle.burst)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		client.limiter = limiter
	}

	return client, nil
}

// Download fetches rawURL and blocks until the transfer completes,
// fails, or is aborted for size. On success the returned [File] owns
// the downloaded content; on failure the error matches exactly one of
// the package's sentinel kinds and no partial storage is left behind.
func (c *Client) Download(ctx context.Context, rawURL string, optFns ...DownloadOption) (*File, error) {
	var settings downloadOpts
	for _, opt := range optFns {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying download option: %w", err)
		}
	}

	if settings.group != nil {
		return nil, errors.New("WithGroup is only valid with DownloadAsync")
	}

	return c.download(ctx, rawURL, &settings)
}

// download wraps a single transfer with logging and an optional span.
func (c *Client) download(ctx context.Context, rawURL string, settings *downloadOpts) (*File, error) {
	id := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "fetch.download",
		trace.WithAttributes(attribute.String("url.full", rawURL)))
	defer span.End()

	c.logger.Info("download starting", "id", id, "url", rawURL)

	file, err := c.run(ctx, rawURL, settings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("download failed", "id", id, "url", rawURL, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("http.response.body.size", file.Size))
	c.logger.Info("download complete",
		"id", id,
		"url", file.EffectiveURL,
		"bytes", file.Size,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return file, nil
}

// run executes the request and drives the body into a sink. The sink
// is discarded on every failure path after allocation; the response
// body is always drained and closed so the connection is released.
func (c *Client) run(ctx context.Context, rawURL string, settings *downloadOpts) (*File, error) {
	resp, err := c.execute(ctx, rawURL, settings)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error("failed to close response body", "error", cerr)
		}
	}()

	effective := resp.Request.URL

	// With a destination supplied, the temp file is allocated in the
	// destination's directory so the final rename never crosses a
	// filesystem boundary.
	var sinkDir string
	if settings.destination != "" {
		sinkDir = filepath.Dir(settings.destination)
	}

	sink, err := stream.NewSink(c.fs, sinkDir, path.Ext(effective.Path))
	if err != nil {
		return nil, fmt.Errorf("allocating sink: %w", err)
	}

	var successful bool
	defer func() {
		if !successful {
			sink.Discard()
		}
	}()

	maxSize := stream.NoLimit
	if settings.maxSize != nil {
		maxSize = *settings.maxSize
	}

	monitor := stream.NewMonitor(sink, maxSize, settings.progress, settings.contentLength)
	monitor.Start(resp.Header)

	limiter := c.limiter
	if settings.throttle != nil {
		if limiter, err = throttle.New(settings.throttle.bytesPerSec, settings.throttle.burst); err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
	}

	var body io.Reader = resp.Body
	body = throttle.NewReader(ctx, body, limiter)
	body = &contextReader{ctx: ctx, r: body}

	if _, err := io.Copy(monitor, body); err != nil {
		switch {
		case errors.Is(err, stream.ErrTooLarge):
			return nil, err
		case errors.Is(err, context.Canceled):
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		default:
			return nil, classifyTransport(err)
		}
	}

	content, err := sink.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalizing sink: %w", err)
	}

	if settings.destination != "" {
		if content, err = c.persist(content, settings.destination); err != nil {
			return nil, err
		}
	}

	successful = true

	return newFile(content, resp, sink.BytesWritten()), nil
}

// execute issues one logical download request: parse the URL, apply
// credentials, budget redirects, and validate the response status.
// Only a success-status response stream is returned.
func (c *Client) execute(ctx context.Context, rawURL string, settings *downloadOpts) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	method := http.MethodGet
	if settings.method != "" {
		method = settings.method
	}

	// Credentials embedded in the URL apply to this call only and are
	// stripped from the outgoing request line.
	var creds *credentials
	if u.User != nil {
		pass, _ := u.User.Password()
		creds = &credentials{user: u.User.Username(), pass: pass}

		clean := *u
		clean.User = nil
		u = &clean
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	for key, values := range settings.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	switch {
	case creds != nil:
		req.SetBasicAuth(creds.user, creds.pass)
	case c.auth != nil:
		req.SetBasicAuth(c.auth.user, c.auth.pass)
	}

	budget := c.maxRedirects
	if settings.redirects != nil {
		budget = *settings.redirects
	}

	resp, err := c.redirectClient(budget).Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if err := classifyStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// redirectClient returns a shallow copy of the underlying client with
// a per-call redirect budget. Once the budget is spent the final 3xx
// response surfaces unchanged, where classifyStatus turns it into
// [ErrTooManyRedirects]. The shared client is never mutated.
func (c *Client) redirectClient(budget int) *http.Client {
	hc := *c.c
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > budget {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return &hc
}

// persist moves finalized content to the caller-supplied destination
// and reopens it there for the returned handle.
func (c *Client) persist(content afero.File, dest string) (afero.File, error) {
	name := content.Name()
	if err := content.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	if err := c.fs.Rename(name, dest); err != nil {
		return nil, fmt.Errorf("moving content to destination: %w", err)
	}

	f, err := c.fs.Open(dest)
	if err != nil {
		// The rename already happened, so the sink's deferred Discard no
		// longer covers this content. Remove it here to keep failed
		// downloads from leaving files behind.
		_ = c.fs.Remove(dest)
		return nil, fmt.Errorf("reopening destination: %w", err)
	}

	return f, nil
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// contextReader aborts reads once the download's context ends, so a
// cancelled transfer stops between chunks even if the transport would
// keep delivering data.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
