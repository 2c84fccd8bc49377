package fetch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kwilsonmg/fetch/stream"
)

// Sentinel errors for the failure kinds a download can surface. Every
// failure returned by [Client.Download] matches exactly one of these
// (or, for failures the classifier does not recognize, wraps the raw
// transport error unchanged). Match with [errors.Is].
var (
	// ErrInvalidURL indicates the URL could not be parsed or carries an
	// unsupported scheme. Raised before any network activity.
	ErrInvalidURL = errors.New("invalid url")

	// ErrConnection indicates name resolution or connection setup failed.
	ErrConnection = errors.New("connection failed")

	// ErrTimeout indicates the transport reported a timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("tls failure")

	// ErrTooManyRedirects indicates a redirect response remained after the
	// redirect budget was spent.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrClientStatus is the kind wrapped by [StatusError] for 4xx responses.
	ErrClientStatus = errors.New("client error status")

	// ErrServerStatus is the kind wrapped by [StatusError] for 5xx responses.
	ErrServerStatus = errors.New("server error status")

	// ErrResponseStatus is the kind wrapped by [StatusError] for any other
	// non-success response.
	ErrResponseStatus = errors.New("unexpected response status")

	// ErrCancelled indicates the download's context was cancelled mid-transfer.
	ErrCancelled = errors.New("download cancelled")
)

// Re-exported stream errors, so callers only import this package.
var (
	// ErrTooLarge indicates the body exceeded the configured maximum size.
	ErrTooLarge = stream.ErrTooLarge

	// ErrSinkDiscarded indicates a write to already-released temp storage.
	ErrSinkDiscarded = stream.ErrSinkDiscarded
)

// StatusError is returned when the server responds with a non-success
// status. Err is one of [ErrClientStatus], [ErrServerStatus], or
// [ErrResponseStatus] depending on the status range.
type StatusError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "Not Found"
	Header     http.Header
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
