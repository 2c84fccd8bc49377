package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// classifyTransport maps a raw transport failure onto the error
// taxonomy. Rules apply in priority order: connection-level failures,
// then timeouts, then TLS, then a wrapped passthrough for anything
// unrecognized. No retries happen here; it only labels.
func classifyTransport(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if isTLSFailure(err) {
		return fmt.Errorf("%w: %w", ErrTLS, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	// Unrecognized failure: propagate with the original chain intact.
	return fmt.Errorf("transport: %w", err)
}

func isTLSFailure(err error) bool {
	var (
		recordErr  tls.RecordHeaderError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		noCertsErr x509.SystemRootsError
	)

	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &noCertsErr)
}

// classifyStatus validates a response status after the transport has
// finished redirect-following. Any 3xx still standing means the
// redirect budget was spent; 4xx/5xx/other non-2xx become a
// [StatusError] carrying code, reason phrase, and headers.
func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode

	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 300 && code < 400:
		return ErrTooManyRedirects
	}

	kind := ErrResponseStatus
	switch {
	case code >= 400 && code < 500:
		kind = ErrClientStatus
	case code >= 500 && code < 600:
		kind = ErrServerStatus
	}

	return &StatusError{
		StatusCode: code,
		Status:     reasonPhrase(code),
		Header:     resp.Header,
		Err:        kind,
	}
}

// reasonPhrase resolves a status code to its standard reason phrase,
// falling back to "Unknown" for codes outside the IANA table.
func reasonPhrase(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}

	return "Unknown"
}
