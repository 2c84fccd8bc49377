// Package throttle paces download body streams using a token-bucket
// limiter from [golang.org/x/time/rate], with one token per byte.
//
// # Usage
//
// Wrap a response body with [NewReader]:
//
//	lim, err := throttle.New(
//		1 << 20, // bytes per second
//		64 << 10, // burst capacity in bytes
//	)
//	body := throttle.NewReader(ctx, resp.Body, lim)
//
// Reads block until the limiter grants tokens for the bytes consumed,
// or until ctx is cancelled.
package throttle
