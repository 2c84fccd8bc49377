// Package fetch downloads a URL to local storage in a streaming
// fashion, enforcing a maximum size as bytes arrive and mapping the
// many shapes of transport failure onto a small, stable error
// taxonomy so callers never depend on net/http error internals.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := fetch.Build(
//		fetch.WithTimeout(10 * time.Second),
//		fetch.WithUserAgent("myapp/1.0"),
//		fetch.WithMaxRedirects(5),
//	)
//
// # Downloading
//
// [Client.Download] blocks until the transfer finishes and returns a
// [File] with the content handle and response metadata:
//
//	f, err := c.Download(ctx, "https://example.com/files/data.csv",
//		fetch.WithMaxSize(10 << 20),
//		fetch.WithProgress(func(n int64) { fmt.Println(n, "bytes") }),
//	)
//	if err != nil { ... }
//	defer f.Close()
//	fmt.Println(f.Filename, f.ContentType, f.Size)
//
// # Error taxonomy
//
// Every failure matches exactly one sentinel with [errors.Is]:
// [ErrInvalidURL], [ErrConnection], [ErrTimeout], [ErrTLS],
// [ErrTooManyRedirects], [ErrTooLarge], or — for non-success statuses
// — a [StatusError] wrapping [ErrClientStatus], [ErrServerStatus], or
// [ErrResponseStatus]:
//
//	var statusErr *fetch.StatusError
//	if errors.As(err, &statusErr) {
//		log.Println(statusErr.StatusCode, statusErr.Status)
//	}
//
// On any failure the partially written temp storage is released
// before the error reaches the caller.
//
// # Async Downloads
//
// [Client.DownloadAsync] runs a download in the background; a [Group]
// bounds concurrency across a batch:
//
//	g := fetch.NewGroup(4)
//	r1, err := c.DownloadAsync(ctx, url1, fetch.WithGroup(g))
//	r2, err := c.DownloadAsync(ctx, url2, fetch.WithGroup(g))
//	err = g.Wait() // blocks until both finish
package fetch
