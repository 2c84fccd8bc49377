// Package stream persists an in-flight HTTP response body to temporary
// storage while enforcing a byte limit and reporting progress.
//
// A [Sink] is an append-only store backed by an [afero.Fs] temp file.
// A [Monitor] decorates the sink as an [io.Writer], so a transfer is
// driven with a plain io.Copy:
//
//	sink, err := stream.NewSink(fs, "", ".bin")
//	mon := stream.NewMonitor(sink, maxSize, onProgress, onLength)
//	mon.Start(resp.Header)
//	_, err = io.Copy(mon, resp.Body)
//
// On every chunk the monitor appends to the sink, notifies the progress
// callback with the cumulative byte count, and then checks the limit,
// failing with [ErrTooLarge] the moment the total exceeds it. A transfer
// can therefore overshoot the limit by at most one chunk.
package stream
