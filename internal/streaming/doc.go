/*
Package streaming provides timeout-protected delivery of conversion results
over HTTP.

Slow or disconnected clients can otherwise hold server resources (and
scratch files) indefinitely while a large output file is being sent. The
package wraps http.ResponseWriter with per-write and idle timeouts, splits
large writes into flushed chunks, and detects client disconnects through the
request context.

Typical usage:

	err := streaming.Stream(r.Context(), w, outputFile, streaming.DefaultConfig())
	if errors.Is(err, streaming.ErrClientGone) {
		// Client left mid-download; not a server error.
	}

Sentinel errors:

	ErrWriteTimeout   - a single write exceeded Config.WriteTimeout
	ErrClientGone     - the request context was canceled by a disconnect
	ErrStreamCanceled - the stream was closed programmatically
*/
package streaming
