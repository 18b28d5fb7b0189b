package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"videolab/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write operation exceeded the configured
	// timeout. This typically occurs when a client is receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream
	// completed. Detected via the request context being canceled.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was canceled
	// programmatically, either by Close or by context cancellation.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config controls timeout-protected writing.
type Config struct {
	// WriteTimeout is the maximum time to wait for a single write operation.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes.
	IdleTimeout time.Duration
	// ChunkSize is the size of chunks to write (0 = write as received).
	ChunkSize int
}

// DefaultConfig returns the defaults used for download delivery.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// Writer wraps an http.ResponseWriter with timeout protection.
type Writer struct {
	w            http.ResponseWriter
	ctx          context.Context
	cancel       context.CancelFunc
	config       Config
	startTime    time.Time
	lastWrite    time.Time
	bytesWritten int64
	mu           sync.Mutex
	closed       bool
	flusher      http.Flusher
}

// NewWriter creates a new timeout-protected writer bound to ctx.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	writerCtx, cancel := context.WithCancel(ctx)

	sw := &Writer{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		lastWrite: time.Now(),
	}

	if flusher, ok := w.(http.Flusher); ok {
		sw.flusher = flusher
	}

	go sw.idleChecker()

	return sw
}

// Write implements io.Writer with timeout protection.
func (sw *Writer) Write(p []byte) (int, error) {
	sw.mu.Lock()
	if sw.closed {
		sw.mu.Unlock()
		return 0, ErrStreamCanceled
	}
	sw.mu.Unlock()

	select {
	case <-sw.ctx.Done():
		return 0, sw.contextError()
	default:
	}

	if sw.config.ChunkSize > 0 && len(p) > sw.config.ChunkSize {
		return sw.writeChunked(p)
	}

	return sw.writeWithTimeout(p)
}

// writeChunked writes data in smaller flushed chunks so that cancellation is
// noticed between chunks.
func (sw *Writer) writeChunked(p []byte) (int, error) {
	totalWritten := 0

	for len(p) > 0 {
		select {
		case <-sw.ctx.Done():
			return totalWritten, sw.contextError()
		default:
		}

		chunkSize := sw.config.ChunkSize
		if len(p) < chunkSize {
			chunkSize = len(p)
		}

		n, err := sw.writeWithTimeout(p[:chunkSize])
		totalWritten += n
		if err != nil {
			return totalWritten, err
		}

		p = p[chunkSize:]

		if sw.flusher != nil {
			sw.flusher.Flush()
		}
	}

	return totalWritten, nil
}

// writeWithTimeout performs a single write bounded by WriteTimeout.
func (sw *Writer) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := sw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	select {
	case result := <-resultCh:
		if result.err == nil {
			sw.mu.Lock()
			sw.lastWrite = time.Now()
			sw.bytesWritten += int64(result.n)
			sw.mu.Unlock()
		}
		return result.n, result.err

	case <-time.After(sw.config.WriteTimeout):
		sw.cancel()
		return 0, ErrWriteTimeout

	case <-sw.ctx.Done():
		return 0, sw.contextError()
	}
}

// idleChecker terminates streams with no data flow for longer than IdleTimeout.
func (sw *Writer) idleChecker() {
	if sw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(sw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.mu.Lock()
			idle := time.Since(sw.lastWrite)
			closed := sw.closed
			sw.mu.Unlock()

			if closed {
				return
			}

			if idle > sw.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				sw.cancel()
				return
			}

		case <-sw.ctx.Done():
			return
		}
	}
}

func (sw *Writer) contextError() error {
	if sw.ctx.Err() == context.Canceled {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close marks the writer as closed and releases the idle checker.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}

	sw.closed = true
	sw.cancel()

	return nil
}

// Stats returns bytes written so far and elapsed streaming time.
func (sw *Writer) Stats() (bytesWritten int64, duration time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.bytesWritten, time.Since(sw.startTime)
}

// Stream copies from r to the HTTP response with timeout protection.
func Stream(ctx context.Context, w http.ResponseWriter, r io.Reader, config Config) error {
	sw := NewWriter(ctx, w, config)
	defer func() {
		if err := sw.Close(); err != nil {
			logging.Warn("Failed to close stream writer: %v", err)
		}
	}()

	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, err := io.Copy(sw, r)

	bytesWritten, duration := sw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	return err
}
