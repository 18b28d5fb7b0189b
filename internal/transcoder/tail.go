package transcoder

import "sync"

// tailBuffer is an io.Writer retaining only the last max bytes written.
// FFmpeg emits progress lines continuously; only the trailing output is
// useful for diagnosing a failure.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return len(p), nil
	}

	t.buf = append(t.buf, p...)
	if overflow := len(t.buf) - t.max; overflow > 0 {
		t.buf = append(t.buf[:0], t.buf[overflow:]...)
	}
	return len(p), nil
}

// String returns the retained output.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// Tail returns at most n trailing bytes of the retained output.
func (t *tailBuffer) Tail(n int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) <= n {
		return string(t.buf)
	}
	return string(t.buf[len(t.buf)-n:])
}
