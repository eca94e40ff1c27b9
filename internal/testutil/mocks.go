package testutil

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// MockClock is a manually advanced clock. It satisfies zapcore.Clock, so
// logger tests can render deterministic elapsed-time prefixes.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// NewTicker returns a real ticker; only Now is controlled by the mock.
func (m *MockClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Set sets the mock clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// MockWriter is a zapcore.WriteSyncer that buffers output in memory and
// can be told to fail every write.
type MockWriter struct {
	buf *bytes.Buffer
	mu  sync.Mutex
	err error
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		buf: &bytes.Buffer{},
	}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.err != nil {
		return 0, mw.err
	}
	return mw.buf.Write(p)
}

// Sync implements zapcore.WriteSyncer.
func (mw *MockWriter) Sync() error {
	return nil
}

// Lines returns the buffered output split into lines, without the trailing empty line.
func (mw *MockWriter) Lines() []string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	s := strings.TrimRight(mw.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Len returns the current buffer length.
func (mw *MockWriter) Len() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.Len()
}

// SetAlwaysError makes every following Write fail with err until Reset.
func (mw *MockWriter) SetAlwaysError(err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.err = err
}

// Reset clears the buffer and any configured error.
func (mw *MockWriter) Reset() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.buf.Reset()
	mw.err = nil
}
