package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Transcription.APIKey = "test-api-key"
	cfg.Notifications.Type = "none"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// CallLog records release calls across mocks so tests can check their order.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// MockSource implements recording.Source. When Gate is set, Acquire blocks
// until it is closed; IgnoreContext makes it finish even after cancellation,
// like a device that completes after the caller gave up.
type MockSource struct {
	Gate          chan struct{}
	IgnoreContext bool
	Err           error
	Log           *CallLog

	acquired chan *MockStream
}

func NewMockSource() *MockSource {
	return &MockSource{acquired: make(chan *MockStream, 16)}
}

func (m *MockSource) Acquire(ctx context.Context) (recording.Stream, error) {
	if m.Gate != nil {
		if m.IgnoreContext {
			<-m.Gate
		} else {
			select {
			case <-m.Gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	s := &MockStream{log: m.Log, errCh: make(chan error, 1)}
	m.acquired <- s
	return s, nil
}

// NextStream returns the next stream handed out by Acquire.
func (m *MockSource) NextStream(t *testing.T) *MockStream {
	t.Helper()
	select {
	case s := <-m.acquired:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture to be acquired")
		return nil
	}
}

// MockStream implements recording.Stream. Chunks are pushed with Emit.
type MockStream struct {
	log   *CallLog
	errCh chan error

	mu            sync.Mutex
	onChunk       func(recording.Chunk)
	interval      time.Duration
	chunking      bool
	halted        bool
	stopped       bool
	stopCalls     int
	startChunking int
}

func (s *MockStream) StartChunking(interval time.Duration, onChunk func(recording.Chunk)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startChunking++
	if s.chunking || s.stopped {
		return
	}
	s.chunking = true
	s.interval = interval
	s.onChunk = onChunk
}

func (s *MockStream) StopChunking() {
	s.mu.Lock()
	first := !s.halted
	s.halted = true
	s.mu.Unlock()
	if first {
		s.log.add("stream.StopChunking")
	}
}

func (s *MockStream) Err() <-chan error { return s.errCh }

func (s *MockStream) Stop() {
	s.StopChunking()
	s.mu.Lock()
	s.stopCalls++
	first := !s.stopped
	s.stopped = true
	s.mu.Unlock()
	if first {
		s.log.add("stream.Stop")
	}
}

// Emit delivers one chunk if chunking is active and reports whether it did.
func (s *MockStream) Emit(data []byte) bool {
	s.mu.Lock()
	fn := s.onChunk
	active := s.chunking && !s.halted
	s.mu.Unlock()
	if !active {
		return false
	}
	fn(recording.Chunk{Data: data, Timestamp: time.Now()})
	return true
}

// Fail simulates the recorder dying.
func (s *MockStream) Fail(err error) {
	s.errCh <- err
}

func (s *MockStream) Chunking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunking && !s.halted
}

func (s *MockStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *MockStream) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// MockConnector implements session.Connector, handing out MockConns.
type MockConnector struct {
	Log *CallLog

	conns chan *MockConn
	count int
	mu    sync.Mutex
}

func NewMockConnector() *MockConnector {
	return &MockConnector{conns: make(chan *MockConn, 16)}
}

func (m *MockConnector) Connect(ctx context.Context, onEvent func(transport.Event)) session.Connection {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()

	c := &MockConn{log: m.Log, onEvent: onEvent}
	m.conns <- c
	return c
}

func (m *MockConnector) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// NextConn returns the next connection opened by the controller.
func (m *MockConnector) NextConn(t *testing.T) *MockConn {
	t.Helper()
	select {
	case c := <-m.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

// MockConn implements session.Connection. The test drives its lifecycle
// with Open, Deliver, Fail and RemoteClose; late events after Close are
// still delivered so tests can check they are ignored.
type MockConn struct {
	log     *CallLog
	onEvent func(transport.Event)

	FinalizeErr error

	mu        sync.Mutex
	open      bool
	closed    bool
	finalized bool
	sent      [][]byte
}

func (c *MockConn) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.onEvent(transport.Event{Kind: transport.Opened})
}

func (c *MockConn) Deliver(raw string) {
	c.onEvent(transport.Event{Kind: transport.Message, Data: []byte(raw)})
}

func (c *MockConn) Fail(err error) {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.onEvent(transport.Event{Kind: transport.Error, Err: err})
}

func (c *MockConn) RemoteClose() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.onEvent(transport.Event{Kind: transport.Closed})
}

func (c *MockConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.closed {
		return false
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return true
}

func (c *MockConn) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FinalizeErr != nil {
		return c.FinalizeErr
	}
	c.finalized = true
	return nil
}

func (c *MockConn) Close() error {
	c.mu.Lock()
	first := !c.closed
	c.closed = true
	c.open = false
	c.mu.Unlock()
	if first {
		c.log.add("conn.Close")
	}
	return nil
}

func (c *MockConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockConn) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

// FinalResult builds a service message carrying a final transcript.
func FinalResult(text string) string {
	return `{"type":"Results","channel":{"alternatives":[{"transcript":"` + text + `"}]},"is_final":true}`
}

// InterimResult builds a service message carrying an interim transcript.
func InterimResult(text string) string {
	return `{"type":"Results","channel":{"alternatives":[{"transcript":"` + text + `"}]},"is_final":false}`
}
