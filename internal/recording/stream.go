package recording

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// stream buffers everything read from the recorder and hands it out in timed chunks.
type stream struct {
	mu       sync.Mutex // guards pending, chunking and stopped
	pending  bytes.Buffer
	chunking bool
	stopped  bool

	halt     chan struct{}
	haltOnce sync.Once
	stopOnce sync.Once

	ready     chan struct{}
	readyOnce sync.Once
	exited    chan struct{}
	exitErr   error

	errCh   chan error
	release func()
	stderr  func() string
}

func newStream(r io.Reader, bufferSize int, wait func() error, release func(), stderr func() string) *stream {
	if stderr == nil {
		stderr = func() string { return "" }
	}
	s := &stream{
		halt:    make(chan struct{}),
		ready:   make(chan struct{}),
		exited:  make(chan struct{}),
		errCh:   make(chan error, 1),
		release: release,
		stderr:  stderr,
	}
	go s.readLoop(r, bufferSize, wait)
	return s
}

func (s *stream) readLoop(r io.Reader, bufferSize int, wait func() error) {
	buf := make([]byte, bufferSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			s.mu.Lock()
			if !s.stopped {
				s.pending.Write(buf[:n])
			}
			s.mu.Unlock()
			s.readyOnce.Do(func() { close(s.ready) })
		}
		if readErr == nil {
			continue
		}

		// Reap the recorder only after stdout is drained.
		var exitErr error
		if wait != nil {
			exitErr = wait()
		}
		if exitErr == nil && !errors.Is(readErr, io.EOF) {
			exitErr = readErr
		}
		s.exitErr = exitErr
		close(s.exited)

		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			select {
			case s.errCh <- classify(exitErr, s.stderr()):
			default:
			}
		}
		return
	}
}

func (s *stream) StartChunking(interval time.Duration, onChunk func(Chunk)) {
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	s.mu.Lock()
	if s.chunking || s.stopped {
		s.mu.Unlock()
		return
	}
	s.chunking = true
	s.mu.Unlock()

	go s.chunkLoop(interval, onChunk)
}

func (s *stream) chunkLoop(interval time.Duration, onChunk func(Chunk)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.halt:
			return
		case <-ticker.C:
			data := s.take()
			if len(data) == 0 {
				continue
			}
			select {
			case <-s.halt:
				return
			default:
			}
			onChunk(Chunk{Data: data, Timestamp: time.Now()})
		}
	}
}

func (s *stream) take() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Len() == 0 {
		return nil
	}
	data := bytes.Clone(s.pending.Bytes())
	s.pending.Reset()
	return data
}

func (s *stream) StopChunking() {
	s.haltOnce.Do(func() { close(s.halt) })
}

func (s *stream) Err() <-chan error {
	return s.errCh
}

func (s *stream) Stop() {
	s.stopOnce.Do(func() {
		s.StopChunking()
		s.mu.Lock()
		s.stopped = true
		s.pending.Reset()
		s.mu.Unlock()
		if s.release != nil {
			s.release()
		}
	})
}
