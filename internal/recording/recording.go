package recording

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultChunkInterval keeps perceived latency low without flooding the socket with tiny frames.
const DefaultChunkInterval = 250 * time.Millisecond

type Chunk struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate int
	Channels   int
	Format     string
	BufferSize int
	Device     string
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Channels:   1,
		Format:     "s16",
		BufferSize: 8192,
		Device:     "",
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", c.Channels)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", c.BufferSize)
	}
	if c.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	return nil
}

// Source acquires the capture device.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is a live capture handle owned by exactly one session.
type Stream interface {
	// StartChunking emits buffered audio every interval. Calling it twice is a no-op.
	StartChunking(interval time.Duration, onChunk func(Chunk))
	// StopChunking halts emission but keeps the device open.
	StopChunking()
	// Err reports a capture failure after acquisition succeeded.
	Err() <-chan error
	// Stop halts emission and releases the device. Idempotent.
	Stop()
}

// PipeWireSource records through pw-record.
type PipeWireSource struct {
	config   Config
	logger   *log.Logger
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewPipeWireSource(config Config) *PipeWireSource {
	return &PipeWireSource{
		config:   config,
		logger:   log.Default().WithPrefix("recording"),
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
	}
}

// Acquire starts pw-record and returns once the first audio arrives, or
// with a classified error if the recorder exits first.
func (s *PipeWireSource) Acquire(ctx context.Context) (Stream, error) {
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if s.config.Format == "s16" {
		frameBytes := 2 * s.config.Channels
		if s.config.BufferSize%frameBytes != 0 {
			s.logger.Warnf("BufferSize %d not aligned to frame size %d; audio frames may split",
				s.config.BufferSize, frameBytes)
		}
	}

	if _, err := s.lookPath("pw-record"); err != nil {
		return nil, fmt.Errorf("%w: pw-record not found (install pipewire-tools): %v", ErrDeviceNotFound, err)
	}

	// The recorder outlives Acquire's ctx; only Stop ends it.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := s.command(procCtx, "pw-record", s.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: create stdout pipe: %v", ErrCaptureFailed, err)
	}
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, classify(fmt.Errorf("start pw-record: %w", err), "")
	}
	s.logger.Debugf("pw-record started (pid %d)", cmd.Process.Pid)

	st := newStream(stdout, s.config.BufferSize, cmd.Wait, cancel, stderr.String)

	select {
	case <-st.ready:
		s.logger.Infof("capture acquired (device=%q, rate=%d)", s.config.Device, s.config.SampleRate)
		return st, nil
	case <-st.exited:
		st.Stop()
		err := classify(st.exitErr, stderr.String())
		s.logger.Errorf("capture failed: %v", err)
		return nil, err
	case <-ctx.Done():
		st.Stop()
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, ctx.Err())
	}
}

func (s *PipeWireSource) buildPwRecordArgs() []string {
	args := []string{
		"--format", s.config.Format,
		"--rate", strconv.Itoa(s.config.SampleRate),
		"--channels", strconv.Itoa(s.config.Channels),
	}
	if s.config.Device != "" {
		args = append(args, "--target", s.config.Device)
	}
	return append(args, "-") // stdout
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
