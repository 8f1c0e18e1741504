package session

import (
	"errors"
	"time"

	"github.com/leonardotrapani/hyprscribe/internal/recording"
)

type State string

const (
	Idle       State = "idle"
	Connecting State = "connecting"
	Recording  State = "recording"
	Stopping   State = "stopping"
)

// ErrorKind is the closed set of failures surfaced to the user.
type ErrorKind string

const (
	NoError          ErrorKind = ""
	PermissionDenied ErrorKind = "permission_denied"
	DeviceNotFound   ErrorKind = "device_not_found"
	CaptureFailed    ErrorKind = "capture_failed"
	ConnectionFailed ErrorKind = "connection_failed"
)

// Remediation is the message shown to the user for this kind.
func (k ErrorKind) Remediation() string {
	switch k {
	case PermissionDenied:
		return "Microphone access denied. Please allow microphone access and try again."
	case DeviceNotFound:
		return "No microphone found. Please connect a microphone and try again."
	case CaptureFailed:
		return "Failed to start recording. Please check your microphone and try again."
	case ConnectionFailed:
		return "Connection error. Please check your API key and network connection."
	default:
		return ""
	}
}

func captureErrorKind(err error) ErrorKind {
	switch {
	case errors.Is(err, recording.ErrPermissionDenied):
		return PermissionDenied
	case errors.Is(err, recording.ErrDeviceNotFound):
		return DeviceNotFound
	default:
		return CaptureFailed
	}
}

// Snapshot is the observable session state.
type Snapshot struct {
	ID         string
	State      State
	Transcript []string
	LastError  ErrorKind
	Err        string
	StartedAt  time.Time
}

// phase holds exactly the resources valid in one state.
type phase interface {
	state() State
}

type idlePhase struct{}

// acquiringPhase waits on the capture device; nothing is owned yet.
type acquiringPhase struct {
	id     string
	cancel func()
}

// resources are owned from the moment capture succeeds.
type resources struct {
	id     string
	stream recording.Stream
	conn   Connection
	done   chan struct{}
}

// release runs the three teardown steps in order; each is idempotent on its own.
func (r resources) release() {
	r.stream.StopChunking()
	_ = r.conn.Close()
	r.stream.Stop()
	close(r.done)
}

// openingPhase holds the device and a connection that has not signalled ready.
type openingPhase struct{ resources }

type recordingPhase struct{ resources }

// stoppingPhase drains final results after CloseStream.
type stoppingPhase struct {
	resources
	timer *time.Timer
}

func (idlePhase) state() State      { return Idle }
func (acquiringPhase) state() State { return Connecting }
func (openingPhase) state() State   { return Connecting }
func (recordingPhase) state() State { return Recording }
func (stoppingPhase) state() State  { return Stopping }

func phaseID(p phase) string {
	switch p := p.(type) {
	case acquiringPhase:
		return p.id
	case openingPhase:
		return p.id
	case recordingPhase:
		return p.id
	case stoppingPhase:
		return p.id
	default:
		return ""
	}
}
