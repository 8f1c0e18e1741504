package notify

import (
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

const appName = "Hyprscribe"

type Notifier interface {
	Notify(title, message string)
	Error(message string)
}

// New returns the notifier for a [notifications] type.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return NewDesktop()
	case "log":
		return NewLog(nil)
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send. Calls return at once;
// the command runs on its own goroutine.
type Desktop struct {
	run    func(name string, args ...string) error
	logger *log.Logger
}

func NewDesktop() *Desktop {
	return &Desktop{
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
		logger: log.Default().WithPrefix("notify"),
	}
}

func (d *Desktop) Notify(title, message string) {
	d.send("-a", appName, title, message)
}

func (d *Desktop) Error(message string) {
	d.send("-a", appName, "-u", "critical", appName+" Error", message)
}

func (d *Desktop) send(args ...string) {
	go func() {
		if err := d.run("notify-send", args...); err != nil {
			d.logger.Warnf("failed to send notification: %v", err)
		}
	}()
}

// Log writes notifications to a logger instead of the desktop.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default().WithPrefix("notify")
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(title, message string) {
	l.logger.Infof("%s: %s", title, message)
}

func (l *Log) Error(message string) {
	l.logger.Errorf("%s Error: %s", appName, message)
}

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) Notify(title, message string) {}
func (Nop) Error(message string)         {}

// Observer turns session state changes into notifications.
type Observer struct {
	n Notifier

	mu   sync.Mutex
	last session.State
}

func NewObserver(n Notifier) *Observer {
	return &Observer{n: n, last: session.Idle}
}

func (o *Observer) StateChanged(s session.Snapshot) {
	o.mu.Lock()
	prev := o.last
	o.last = s.State
	o.mu.Unlock()

	if prev == s.State {
		return
	}
	switch s.State {
	case session.Recording:
		o.n.Notify(appName, "Recording Started")
	case session.Idle:
		if s.LastError != session.NoError {
			o.n.Error(s.LastError.Remediation())
			return
		}
		if prev == session.Recording || prev == session.Stopping {
			o.n.Notify(appName, "Recording Stopped")
		}
	}
}

func (o *Observer) SegmentAppended(transcript.Segment) {}
