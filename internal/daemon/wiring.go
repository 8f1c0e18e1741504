package daemon

import (
	"context"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

// ConfigFunc returns the configuration to use for the next session.
type ConfigFunc func() *config.Config

// Source acquires a PipeWire stream using the recording settings current at Acquire time.
func Source(cfg ConfigFunc) recording.Source {
	return configSource{cfg: cfg}
}

type configSource struct {
	cfg ConfigFunc
}

func (s configSource) Acquire(ctx context.Context) (recording.Stream, error) {
	return recording.NewPipeWireSource(s.cfg().ToRecordingConfig()).Acquire(ctx)
}

// Connector opens streaming connections using the transcription settings
// current at Connect time.
func Connector(cfg ConfigFunc) session.Connector {
	return session.ConnectorFunc(func(ctx context.Context, onEvent func(transport.Event)) session.Connection {
		c := cfg()
		url, err := c.ListenURL()
		if err == nil {
			err = c.RequireAPIKey()
		}
		if err != nil {
			// Reported like any other establishment failure.
			go onEvent(transport.Event{Kind: transport.Error, Err: err})
			return deadConn{}
		}
		return transport.NewClient(url, c.Credentials(), c.Transcription.ConnectTimeout).Open(ctx, onEvent)
	})
}

// deadConn stands in for a connection that could not be attempted.
type deadConn struct{}

func (deadConn) Send([]byte) bool { return false }
func (deadConn) Finalize() error  { return nil }
func (deadConn) Close() error     { return nil }

// NewController builds a session controller backed by PipeWire and the streaming service.
func NewController(cfg ConfigFunc, observers ...session.Observer) *session.Controller {
	opts := cfg().ToSessionOptions()
	opts.Observers = observers
	return session.New(Source(cfg), Connector(cfg), opts)
}
