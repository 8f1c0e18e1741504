package injection

import (
	"context"
	"strings"

	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

type inserter interface {
	Inject(ctx context.Context, text string) error
}

// Observer delivers the transcript when a session ends cleanly.
type Observer struct {
	ctx      context.Context
	injector inserter
	onError  func(error)
	last     session.State
}

// NewObserver injects with ctx; onError, if set, receives delivery failures.
func NewObserver(ctx context.Context, injector *Injector, onError func(error)) *Observer {
	return &Observer{ctx: ctx, injector: injector, onError: onError, last: session.Idle}
}

func (o *Observer) StateChanged(s session.Snapshot) {
	prev := o.last
	o.last = s.State
	if s.State != session.Idle || prev == session.Idle {
		return
	}
	if s.LastError != session.NoError || len(s.Transcript) == 0 {
		return
	}

	// Never block the session loop.
	text := strings.Join(s.Transcript, " ")
	go func() {
		if err := o.injector.Inject(o.ctx, text); err != nil && o.onError != nil {
			o.onError(err)
		}
	}()
}

func (o *Observer) SegmentAppended(transcript.Segment) {}
