package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

// Connection is the subset of a streaming connection the controller drives.
type Connection interface {
	Send(data []byte) bool
	Finalize() error
	Close() error
}

// Connector opens a connection whose lifecycle is reported through onEvent.
type Connector interface {
	Connect(ctx context.Context, onEvent func(transport.Event)) Connection
}

type ConnectorFunc func(ctx context.Context, onEvent func(transport.Event)) Connection

func (f ConnectorFunc) Connect(ctx context.Context, onEvent func(transport.Event)) Connection {
	return f(ctx, onEvent)
}

// Observer is called from the controller goroutine and must not block.
type Observer interface {
	StateChanged(Snapshot)
	SegmentAppended(transcript.Segment)
}

type Options struct {
	ChunkInterval time.Duration
	// DrainTimeout > 0 makes Stop ask the service to flush final results
	// and wait up to this long before tearing down.
	DrainTimeout time.Duration
	Logger       *log.Logger
	Observers    []Observer
}

// Controller owns one capture device and one connection at a time. All
// state lives on the goroutine running Run; collaborators only post events.
type Controller struct {
	source    recording.Source
	connector Connector
	opts      Options
	logger    *log.Logger

	events    chan any
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	acquires  sync.WaitGroup // in-flight Acquire goroutines

	// loop-owned
	phase phase

	transcript transcript.Transcript

	mu        sync.RWMutex // guards snap and observers
	snap      Snapshot
	observers []Observer
}

func New(source recording.Source, connector Connector, opts Options) *Controller {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = recording.DefaultChunkInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("session")
	}
	return &Controller{
		source:    source,
		connector: connector,
		opts:      opts,
		logger:    logger,
		events:    make(chan any, 64),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
		ctx:       context.Background(),
		phase:     idlePhase{},
		snap:      Snapshot{State: Idle},
		observers: append([]Observer(nil), opts.Observers...),
	}
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdToggle
)

func (c command) String() string {
	switch c {
	case cmdStart:
		return "start"
	case cmdStop:
		return "stop"
	default:
		return "toggle"
	}
}

type requested struct {
	cmd     command
	handled chan Snapshot
}

type captureAcquired struct {
	id     string
	stream recording.Stream
}

type captureFailed struct {
	id  string
	err error
}

type captureError struct {
	id  string
	err error
}

type connEvent struct {
	id string
	ev transport.Event
}

type chunkReady struct {
	id    string
	chunk recording.Chunk
}

type drainExpired struct {
	id string
}

// Run processes events until ctx is cancelled, then releases anything still held.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer c.shutdown()

	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case <-ctx.Done():
			return nil
		case <-c.quit:
			return nil
		}
	}
}

func (c *Controller) shutdown() {
	c.teardown(NoError, nil)
	close(c.done)
	c.drain()

	// An acquire racing close(done) can still land in the buffer; sweep
	// again once every acquire goroutine has returned.
	go func() {
		c.acquires.Wait()
		c.drain()
	}()
}

// drain releases streams acquired just before exit and answers pending requests.
func (c *Controller) drain() {
	for {
		select {
		case ev := <-c.events:
			switch ev := ev.(type) {
			case captureAcquired:
				ev.stream.Stop()
			case requested:
				ev.handled <- c.Snapshot()
			}
		default:
			return
		}
	}
}

// Close tears down any session and waits for Run to return.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
}

// Subscribe adds an observer for subsequent changes.
func (c *Controller) Subscribe(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

func (c *Controller) observersSnapshot() []Observer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.observers
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins a session when idle and is ignored otherwise.
func (c *Controller) Start() Snapshot { return c.request(cmdStart) }

// Stop ends the current session, if any.
func (c *Controller) Stop() Snapshot { return c.request(cmdStop) }

// Toggle starts when idle and stops otherwise.
func (c *Controller) Toggle() Snapshot { return c.request(cmdToggle) }

func (c *Controller) request(cmd command) Snapshot {
	handled := make(chan Snapshot, 1)
	if !c.post(requested{cmd: cmd, handled: handled}) {
		return c.Snapshot()
	}
	select {
	case s := <-handled:
		return s
	case <-c.done:
		return c.Snapshot()
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	s.Transcript = c.transcript.Texts()
	return s
}

// post reports false once the loop has exited.
func (c *Controller) post(ev any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) handle(ev any) {
	switch ev := ev.(type) {
	case requested:
		c.handleRequest(ev.cmd)
		ev.handled <- c.Snapshot()
	case captureAcquired:
		c.handleCaptureAcquired(ev)
	case captureFailed:
		if p, ok := c.phase.(acquiringPhase); ok && p.id == ev.id {
			p.cancel()
			c.logger.Errorf("capture failed: %v", ev.err)
			c.teardown(captureErrorKind(ev.err), ev.err)
		}
	case captureError:
		c.handleCaptureError(ev)
	case connEvent:
		c.handleConnEvent(ev)
	case chunkReady:
		c.handleChunk(ev)
	case drainExpired:
		if p, ok := c.phase.(stoppingPhase); ok && p.id == ev.id {
			c.logger.Debugf("drain timeout elapsed")
			c.teardown(NoError, nil)
		}
	default:
		c.logger.Warnf("unknown event %T", ev)
	}
}

func (c *Controller) handleRequest(cmd command) {
	c.logger.Debugf("%s requested in state %s", cmd, c.phase.state())
	if cmd == cmdToggle {
		if _, idle := c.phase.(idlePhase); idle {
			cmd = cmdStart
		} else {
			cmd = cmdStop
		}
	}

	switch cmd {
	case cmdStart:
		if _, idle := c.phase.(idlePhase); !idle {
			return
		}
		c.begin()
	case cmdStop:
		c.stop()
	}
}

func (c *Controller) begin() {
	id := uuid.NewString()
	c.transcript.Reset()

	ctx, cancel := context.WithCancel(c.ctx)
	c.phase = acquiringPhase{id: id, cancel: cancel}

	c.mu.Lock()
	c.snap = Snapshot{ID: id, StartedAt: time.Now()}
	c.mu.Unlock()

	metrics.IncSessionsStarted()
	metrics.SetActiveSessions(1)
	c.logger.Infof("session %s starting", id)
	c.publish()

	c.acquires.Add(1)
	go func() {
		defer c.acquires.Done()
		stream, err := c.source.Acquire(ctx)
		if err != nil {
			c.post(captureFailed{id: id, err: err})
			return
		}
		if !c.post(captureAcquired{id: id, stream: stream}) {
			stream.Stop()
		}
	}()
}

func (c *Controller) handleCaptureAcquired(ev captureAcquired) {
	p, ok := c.phase.(acquiringPhase)
	if !ok || p.id != ev.id {
		c.logger.Debugf("releasing capture from stale session %s", ev.id)
		ev.stream.Stop()
		return
	}
	p.cancel()

	id := ev.id
	conn := c.connector.Connect(c.ctx, func(e transport.Event) {
		c.post(connEvent{id: id, ev: e})
	})
	res := resources{
		id:     id,
		stream: ev.stream,
		conn:   conn,
		done:   make(chan struct{}),
	}
	c.phase = openingPhase{res}
	go c.watchCapture(res)
	c.logger.Debugf("capture acquired, waiting for connection")
}

// watchCapture forwards a runtime device failure until the resources are released.
func (c *Controller) watchCapture(res resources) {
	select {
	case err := <-res.stream.Err():
		c.post(captureError{id: res.id, err: err})
	case <-res.done:
	}
}

func (c *Controller) handleCaptureError(ev captureError) {
	switch p := c.phase.(type) {
	case openingPhase, recordingPhase:
		if phaseID(p) != ev.id {
			return
		}
		c.logger.Errorf("capture stopped: %v", ev.err)
		c.teardown(captureErrorKind(ev.err), ev.err)
	case stoppingPhase:
		if p.id == ev.id {
			c.logger.Debugf("capture ended while draining: %v", ev.err)
		}
	}
}

func (c *Controller) handleConnEvent(ev connEvent) {
	if phaseID(c.phase) != ev.id {
		return
	}

	switch ev.ev.Kind {
	case transport.Opened:
		p, ok := c.phase.(openingPhase)
		if !ok {
			return
		}
		c.phase = recordingPhase(p)
		id := p.id
		p.stream.StartChunking(c.opts.ChunkInterval, func(ch recording.Chunk) {
			c.post(chunkReady{id: id, chunk: ch})
		})
		c.logger.Infof("recording")
		c.publish()

	case transport.Message:
		seg, ok := transcript.Ingest(ev.ev.Data)
		if !ok {
			return
		}
		c.transcript.Append(seg)
		metrics.IncSegmentsAppended()
		c.logger.Debugf("segment: %q", seg.Text)
		for _, o := range c.observersSnapshot() {
			o.SegmentAppended(seg)
		}

	case transport.Error, transport.Closed:
		if _, ok := c.phase.(stoppingPhase); ok {
			c.logger.Debugf("connection %s while draining", ev.ev.Kind)
			c.teardown(NoError, nil)
			return
		}
		err := ev.ev.Err
		if err == nil {
			err = errors.New("connection closed by service")
		}
		c.logger.Errorf("connection failed: %v", err)
		c.teardown(ConnectionFailed, err)
	}
}

func (c *Controller) handleChunk(ev chunkReady) {
	p, ok := c.phase.(recordingPhase)
	if !ok || p.id != ev.id {
		metrics.IncChunksDropped()
		return
	}
	if p.conn.Send(ev.chunk.Data) {
		metrics.RecordChunkSent(len(ev.chunk.Data))
	} else {
		metrics.IncChunksDropped()
	}
}

func (c *Controller) stop() {
	switch p := c.phase.(type) {
	case idlePhase:
		c.logger.Debugf("stop ignored while idle")
	case recordingPhase:
		if c.opts.DrainTimeout <= 0 {
			c.teardown(NoError, nil)
			return
		}
		p.stream.StopChunking()
		if err := p.conn.Finalize(); err != nil {
			c.logger.Warnf("finalize failed, closing now: %v", err)
			c.teardown(NoError, nil)
			return
		}
		id := p.id
		timer := time.AfterFunc(c.opts.DrainTimeout, func() {
			c.post(drainExpired{id: id})
		})
		c.phase = stoppingPhase{resources: p.resources, timer: timer}
		c.logger.Infof("stopping, draining final results")
		c.publish()
	default:
		// Connecting, or a second stop while draining.
		c.teardown(NoError, nil)
	}
}

// teardown returns to idle, releasing whatever the current phase owns.
// The phase is swapped out first so a nested or late call finds nothing to release.
func (c *Controller) teardown(kind ErrorKind, err error) {
	prev := c.phase
	c.phase = idlePhase{}

	switch p := prev.(type) {
	case idlePhase:
		return
	case acquiringPhase:
		p.cancel()
	case openingPhase:
		p.release()
	case recordingPhase:
		p.release()
	case stoppingPhase:
		p.timer.Stop()
		p.release()
	}

	c.mu.Lock()
	c.snap.LastError = kind
	c.snap.Err = ""
	if err != nil {
		c.snap.Err = err.Error()
	}
	c.mu.Unlock()

	if kind != NoError {
		metrics.IncSessionsFailed(string(kind))
	}
	metrics.SetActiveSessions(0)
	c.logger.Infof("session %s ended (%d segments)", phaseID(prev), c.transcript.Len())
	c.publish()
}

func (c *Controller) publish() {
	state := c.phase.state()
	c.mu.Lock()
	c.snap.State = state
	c.mu.Unlock()

	snap := c.Snapshot()
	for _, o := range c.observersSnapshot() {
		o.StateChanged(snap)
	}
}
