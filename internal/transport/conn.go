package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/hyprscribe/internal/metrics"
)

type EventKind int

const (
	Opened EventKind = iota
	Message
	Error
	Closed
)

func (k EventKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Message:
		return "message"
	case Error:
		return "error"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a lifecycle signal or an inbound message from the service.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

type Credentials struct {
	Token string
}

type connState int

const (
	stateDialing connState = iota
	stateOpen
	stateClosed
)

const (
	// DefaultWriteTimeout bounds a single outbound frame; a peer that stops
	// reading for longer fails the connection.
	DefaultWriteTimeout = 10 * time.Second

	sendQueueSize = 64
)

// Client opens streaming connections to one endpoint.
type Client struct {
	url            string
	creds          Credentials
	connectTimeout time.Duration
	writeTimeout   time.Duration
	dialer         websocket.Dialer
	logger         *log.Logger
}

// NewClient builds a client for the given endpoint URL (see BuildURL).
// A zero connectTimeout means neither the dial nor the handshake has a deadline.
func NewClient(url string, creds Credentials, connectTimeout time.Duration) *Client {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: connectTimeout,
	}
	if creds.Token != "" {
		// Browser clients cannot set headers, so the service also accepts the key as a subprotocol.
		dialer.Subprotocols = []string{"token", creds.Token}
	}
	return &Client{
		url:            url,
		creds:          creds,
		connectTimeout: connectTimeout,
		writeTimeout:   DefaultWriteTimeout,
		dialer:         dialer,
		logger:         log.Default().WithPrefix("transport"),
	}
}

// Open returns immediately; establishment finishes in the background and is
// reported through onEvent as Opened or Error. onEvent is never called
// after Close returns, except for at most one event already in flight.
func (c *Client) Open(ctx context.Context, onEvent func(Event)) *Conn {
	var (
		dialCtx context.Context
		cancel  context.CancelFunc
	)
	if c.connectTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
	} else {
		dialCtx, cancel = context.WithCancel(ctx)
	}

	conn := &Conn{
		out:          make(chan outbound, sendQueueSize),
		quit:         make(chan struct{}),
		writeTimeout: c.writeTimeout,
		onEvent:      onEvent,
		cancel:       cancel,
		logger:       c.logger,
	}
	go conn.dial(dialCtx, c)
	return conn
}

type outbound struct {
	kind int // websocket.BinaryMessage or websocket.TextMessage
	data []byte
}

// Conn is one streaming connection. Outbound frames go through a bounded
// queue drained by a writer goroutine, so Send and Finalize never block.
type Conn struct {
	mu    sync.Mutex // guards state and ws
	state connState
	ws    *websocket.Conn

	queueMu      sync.Mutex // makes evict-then-push atomic
	out          chan outbound
	quit         chan struct{}
	writeTimeout time.Duration

	closeOnce sync.Once
	cancel    context.CancelFunc
	onEvent   func(Event)
	logger    *log.Logger
}

func (c *Conn) dial(ctx context.Context, client *Client) {
	headers := http.Header{}
	if client.creds.Token != "" {
		headers.Set("Authorization", "Token "+client.creds.Token)
	}

	started := time.Now()
	c.logger.Debugf("connecting to %s", client.url)
	ws, resp, err := client.dialer.DialContext(ctx, client.url, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		} else {
			err = fmt.Errorf("websocket dial: %w", err)
		}
		c.mu.Lock()
		abandoned := c.state == stateClosed
		c.state = stateClosed
		c.mu.Unlock()
		if abandoned {
			return
		}
		c.logger.Errorf("connect failed: %v", err)
		c.onEvent(Event{Kind: Error, Err: err})
		return
	}

	c.mu.Lock()
	if c.state == stateClosed {
		// Close raced the handshake; drop the socket without promoting it.
		c.mu.Unlock()
		ws.Close()
		c.logger.Debugf("connection opened after close, discarded")
		return
	}
	c.state = stateOpen
	c.ws = ws
	c.mu.Unlock()

	go c.writeLoop(ws)

	metrics.ObserveConnectLatency(time.Since(started))
	c.logger.Infof("connected (subprotocol=%q)", ws.Subprotocol())
	c.onEvent(Event{Kind: Opened})

	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.state == stateClosed
			c.state = stateClosed
			c.mu.Unlock()
			ws.Close()
			if wasClosed {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Infof("closed by service")
				c.onEvent(Event{Kind: Closed})
				return
			}
			c.logger.Errorf("read error: %v", err)
			c.onEvent(Event{Kind: Error, Err: fmt.Errorf("websocket read: %w", err)})
			return
		}
		c.onEvent(Event{Kind: Message, Data: message})
	}
}

// writeLoop is the only data writer. A write that misses its deadline closes
// the socket, which the read loop reports as an Error.
func (c *Conn) writeLoop(ws *websocket.Conn) {
	for {
		select {
		case <-c.quit:
			return
		case m := <-c.out:
			if c.writeTimeout > 0 {
				_ = ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := ws.WriteMessage(m.kind, m.data); err != nil {
				select {
				case <-c.quit:
					return
				default:
				}
				c.logger.Errorf("write failed: %v", err)
				ws.Close()
				return
			}
		}
	}
}

// enqueue drops the oldest queued frame when the writer has fallen behind.
func (c *Conn) enqueue(m outbound) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	for {
		select {
		case c.out <- m:
			return
		default:
		}
		select {
		case <-c.out:
			metrics.IncChunksDropped()
			c.logger.Debugf("send queue full, dropped oldest frame")
		default:
		}
	}
}

// Ready reports whether the connection is open for sending.
func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Send queues one binary message. It reports false, without error, when the
// connection is not open: chunks racing the handshake or a close are dropped.
func (c *Conn) Send(data []byte) bool {
	if !c.Ready() {
		return false
	}
	c.enqueue(outbound{kind: websocket.BinaryMessage, data: data})
	return true
}

type closeStream struct {
	Type string `json:"type"`
}

// Finalize asks the service to flush pending results and close the stream.
func (c *Conn) Finalize() error {
	if !c.Ready() {
		return nil
	}
	data, err := json.Marshal(closeStream{Type: "CloseStream"})
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	// Queued behind the remaining audio so the service sees it last.
	c.enqueue(outbound{kind: websocket.TextMessage, data: data})
	c.logger.Debugf("queued CloseStream")
	return nil
}

// Close is idempotent. A dial still in flight is cancelled; if it completes
// anyway the socket is closed instead of opened.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		ws := c.ws
		c.state = stateClosed
		c.mu.Unlock()

		c.cancel()
		close(c.quit)
		if ws == nil {
			return
		}

		// WriteControl may run concurrently with a blocked data write.
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
		c.logger.Debugf("closed")
	})
	return nil
}
