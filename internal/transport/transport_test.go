package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		opts     ListenOptions
		want     []string
		wantErr  bool
	}{
		{
			name:     "english defaults",
			endpoint: "wss://api.deepgram.com/v1/listen",
			opts:     ListenOptions{Model: "nova-3", Language: "en", Encoding: "linear16", SampleRate: 16000, Channels: 1, InterimResults: true},
			want:     []string{"model=nova-3", "language=en-US", "encoding=linear16", "sample_rate=16000", "channels=1", "interim_results=true"},
		},
		{
			name:     "keywords and formatting",
			endpoint: "wss://api.deepgram.com/v1/listen",
			opts:     ListenOptions{Model: "nova-2", Language: "es", SmartFormat: true, Punctuate: true, Keywords: []string{"hyprland", "pipewire"}},
			want:     []string{"model=nova-2", "language=es", "smart_format=true", "punctuate=true", "keywords=hyprland%2Cpipewire"},
		},
		{
			name: "empty endpoint uses default",
			opts: ListenOptions{Model: "nova-3"},
			want: []string{"wss://api.deepgram.com/v1/listen?", "model=nova-3"},
		},
		{
			name:     "http scheme rejected",
			endpoint: "https://api.deepgram.com/v1/listen",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.endpoint, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestEncodingFor(t *testing.T) {
	assert.Equal(t, "linear16", EncodingFor("s16"))
	assert.Equal(t, "linear32", EncodingFor("f32"))
	assert.Equal(t, "", EncodingFor("s24"))
}

// mockServer creates a WebSocket server standing in for the transcription service.
func mockServer(t *testing.T, handler func(*websocket.Conn, *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"token"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type recorder struct {
	events chan Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan Event, 32)}
}

func (r *recorder) on(ev Event) { r.events <- ev }

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(wait):
	}
}

func TestOpenSendReceive(t *testing.T) {
	received := make(chan []byte, 4)
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		assert.Equal(t, "token", c.Subprotocol())
		for _, msg := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			typ, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.BinaryMessage {
				received <- data
			}
		}
	})

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "secret"}, 0).Open(context.Background(), rec.on)
	defer conn.Close()

	assert.Equal(t, Opened, rec.next(t).Kind)
	assert.True(t, conn.Ready())

	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		ev := rec.next(t)
		require.Equal(t, Message, ev.Kind)
		assert.JSONEq(t, want, string(ev.Data))
	}

	require.True(t, conn.Send([]byte{1, 2, 3}))
	select {
	case data := <-received:
		assert.Equal(t, []byte{1, 2, 3}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive audio")
	}
}

func TestSendBeforeOpenIsDropped(t *testing.T) {
	release := make(chan struct{})
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		<-release
	})
	defer close(release)

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
	defer conn.Close()

	// The handshake is still running on another goroutine, or just finished.
	if !conn.Ready() {
		assert.False(t, conn.Send([]byte("early")))
	}
	assert.Equal(t, Opened, rec.next(t).Kind)
}

func TestDialFailureSurfacesAsEvent(t *testing.T) {
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {})

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{}, 0).Open(context.Background(), rec.on)
	defer conn.Close()

	ev := rec.next(t)
	assert.Equal(t, Error, ev.Kind)
	assert.Contains(t, ev.Err.Error(), "401")
	assert.False(t, conn.Send([]byte("x")))
}

func TestCloseIsIdempotent(t *testing.T) {
	closed := make(chan int, 1)
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		_, _, err := c.ReadMessage()
		if ce, ok := err.(*websocket.CloseError); ok {
			closed <- ce.Code
		}
	})

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
	require.Equal(t, Opened, rec.next(t).Kind)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.False(t, conn.Ready())
	assert.False(t, conn.Send([]byte("after close")))

	select {
	case code := <-closed:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not see close frame")
	}
	// A locally requested close is not reported back.
	rec.none(t, 50*time.Millisecond)
}

func TestCloseDuringDialDiscardsConnection(t *testing.T) {
	release := make(chan struct{})
	upgraded := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		upgrader := websocket.Upgrader{}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- struct{}{}
		c.ReadMessage()
		c.Close()
	}))
	defer srv.Close()
	defer close(release)

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.Close())

	rec.none(t, 100*time.Millisecond)
	assert.False(t, conn.Ready())
}

func TestRemoteCloseAndFailure(t *testing.T) {
	t.Run("normal closure", func(t *testing.T) {
		srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			c.ReadMessage()
		})
		rec := newRecorder()
		conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
		defer conn.Close()

		assert.Equal(t, Opened, rec.next(t).Kind)
		assert.Equal(t, Closed, rec.next(t).Kind)
		assert.False(t, conn.Ready())
	})

	t.Run("abrupt drop", func(t *testing.T) {
		srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
			c.UnderlyingConn().Close()
		})
		rec := newRecorder()
		conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
		defer conn.Close()

		assert.Equal(t, Opened, rec.next(t).Kind)
		ev := rec.next(t)
		assert.Equal(t, Error, ev.Kind)
		assert.Error(t, ev.Err)
	})
}

func TestFinalizeSendsCloseStream(t *testing.T) {
	got := make(chan closeStream, 1)
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		typ, data, err := c.ReadMessage()
		if err != nil || typ != websocket.TextMessage {
			return
		}
		var msg closeStream
		if json.Unmarshal(data, &msg) == nil {
			got <- msg
		}
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
	defer conn.Close()
	require.Equal(t, Opened, rec.next(t).Kind)

	require.NoError(t, conn.Finalize())
	select {
	case msg := <-got:
		assert.Equal(t, "CloseStream", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("CloseStream not received")
	}
	assert.Equal(t, Closed, rec.next(t).Kind)
	assert.NoError(t, conn.Finalize()) // no-op once closed
}

func TestConnectTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 30*time.Millisecond).Open(context.Background(), rec.on)
	defer conn.Close()

	ev := rec.next(t)
	assert.Equal(t, Error, ev.Kind)
}

func TestStalledPeerFailsWithoutBlockingSend(t *testing.T) {
	release := make(chan struct{})
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		// Upgrade, then never read.
		<-release
	})
	defer close(release)

	rec := newRecorder()
	client := NewClient(wsURL(srv), Credentials{Token: "k"}, 0)
	client.writeTimeout = 100 * time.Millisecond
	conn := client.Open(context.Background(), rec.on)
	defer conn.Close()
	require.Equal(t, Opened, rec.next(t).Kind)

	chunk := make([]byte, 1<<20)
	started := time.Now()
	for i := 0; i < 32; i++ {
		conn.Send(chunk)
	}
	assert.Less(t, time.Since(started), time.Second, "Send must not wait for the peer")

	ev := rec.next(t)
	assert.Equal(t, Error, ev.Kind)
	assert.False(t, conn.Ready())
}

func TestSendQueueDropsOldest(t *testing.T) {
	c := &Conn{
		out:    make(chan outbound, 2),
		logger: NewClient("ws://localhost", Credentials{}, 0).logger,
	}
	for _, s := range []string{"a", "b", "c"} {
		c.enqueue(outbound{kind: websocket.BinaryMessage, data: []byte(s)})
	}

	assert.Equal(t, "b", string((<-c.out).data))
	assert.Equal(t, "c", string((<-c.out).data))
}

func TestFinalizeQueuedBehindAudio(t *testing.T) {
	type frame struct {
		typ  int
		data string
	}
	frames := make(chan frame, 4)
	srv := mockServer(t, func(c *websocket.Conn, r *http.Request) {
		for {
			typ, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			frames <- frame{typ, string(data)}
		}
	})

	rec := newRecorder()
	conn := NewClient(wsURL(srv), Credentials{Token: "k"}, 0).Open(context.Background(), rec.on)
	defer conn.Close()
	require.Equal(t, Opened, rec.next(t).Kind)

	require.True(t, conn.Send([]byte("audio")))
	require.NoError(t, conn.Finalize())

	for _, want := range []frame{{websocket.BinaryMessage, "audio"}, {websocket.TextMessage, `{"type":"CloseStream"}`}} {
		select {
		case got := <-frames:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("frame not received")
		}
	}
}

func TestHandshakeTimeoutFollowsConnectTimeout(t *testing.T) {
	assert.Zero(t, NewClient("ws://localhost", Credentials{}, 0).dialer.HandshakeTimeout)
	assert.Equal(t, 3*time.Second, NewClient("ws://localhost", Credentials{}, 3*time.Second).dialer.HandshakeTimeout)
}
