package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_sessions_started_total",
		Help: "Recording sessions started",
	})

	sessionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyprscribe_sessions_failed_total",
		Help: "Recording sessions torn down by an error, by error kind",
	}, []string{"kind"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyprscribe_active_sessions",
		Help: "Sessions currently connecting, recording or stopping",
	})

	chunksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_chunks_sent_total",
		Help: "Audio chunks written to the streaming connection",
	})

	chunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_chunks_dropped_total",
		Help: "Audio chunks dropped because the connection was not open",
	})

	bytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_audio_bytes_sent_total",
		Help: "Audio bytes written to the streaming connection",
	})

	segmentsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_segments_appended_total",
		Help: "Final transcript segments appended",
	})

	malformedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyprscribe_malformed_messages_total",
		Help: "Inbound service messages that could not be parsed",
	})

	connectLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyprscribe_connect_latency_seconds",
		Help:    "Time to establish the streaming connection",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})
)

func IncSessionsStarted() { sessionsStarted.Inc() }
func IncSessionsFailed(kind string) { sessionsFailed.WithLabelValues(kind).Inc() }
func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }
func IncSegmentsAppended() { segmentsAppended.Inc() }
func IncMalformedMessages() { malformedMessages.Inc() }
func IncChunksDropped() { chunksDropped.Inc() }
func ObserveConnectLatency(d time.Duration) { connectLatency.Observe(d.Seconds()) }

func RecordChunkSent(n int) {
	chunksSent.Inc()
	bytesSent.Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Default().WithPrefix("metrics").Infof("serving on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
