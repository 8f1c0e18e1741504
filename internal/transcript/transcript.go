package transcript

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/hyprscribe/internal/metrics"
)

// Result is one parsed message from the service, interim or final.
type Result struct {
	Type       string
	Text       string
	IsFinal    bool
	Start      float64
	Duration   float64
	Confidence float64
}

// Segment is a finalized piece of the transcript.
type Segment struct {
	Text       string
	Start      float64
	Duration   float64
	Confidence float64
}

// live results response (incoming); fields not listed are ignored
type resultMessage struct {
	Type     string         `json:"type"`
	Channel  *resultChannel `json:"channel,omitempty"`
	IsFinal  bool           `json:"is_final"`
	Start    float64        `json:"start"`
	Duration float64        `json:"duration"`
}

type resultChannel struct {
	Alternatives []resultAlternative `json:"alternatives"`
}

type resultAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

var logger = log.Default().WithPrefix("transcript")

// Parse decodes a service message. A message without the
// channel.alternatives[0].transcript path is an empty interim result; only
// input that is not a JSON object reports ok=false.
func Parse(raw []byte) (Result, bool) {
	var msg resultMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Result{}, false
	}

	res := Result{
		Type:     msg.Type,
		IsFinal:  msg.IsFinal,
		Start:    msg.Start,
		Duration: msg.Duration,
	}
	if msg.Channel != nil && len(msg.Channel.Alternatives) > 0 {
		alt := msg.Channel.Alternatives[0]
		res.Text = alt.Transcript
		res.Confidence = alt.Confidence
	}
	return res, true
}

// Ingest returns a segment for final, non-blank results and nothing otherwise.
// Malformed messages are dropped here and never escalated.
func Ingest(raw []byte) (Segment, bool) {
	res, ok := Parse(raw)
	if !ok {
		metrics.IncMalformedMessages()
		logger.Debugf("discarding malformed message (%d bytes)", len(raw))
		return Segment{}, false
	}
	if !res.IsFinal || strings.TrimSpace(res.Text) == "" {
		return Segment{}, false
	}
	return Segment{
		Text:       res.Text,
		Start:      res.Start,
		Duration:   res.Duration,
		Confidence: res.Confidence,
	}, true
}

// Transcript is an append-only ordered list of segments.
type Transcript struct {
	mu       sync.RWMutex
	segments []Segment
}

func (t *Transcript) Append(seg Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = append(t.segments, seg)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.segments)
}

// Texts returns a copy of the segment texts in arrival order.
func (t *Transcript) Texts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.segments))
	for i, s := range t.segments {
		out[i] = s.Text
	}
	return out
}

func (t *Transcript) Segments() []Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = nil
}

// String joins the segments with single spaces.
func (t *Transcript) String() string {
	return strings.Join(t.Texts(), " ")
}
