package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(text string, final bool) []byte {
	if final {
		return []byte(`{"type":"Results","channel":{"alternatives":[{"transcript":"` + text + `","confidence":0.9}]},"is_final":true,"start":1.5,"duration":0.75}`)
	}
	return []byte(`{"type":"Results","channel":{"alternatives":[{"transcript":"` + text + `"}]},"is_final":false}`)
}

func ingestAll(msgs ...[]byte) *Transcript {
	var tr Transcript
	for _, m := range msgs {
		if seg, ok := Ingest(m); ok {
			tr.Append(seg)
		}
	}
	return &tr
}

func TestIngestScenario(t *testing.T) {
	tr := ingestAll(
		result("hel", false),
		result("hello", true),
		result("", true),
		result("world", true),
	)
	assert.Equal(t, []string{"hello", "world"}, tr.Texts())
	assert.Equal(t, "hello world", tr.String())
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "final", raw: string(result("hello", true)), want: "hello", ok: true},
		{name: "interim", raw: string(result("hello", false))},
		{name: "empty final", raw: string(result("", true))},
		{name: "whitespace final", raw: string(result("   ", true))},
		{name: "text kept as received", raw: string(result(" padded ", true)), want: " padded ", ok: true},
		{name: "missing channel", raw: `{"type":"Metadata","is_final":true}`},
		{name: "empty alternatives", raw: `{"channel":{"alternatives":[]},"is_final":true}`},
		{name: "missing is_final", raw: `{"channel":{"alternatives":[{"transcript":"hi"}]}}`},
		{name: "not json", raw: `not json`},
		{name: "json array", raw: `[1,2,3]`},
		{name: "wrong type for is_final", raw: `{"channel":{"alternatives":[{"transcript":"hi"}]},"is_final":"yes"}`},
		{name: "wrong type for channel", raw: `{"channel":"nope","is_final":true}`},
		{name: "empty input", raw: ``},
		{name: "uses first alternative", raw: `{"channel":{"alternatives":[{"transcript":"a"},{"transcript":"b"}]},"is_final":true}`, want: "a", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := Ingest([]byte(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, seg.Text)
		})
	}
}

func TestParse(t *testing.T) {
	res, ok := Parse(result("hello", true))
	require.True(t, ok)
	assert.Equal(t, "Results", res.Type)
	assert.Equal(t, "hello", res.Text)
	assert.True(t, res.IsFinal)
	assert.InDelta(t, 1.5, res.Start, 1e-9)
	assert.InDelta(t, 0.75, res.Duration, 1e-9)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)

	res, ok = Parse([]byte(`{}`))
	require.True(t, ok)
	assert.Empty(t, res.Text)
	assert.False(t, res.IsFinal)

	_, ok = Parse([]byte(`{`))
	assert.False(t, ok)
}

func TestInterimNeverProducesSegment(t *testing.T) {
	var msgs [][]byte
	for _, w := range []string{"a", "ab", "abc", "abcd"} {
		msgs = append(msgs, result(w, false))
	}
	tr := ingestAll(msgs...)
	assert.Zero(t, tr.Len())
}

func TestTranscriptCopiesAndReset(t *testing.T) {
	var tr Transcript
	tr.Append(Segment{Text: "one"})
	tr.Append(Segment{Text: "two"})

	texts := tr.Texts()
	texts[0] = "mutated"
	assert.Equal(t, []string{"one", "two"}, tr.Texts())

	segs := tr.Segments()
	require.Len(t, segs, 2)
	segs[1].Text = "mutated"
	assert.Equal(t, "two", tr.Segments()[1].Text)

	tr.Reset()
	assert.Zero(t, tr.Len())
	assert.Equal(t, "", tr.String())
	assert.Equal(t, []string{}, tr.Texts())
}
