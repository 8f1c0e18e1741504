package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

func TestFormValuesRoundTrip(t *testing.T) {
	base := config.DefaultConfig()
	base.Transcription.Keywords = []string{"hyprland", "pipewire"}

	v := valuesFrom(base)
	assert.Equal(t, "hyprland, pipewire", v.keywords)

	cfg, err := v.apply(base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
	assert.NotSame(t, base, cfg)
}

func TestFormValuesApply(t *testing.T) {
	base := config.DefaultConfig()
	v := valuesFrom(base)
	v.device = "  alsa_input.usb  "
	v.model = "nova-2"
	v.keywords = " kubectl ,, etcd,"
	v.drainTimeout = "2s"
	v.connectTimeout = "750ms"
	v.notifyType = "log"
	v.outputMode = "fallback"
	v.logLevel = "debug"

	cfg, err := v.apply(base)
	require.NoError(t, err)
	assert.Equal(t, "alsa_input.usb", cfg.Recording.Device)
	assert.Equal(t, "nova-2", cfg.Transcription.Model)
	assert.Equal(t, []string{"kubectl", "etcd"}, cfg.Transcription.Keywords)
	assert.Equal(t, 2*time.Second, cfg.Transcription.DrainTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Transcription.ConnectTimeout)
	assert.Equal(t, "log", cfg.Notifications.Type)
	assert.Equal(t, "fallback", cfg.Output.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.Equal(t, "nova-3", base.Transcription.Model, "base config untouched")
}

func TestFormValuesApplyRejectsBadInput(t *testing.T) {
	base := config.DefaultConfig()

	v := valuesFrom(base)
	v.drainTimeout = "soon"
	_, err := v.apply(base)
	assert.Error(t, err)

	v = valuesFrom(base)
	v.connectTimeout = "-1s"
	_, err = v.apply(base)
	assert.Error(t, err, "negative timeouts fail validation")
}

func TestValidDuration(t *testing.T) {
	assert.NoError(t, validDuration("0s"))
	assert.NoError(t, validDuration(" 500ms "))
	assert.Error(t, validDuration("-1s"))
	assert.Error(t, validDuration("five"))
}

func TestRenderState(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want string
	}{
		{"connecting", session.Snapshot{State: session.Connecting}, "connecting"},
		{"recording", session.Snapshot{State: session.Recording}, "recording"},
		{"stopping", session.Snapshot{State: session.Stopping}, "finishing"},
		{"idle", session.Snapshot{State: session.Idle}, "stopped"},
		{"failed", session.Snapshot{State: session.Idle, LastError: session.DeviceNotFound}, "No microphone found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, RenderState(tt.snap), tt.want)
		})
	}
}

func TestRenderTranscript(t *testing.T) {
	assert.Contains(t, RenderTranscript(nil), "No speech")
	assert.Contains(t, RenderTranscript([]string{"hello", "world"}), "hello world")
	assert.Contains(t, RenderSegment(transcript.Segment{Text: "hi"}), "hi")
	assert.Contains(t, Logo(), "|___/")
}

func TestLanguageOptions(t *testing.T) {
	values := func(current string) []string {
		var out []string
		for _, o := range languageOptions(current) {
			out = append(out, o.Value)
		}
		return out
	}

	en := values("en")
	assert.Equal(t, "", en[0], "service default first")
	assert.Contains(t, en, "multi")
	assert.NotContains(t, en, "en-IE")

	assert.Contains(t, values("en-IE"), "en-IE", "unlisted regional tag stays selectable")
}
