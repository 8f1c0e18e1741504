package config

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/language"
	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

func (c *Config) Validate() error {
	if err := c.Recording.validate(); err != nil {
		return err
	}
	if err := c.Transcription.validate(); err != nil {
		return err
	}

	if err := c.Output.validate(); err != nil {
		return err
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	return nil
}

func (o OutputConfig) validate() error {
	switch o.Mode {
	case injection.ModeNone, injection.ModeClipboard, injection.ModeType, injection.ModeFallback:
	default:
		return fmt.Errorf("invalid output.mode: %s (must be none, clipboard, type, or fallback)", o.Mode)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("invalid output.timeout: %v", o.Timeout)
	}
	return nil
}

func (r RecordingConfig) validate() error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", r.SampleRate)
	}
	if r.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", r.Channels)
	}
	if r.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", r.BufferSize)
	}
	if r.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}
	if transport.EncodingFor(r.Format) == "" {
		return fmt.Errorf("unsupported recording.format: %s (must be s16, f32, alaw, or ulaw)", r.Format)
	}
	if r.ChunkInterval < 0 {
		return fmt.Errorf("invalid recording.chunk_interval: %v", r.ChunkInterval)
	}
	return nil
}

func (t TranscriptionConfig) validate() error {
	if t.Endpoint != "" {
		u, err := url.Parse(t.Endpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("invalid transcription.endpoint: %s (must be a ws:// or wss:// URL)", t.Endpoint)
		}
	}
	if t.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	if !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %s", t.Language)
	}
	if t.DrainTimeout < 0 {
		return fmt.Errorf("invalid transcription.drain_timeout: %v", t.DrainTimeout)
	}
	if t.ConnectTimeout < 0 {
		return fmt.Errorf("invalid transcription.connect_timeout: %v", t.ConnectTimeout)
	}
	return nil
}

// RequireAPIKey reports a missing credential; recording cannot start without one.
func (c *Config) RequireAPIKey() error {
	if c.Transcription.APIKey == "" {
		return fmt.Errorf("API key required: not found in config (transcription.api_key) or environment (%s_API_KEY, DEEPGRAM_API_KEY)", envPrefix)
	}
	return nil
}
