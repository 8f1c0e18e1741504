package config

import (
	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate: c.Recording.SampleRate,
		Channels:   c.Recording.Channels,
		Format:     c.Recording.Format,
		BufferSize: c.Recording.BufferSize,
		Device:     c.Recording.Device,
	}
}

func (c *Config) ToListenOptions() transport.ListenOptions {
	return transport.ListenOptions{
		Model:          c.Transcription.Model,
		Language:       c.Transcription.Language,
		Encoding:       transport.EncodingFor(c.Recording.Format),
		SampleRate:     c.Recording.SampleRate,
		Channels:       c.Recording.Channels,
		InterimResults: c.Transcription.InterimResults,
		SmartFormat:    c.Transcription.SmartFormat,
		Punctuate:      c.Transcription.Punctuate,
		Keywords:       c.Transcription.Keywords,
	}
}

// ListenURL is the streaming endpoint with the listen options applied.
func (c *Config) ListenURL() (string, error) {
	return transport.BuildURL(c.Transcription.Endpoint, c.ToListenOptions())
}

func (c *Config) Credentials() transport.Credentials {
	return transport.Credentials{Token: c.Transcription.APIKey}
}

func (c *Config) ToSessionOptions() session.Options {
	return session.Options{
		ChunkInterval: c.Recording.ChunkInterval,
		DrainTimeout:  c.Transcription.DrainTimeout,
	}
}

// LogLevel falls back to info for an unknown level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Mode:             c.Output.Mode,
		RestoreClipboard: c.Output.RestoreClipboard,
		Timeout:          c.Output.Timeout,
	}
}
