package config

import (
	"time"

	"github.com/leonardotrapani/hyprscribe/internal/transport"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:    16000,
			Channels:      1,
			Format:        "s16",
			BufferSize:    8192,
			Device:        "",
			ChunkInterval: 250 * time.Millisecond,
		},
		Transcription: TranscriptionConfig{
			Endpoint:       transport.DefaultEndpoint,
			Model:          "nova-3",
			Language:       "en",
			InterimResults: true,
			SmartFormat:    true,
			Punctuate:      true,
		},
		Output: OutputConfig{
			Mode:             "none",
			RestoreClipboard: true,
			Timeout:          5 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
