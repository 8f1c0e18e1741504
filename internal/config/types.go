package config

import "time"

type Config struct {
	Recording     RecordingConfig     `toml:"recording"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Output        OutputConfig        `toml:"output"`
	Notifications NotificationsConfig `toml:"notifications"`
	Log           LogConfig           `toml:"log"`
	Metrics       MetricsConfig       `toml:"metrics"`
}

type RecordingConfig struct {
	SampleRate    int           `toml:"sample_rate"`
	Channels      int           `toml:"channels"`
	Format        string        `toml:"format"`
	BufferSize    int           `toml:"buffer_size"`
	Device        string        `toml:"device"`
	ChunkInterval time.Duration `toml:"chunk_interval"`
}

type TranscriptionConfig struct {
	Endpoint       string        `toml:"endpoint"`
	APIKey         string        `toml:"api_key"`
	Model          string        `toml:"model"`
	Language       string        `toml:"language"`
	InterimResults bool          `toml:"interim_results"`
	SmartFormat    bool          `toml:"smart_format"`
	Punctuate      bool          `toml:"punctuate"`
	Keywords       []string      `toml:"keywords"`
	DrainTimeout   time.Duration `toml:"drain_timeout"`   // 0 = close immediately on stop
	ConnectTimeout time.Duration `toml:"connect_timeout"` // 0 = no deadline
}

// OutputConfig controls where a finished transcript goes besides the daemon.
type OutputConfig struct {
	Mode             string        `toml:"mode"` // "none", "clipboard", "type", "fallback"
	RestoreClipboard bool          `toml:"restore_clipboard"`
	Timeout          time.Duration `toml:"timeout"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

type MetricsConfig struct {
	Addr string `toml:"addr"` // empty disables the endpoint
}
