package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "HYPRSCRIBE"

var logger = log.Default().WithPrefix("config")

// envOverrides are read from HYPRSCRIBE_* variables and win over the file.
type envOverrides struct {
	APIKey      string `envconfig:"API_KEY"`
	Endpoint    string `envconfig:"ENDPOINT"`
	Model       string `envconfig:"MODEL"`
	Language    string `envconfig:"LANGUAGE"`
	Device      string `envconfig:"DEVICE"`
	OutputMode  string `envconfig:"OUTPUT_MODE"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// serviceEnv is the service's conventional variable, used only when no key is configured.
type serviceEnv struct {
	APIKey string `envconfig:"DEEPGRAM_API_KEY"`
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "hyprscribe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the user config file, falling back to defaults when it does not exist.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile decodes path over the defaults and applies the environment.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := toml.DecodeFile(path, config); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logger.Debugf("no config at %s, using defaults", path)
	} else {
		logger.Debugf("loaded configuration from %s", path)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	var svc serviceEnv
	if err := envconfig.Process("", &svc); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = svc.APIKey
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	override(&c.Transcription.APIKey, env.APIKey)
	override(&c.Transcription.Endpoint, env.Endpoint)
	override(&c.Transcription.Model, env.Model)
	override(&c.Transcription.Language, env.Language)
	override(&c.Recording.Device, env.Device)
	override(&c.Output.Mode, env.OutputMode)
	override(&c.Log.Level, env.LogLevel)
	override(&c.Metrics.Addr, env.MetricsAddr)
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Save writes c to path. The API key is never written; it belongs in the environment.
func Save(c *Config, path string) error {
	out := *c
	out.Transcription.APIKey = ""

	var buf bytes.Buffer
	buf.WriteString("# Hyprscribe Configuration\n")
	buf.WriteString("# Changes are applied to the next recording without restarting the daemon.\n")
	buf.WriteString("# Set the API key with HYPRSCRIBE_API_KEY or DEEPGRAM_API_KEY.\n\n")
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	logger.Infof("configuration written to %s", path)
	return nil
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return Save(DefaultConfig(), configPath)
}
