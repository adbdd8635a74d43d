package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend type names accepted in the configuration.
const (
	BackendWindowed = "windowed"
	BackendStream   = "stream"
)

// Config represents the complete service configuration.
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Backend  BackendConfig  `yaml:"backend"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Relay    RelayConfig    `yaml:"relay"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AudioConfig contains capture parameters.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"` // Hz, default 16000
	Device     string `yaml:"device"`      // capture device name, empty for default
	Stdin      bool   `yaml:"stdin"`       // read raw PCM from stdin instead of a device
}

// BackendConfig selects and configures the transcription backend.
type BackendConfig struct {
	Type       string           `yaml:"type"` // "windowed" or "stream"
	Windowed   WindowedConfig   `yaml:"windowed"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Stream     StreamConfig     `yaml:"stream"`
}

// WindowedConfig contains windowed backend parameters.
type WindowedConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"` // ring capacity, default 5
	MinSeconds    float64 `yaml:"min_seconds"`    // minimum audio per call, default 1
	VADThreshold  float64 `yaml:"vad_threshold"`  // energy gate threshold, 0 disables the gate
}

// RecognizerConfig contains the HTTP recognition server parameters used by
// the windowed backend. The API key comes from the KIRO_RECOGNIZER_API_KEY
// environment variable.
type RecognizerConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Language     string `yaml:"language"`
	Model        string `yaml:"model"`
	Timeout      int    `yaml:"timeout"` // seconds
	MaxRetries   int    `yaml:"max_retries"`
	MinSilenceMS int    `yaml:"min_silence_ms"`
}

// StreamConfig contains the websocket streaming backend parameters. The API
// key comes from the KIRO_STREAM_API_KEY environment variable.
type StreamConfig struct {
	URL             string `yaml:"url"`
	SendQueueSize   int    `yaml:"send_queue_size"`
	ResultQueueSize int    `yaml:"result_queue_size"`
}

// DispatchConfig contains dispatch loop parameters.
type DispatchConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms"` // default 500
}

// RelayConfig contains the tmux delivery target.
type RelayConfig struct {
	Target string `yaml:"target"` // session:window.pane
}

// HTTPConfig contains the status/metrics HTTP server configuration.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// applyDefaults fills in zero values before validation.
func (c *Config) applyDefaults() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Backend.Type == "" {
		c.Backend.Type = BackendWindowed
	}
	if c.Backend.Windowed.WindowSeconds == 0 {
		c.Backend.Windowed.WindowSeconds = 5
	}
	if c.Backend.Windowed.MinSeconds == 0 {
		c.Backend.Windowed.MinSeconds = 1
	}
	if c.Backend.Recognizer.Timeout == 0 {
		c.Backend.Recognizer.Timeout = 30
	}
	if c.Backend.Recognizer.MinSilenceMS == 0 {
		c.Backend.Recognizer.MinSilenceMS = 500
	}
	if c.Backend.Stream.SendQueueSize == 0 {
		c.Backend.Stream.SendQueueSize = 256
	}
	if c.Backend.Stream.ResultQueueSize == 0 {
		c.Backend.Stream.ResultQueueSize = 10
	}
	if c.Dispatch.PollIntervalMS == 0 {
		c.Dispatch.PollIntervalMS = 500
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8090
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks capture parameters.
func (c *AudioConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	return nil
}

// Validate checks the backend selection and its sub-configuration.
func (c *BackendConfig) Validate() error {
	switch c.Type {
	case BackendWindowed:
		if c.Recognizer.Endpoint == "" {
			return fmt.Errorf("recognizer endpoint is required for the windowed backend")
		}
		if c.Windowed.WindowSeconds < c.Windowed.MinSeconds {
			return fmt.Errorf("window_seconds (%.1f) must be at least min_seconds (%.1f)",
				c.Windowed.WindowSeconds, c.Windowed.MinSeconds)
		}
		if c.Windowed.VADThreshold < 0 || c.Windowed.VADThreshold >= 1 {
			return fmt.Errorf("vad_threshold must be in [0, 1), got %f", c.Windowed.VADThreshold)
		}
		if c.Recognizer.MaxRetries < 0 {
			return fmt.Errorf("max_retries cannot be negative, got %d", c.Recognizer.MaxRetries)
		}
	case BackendStream:
		if c.Stream.URL == "" {
			return fmt.Errorf("stream url is required for the stream backend")
		}
	default:
		return fmt.Errorf("unknown backend type %q (supported: %s, %s)",
			c.Type, BackendWindowed, BackendStream)
	}
	return nil
}

// Validate checks dispatch loop parameters.
func (c *DispatchConfig) Validate() error {
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMS)
	}
	return nil
}

// Validate checks the HTTP server parameters.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Validate checks logging parameters.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

// GetPollInterval returns the dispatch poll interval as a duration.
func (c *DispatchConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// GetTimeoutDuration returns the recognizer timeout as a duration.
func (c *RecognizerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
