package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	c := Config{
		Audio: AudioConfig{SampleRate: 16000},
		Backend: BackendConfig{
			Type: BackendWindowed,
			Windowed: WindowedConfig{
				WindowSeconds: 5,
				MinSeconds:    1,
				VADThreshold:  0.01,
			},
			Recognizer: RecognizerConfig{
				Endpoint:     "http://localhost:9000/transcribe",
				Language:     "en",
				Timeout:      30,
				MaxRetries:   3,
				MinSilenceMS: 500,
			},
		},
		Dispatch: DispatchConfig{PollIntervalMS: 500},
		Relay:    RelayConfig{Target: "main:0.0"},
		HTTP:     HTTPConfig{Enabled: true, Address: "127.0.0.1", Port: 8090},
		Logging:  LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
	return c
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:   "valid windowed configuration",
			mutate: func(c *Config) {},
		},
		{
			name: "valid stream configuration",
			mutate: func(c *Config) {
				c.Backend.Type = BackendStream
				c.Backend.Stream = StreamConfig{URL: "wss://api.example.com/listen", SendQueueSize: 256, ResultQueueSize: 10}
			},
		},
		{
			name:        "invalid sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = -1 },
			expectError: true,
		},
		{
			name:        "unknown backend type",
			mutate:      func(c *Config) { c.Backend.Type = "telepathy" },
			expectError: true,
		},
		{
			name:        "windowed backend without recognizer endpoint",
			mutate:      func(c *Config) { c.Backend.Recognizer.Endpoint = "" },
			expectError: true,
		},
		{
			name: "window shorter than minimum",
			mutate: func(c *Config) {
				c.Backend.Windowed.WindowSeconds = 0.5
				c.Backend.Windowed.MinSeconds = 1
			},
			expectError: true,
		},
		{
			name:        "vad threshold out of range",
			mutate:      func(c *Config) { c.Backend.Windowed.VADThreshold = 1.5 },
			expectError: true,
		},
		{
			name: "stream backend without url",
			mutate: func(c *Config) {
				c.Backend.Type = BackendStream
				c.Backend.Stream.URL = ""
			},
			expectError: true,
		},
		{
			name:        "invalid poll interval",
			mutate:      func(c *Config) { c.Dispatch.PollIntervalMS = 0 },
			expectError: true,
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
		},
		{
			name: "http port ignored when disabled",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 70000
			},
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	content := `
audio:
  sample_rate: 16000
  device: "USB Microphone"
backend:
  type: windowed
  recognizer:
    endpoint: http://localhost:9000/transcribe
    language: en
dispatch:
  poll_interval_ms: 250
relay:
  target: "main:0.1"
logging:
  level: debug
  format: json
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Audio.Device != "USB Microphone" {
		t.Errorf("unexpected device: %q", config.Audio.Device)
	}
	if config.Dispatch.GetPollInterval() != 250*time.Millisecond {
		t.Errorf("unexpected poll interval: %v", config.Dispatch.GetPollInterval())
	}
	if config.Relay.Target != "main:0.1" {
		t.Errorf("unexpected relay target: %q", config.Relay.Target)
	}

	// Defaults filled in for omitted fields.
	if config.Backend.Windowed.WindowSeconds != 5 {
		t.Errorf("expected default window seconds, got %f", config.Backend.Windowed.WindowSeconds)
	}
	if config.Backend.Recognizer.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("expected default timeout, got %v", config.Backend.Recognizer.GetTimeoutDuration())
	}
	if config.Backend.Stream.ResultQueueSize != 10 {
		t.Errorf("expected default result queue size, got %d", config.Backend.Stream.ResultQueueSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("audio: [not: valid"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	content := `
backend:
  type: windowed
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for missing recognizer endpoint")
	}
}
