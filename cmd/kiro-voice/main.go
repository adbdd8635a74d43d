package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/donnieprakoso/kiro-voice/internal/audio"
	"github.com/donnieprakoso/kiro-voice/internal/config"
	"github.com/donnieprakoso/kiro-voice/internal/dispatch"
	"github.com/donnieprakoso/kiro-voice/internal/metrics"
	"github.com/donnieprakoso/kiro-voice/internal/relay"
	"github.com/donnieprakoso/kiro-voice/internal/server"
	"github.com/donnieprakoso/kiro-voice/internal/session"
	"github.com/donnieprakoso/kiro-voice/internal/transcribe"
	"github.com/donnieprakoso/kiro-voice/internal/vad"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "kiro-voice"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	target := flag.String("target", "", "tmux target pane (session:window.pane), overrides config")
	stdinAudio := flag.Bool("stdin", false, "Read raw 16-bit PCM audio from stdin instead of a capture device")
	listDevices := flag.Bool("list-devices", false, "List available capture devices and exit")
	listPanes := flag.Bool("list-panes", false, "List tmux panes and exit")
	flag.Parse()

	// Secrets may live in a local .env during development
	_ = godotenv.Load()

	if *listDevices {
		printDevices()
		return
	}
	if *listPanes {
		printPanes()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *stdinAudio {
		cfg.Audio.Stdin = true
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Resolve the tmux target: flag wins over config, and an empty target is
	// a setup error, not a runtime one.
	paneTarget := *target
	if paneTarget == "" {
		paneTarget = cfg.Relay.Target
	}
	if paneTarget == "" {
		fmt.Fprintln(os.Stderr, "No tmux target configured. Pass -target or set relay.target. Available panes:")
		printPanes()
		os.Exit(1)
	}

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("backend", cfg.Backend.Type),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("device", deviceLabel(cfg)),
		slog.String("target", paneTarget),
		slog.Duration("poll_interval", cfg.Dispatch.GetPollInterval()),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Build the transcription backend selected by configuration
	backend, err := buildBackend(cfg, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create transcription backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Relay sink
	sink, err := relay.NewTmuxSink(paneTarget, logger)
	if err != nil {
		logger.Error("Failed to create tmux sink", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The source delivers frames into the loop; the loop is created after the
	// source, so the callback goes through this indirection. Frames only flow
	// once loop.Start has started the source.
	var loop *dispatch.Loop
	frames := func(samples []float32) {
		loop.HandleFrame(samples)
	}

	var source audio.Source
	if cfg.Audio.Stdin {
		source = audio.NewPipeSource(os.Stdin, frames, logger)
	} else {
		source = audio.NewDeviceSource(cfg.Audio.Device, cfg.Audio.SampleRate, frames, logger)
	}

	buffer := session.NewBuffer()
	loop = dispatch.NewLoop(
		dispatch.Config{PollInterval: cfg.Dispatch.GetPollInterval()},
		source, backend, buffer, sink, appMetrics, logger,
	)

	// Initialize HTTP status server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, loop, deviceLabel(cfg), paneTarget, cfg.Backend.Type)
	}

	// Start the dispatch loop (starts the backend and audio source)
	if err := loop.Start(); err != nil {
		logger.Error("Failed to start dispatch loop", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Read typed control commands from stdin, unless stdin carries audio
	if !cfg.Audio.Stdin {
		go readCommands(loop, logger)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully",
		slog.String("target", paneTarget),
		slog.String("backend", cfg.Backend.Type),
	)

	// Wait for a shutdown signal or a voice/typed exit command
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-loop.Done():
		logger.Info("Shutdown requested through the dispatch loop")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the dispatch loop (stops the source and backend)
	if err := loop.Stop(); err != nil {
		logger.Error("Error stopping dispatch loop", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}

// buildBackend constructs the transcription backend named in the config.
func buildBackend(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (transcribe.Backend, error) {
	switch cfg.Backend.Type {
	case config.BackendWindowed:
		client, err := transcribe.NewClient(transcribe.ClientConfig{
			Endpoint:     cfg.Backend.Recognizer.Endpoint,
			APIKey:       os.Getenv("KIRO_RECOGNIZER_API_KEY"),
			Language:     cfg.Backend.Recognizer.Language,
			Model:        cfg.Backend.Recognizer.Model,
			Timeout:      cfg.Backend.Recognizer.GetTimeoutDuration(),
			MaxRetries:   cfg.Backend.Recognizer.MaxRetries,
			MinSilenceMS: cfg.Backend.Recognizer.MinSilenceMS,
		})
		if err != nil {
			return nil, err
		}

		var gate *vad.Gate
		if cfg.Backend.Windowed.VADThreshold > 0 {
			gate, err = vad.NewGate(float32(cfg.Backend.Windowed.VADThreshold))
			if err != nil {
				return nil, err
			}
		}

		windowed := transcribe.NewWindowed(transcribe.WindowedConfig{
			SampleRate:    cfg.Audio.SampleRate,
			WindowSeconds: cfg.Backend.Windowed.WindowSeconds,
			MinSeconds:    cfg.Backend.Windowed.MinSeconds,
		}, client, gate, logger)
		windowed.SetMetrics(m)
		return windowed, nil

	case config.BackendStream:
		return transcribe.NewStream(transcribe.StreamConfig{
			URL:             cfg.Backend.Stream.URL,
			APIKey:          os.Getenv("KIRO_STREAM_API_KEY"),
			SampleRate:      cfg.Audio.SampleRate,
			SendQueueSize:   cfg.Backend.Stream.SendQueueSize,
			ResultQueueSize: cfg.Backend.Stream.ResultQueueSize,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
}

// readCommands turns typed lines into loop commands: "/mute" toggles muting,
// "/exit" shuts the service down.
func readCommands(loop *dispatch.Loop, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch scanner.Text() {
		case "/mute":
			loop.SubmitCommand(dispatch.CommandMute)
		case "/exit":
			loop.SubmitCommand(dispatch.CommandExit)
			return
		case "":
		default:
			logger.Warn("Unknown command", slog.String("line", scanner.Text()))
		}
	}
}

func deviceLabel(cfg *config.Config) string {
	if cfg.Audio.Stdin {
		return "stdin"
	}
	if cfg.Audio.Device == "" {
		return "default"
	}
	return cfg.Audio.Device
}

func printDevices() {
	devices, err := audio.ListInputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list capture devices: %v\n", err)
		os.Exit(1)
	}
	if len(devices) == 0 {
		fmt.Println("No capture devices found")
		return
	}
	for _, d := range devices {
		if d.IsDefault {
			fmt.Printf("%s (default)\n", d.Name)
		} else {
			fmt.Println(d.Name)
		}
	}
}

func printPanes() {
	panes, err := relay.ListPanes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list tmux panes: %v\n", err)
		os.Exit(1)
	}
	if len(panes) == 0 {
		fmt.Println("No tmux panes found (is tmux running?)")
		return
	}
	for _, p := range panes {
		fmt.Printf("%s  %s  %s\n", p.Target, p.Command, p.Title)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
