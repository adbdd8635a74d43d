package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// FrameFunc receives one capture frame of normalized mono samples. It is
// invoked from the capture context and must not block.
type FrameFunc func(samples []float32)

// Source produces a stream of audio frames through a FrameFunc callback.
type Source interface {
	Start() error
	Stop() error
}

// InputDevice describes one capture device candidate.
type InputDevice struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// ListInputDevices enumerates the available capture devices.
func ListInputDevices() ([]InputDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]InputDevice, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, InputDevice{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// DeviceSource captures microphone audio through malgo. Frames are delivered
// as normalized float32 samples at the configured rate.
type DeviceSource struct {
	deviceName string
	sampleRate int
	frames     FrameFunc
	logger     *slog.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// NewDeviceSource creates a capture source for the named device. An empty
// name selects the system default capture device.
func NewDeviceSource(deviceName string, sampleRate int, frames FrameFunc, logger *slog.Logger) *DeviceSource {
	return &DeviceSource{
		deviceName: deviceName,
		sampleRate: sampleRate,
		frames:     frames,
		logger:     logger,
	}
}

// Start opens the capture device and begins delivering frames. Idempotent.
func (s *DeviceSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(s.sampleRate)

	if s.deviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			_ = ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("failed to enumerate capture devices: %w", err)
		}
		found := false
		for i := range infos {
			if infos[i].Name() == s.deviceName {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			_ = ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("capture device %q not found", s.deviceName)
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			s.frames(BytesToSamples(inputSamples))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	s.ctx = ctx
	s.device = device
	s.started = true

	s.logger.Info("Audio capture started",
		slog.String("device", s.deviceName),
		slog.Int("sample_rate", s.sampleRate),
	)
	return nil
}

// Stop halts capture and releases the device and context. Safe to call
// repeatedly and before Start.
func (s *DeviceSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}

	s.logger.Info("Audio capture stopped", slog.String("device", s.deviceName))
	return nil
}
