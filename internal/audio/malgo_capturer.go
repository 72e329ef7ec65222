package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements the Capturer interface using malgo
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	// selectedID pins the resolved device identifier for the lifetime of
	// the device config that points into it
	selectedID malgo.DeviceID
	sink       FrameFunc
	latest     []float32
	running    bool
	paused     bool
	mu         sync.RWMutex
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewMalgoCapturer creates a new malgo-based microphone capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	return &MalgoCapturer{
		config:   config,
		stopChan: make(chan struct{}),
	}, nil
}

// SetSink registers the frame consumer. Must be called before Start.
func (m *MalgoCapturer) SetSink(sink FrameFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// Start acquires the default (or configured) capture device and begins
// invoking the sink once per device chunk
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16 // 16-bit signed integer
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.ChunkFrames

	if m.config.DeviceID != "" {
		if err := m.selectDevice(&deviceConfig); err != nil {
			m.malgoContext.Uninit()
			m.malgoContext.Free()
			m.malgoContext = nil
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return err
		}
	}

	// Data callback - the sink runs synchronously here, so a frame is fully
	// consumed before the device delivers the next one
	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		frame, err := DecodePCM16(pInputSamples)
		if err != nil {
			return
		}

		m.mu.Lock()
		m.latest = frame
		sink := m.sink
		m.mu.Unlock()

		if sink != nil {
			sink(frame)
		}
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.malgoContext = nil
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.device = nil
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.malgoContext = nil
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to start device: %w", err)
	}

	// Stop capture if the context is cancelled while recording
	go func() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// selectDevice resolves the configured device identifier and points the
// device config at it.
func (m *MalgoCapturer) selectDevice(deviceConfig *malgo.DeviceConfig) error {
	infos, err := m.malgoContext.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}

	idx, err := matchDevice(describeDevices(infos), m.config.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to resolve capture device: %w", err)
	}

	m.selectedID = infos[idx].ID
	deviceConfig.Capture.DeviceID = m.selectedID.Pointer()
	return nil
}

// Pause detaches the device callback without releasing the device. The
// latest visualization frame is cleared so consumers can tell "paused" apart
// from "receiving silence".
func (m *MalgoCapturer) Pause() error {
	m.mu.Lock()
	if !m.running || m.paused {
		m.mu.Unlock()
		return nil
	}
	m.paused = true
	m.latest = []float32{}
	device := m.device
	m.mu.Unlock()

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to pause device: %w", err)
	}
	return nil
}

// Resume reattaches the device callback after a Pause.
func (m *MalgoCapturer) Resume() error {
	m.mu.Lock()
	if !m.running || !m.paused {
		m.mu.Unlock()
		return nil
	}
	m.paused = false
	device := m.device
	m.mu.Unlock()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to resume device: %w", err)
	}
	return nil
}

// Stop stops the device, releases it, and tears down the audio context.
// Each release step checks liveness first, so Stop is idempotent.
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.paused = false
	m.latest = []float32{}
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stopChan) })

	var stopErr error
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
		m.device = nil
	}

	if m.malgoContext != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.malgoContext = nil
	}

	return stopErr
}

// LatestFrame returns the most recently captured frame, or an empty slice
// while paused or stopped.
func (m *MalgoCapturer) LatestFrame() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
