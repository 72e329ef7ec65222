package audio

import "context"

// CaptureConfig holds configuration for microphone capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	// 16000 is what the streaming transcription channel expects
	SampleRate uint32

	// Channels is the number of audio channels (1 = mono)
	Channels uint32

	// ChunkFrames is the number of samples delivered per frame callback
	// (device-native chunking)
	ChunkFrames uint32

	// DeviceID is the audio device identifier
	// Empty string = use default device
	DeviceID string
}

// DefaultCaptureConfig returns the capture configuration used for dictation.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:  InputSampleRate,
		Channels:    1,
		ChunkFrames: 4096, // ~256ms at 16kHz
		DeviceID:    "",
	}
}

// FrameFunc consumes one captured frame of normalized float samples. It is
// invoked synchronously inside the device callback: a frame's sink completes
// before the next frame's callback begins.
type FrameFunc func(frame []float32)

// Capturer is the interface for microphone capture implementations.
//
// Lifecycle: Start acquires the device and begins producing frames; Pause
// detaches the callback without releasing the device; Resume reattaches;
// Stop releases everything. Stop is idempotent.
type Capturer interface {
	// Start acquires the device and begins frame production.
	// A permission or device failure leaves no partial state behind.
	Start(ctx context.Context) error

	// Pause stops frame production without releasing the device.
	Pause() error

	// Resume restarts frame production after a Pause.
	Resume() error

	// Stop detaches the callback, stops the device, and releases all
	// device resources. Safe to call more than once.
	Stop() error

	// SetSink registers the consumer for produced frames. Must be called
	// before Start.
	SetSink(sink FrameFunc)

	// LatestFrame returns the most recently captured frame for
	// visualization. After Pause it returns an empty slice, so a paused
	// display is distinguishable from captured silence.
	LatestFrame() []float32

	// IsRunning returns true between a successful Start and Stop.
	IsRunning() bool
}

// NewCapturer creates a new microphone capturer with the given configuration.
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
