package stt

import "context"

// Result represents a speech recognition result
type Result struct {
	// Text is the recognized text. For partial results this is the
	// cumulative text of the utterance so far.
	Text string

	// Partial indicates if this is a partial result (still processing)
	// or a final result (utterance complete)
	Partial bool

	// Confidence is the recognition confidence (0.0 to 1.0), only
	// populated for final results
	Confidence float64
}

// Config holds configuration for a local STT engine
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int
}

// Engine is the interface for local speech-to-text engines. It backs the
// offline streaming channel; the hosted channel does not use it.
type Engine interface {
	// Initialize initializes the engine with the given configuration
	Initialize(config Config) error

	// ProcessAudio processes 16-bit PCM audio and returns the current
	// recognition result
	ProcessAudio(ctx context.Context, audioData []byte) (*Result, error)

	// FinalResult returns the final result for the current utterance and
	// resets the recognizer
	FinalResult() (*Result, error)

	// Close releases resources
	Close() error
}

// DefaultConfig returns a default STT configuration
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		SampleRate: 16000,
	}
}
