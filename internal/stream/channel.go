package stream

import "context"

// ChannelConfig describes how to open one transcription channel.
type ChannelConfig struct {
	// Model is the hosted model identifier (ignored by local backends).
	Model string

	// SystemInstruction is the language-specific transcription instruction
	// sent when the channel is established.
	SystemInstruction string

	// SampleRate is the rate of the PCM frames that will be sent.
	SampleRate int
}

// Event is one inbound message from a transcription channel.
//
// Text carries an incremental input-transcription fragment; fragments are
// append-only and concatenate in arrival order. TurnComplete marks a semantic
// boundary. Audio carries an inline model audio payload, which the protocol
// requires consuming even though dictation never plays it. Err reports a
// transport failure, after which the channel delivers no further events.
type Event struct {
	Text         string
	TurnComplete bool
	Audio        []byte
	Err          error
}

// Channel is one open bidirectional transcription connection. Implementations
// must deliver events in arrival order and close the Events channel when the
// connection ends.
type Channel interface {
	// Send transmits one encoded PCM frame tagged with its format descriptor.
	Send(frame []byte, mimeType string) error

	// Events returns the inbound event stream.
	Events() <-chan Event

	// Close releases the connection. Idempotent.
	Close() error
}

// Dialer establishes transcription channels. The remote implementation dials
// the hosted realtime endpoint; the local implementation wraps an on-device
// recognition engine.
type Dialer interface {
	Dial(ctx context.Context, cfg ChannelConfig) (Channel, error)
}
