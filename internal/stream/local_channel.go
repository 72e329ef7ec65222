package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/marlowe/dicta/internal/stt"
)

// LocalDialer opens channels backed by an on-device recognition engine, for
// dictation without the hosted service. Cumulative partial results from the
// engine are diffed into the append-only fragments the channel contract
// requires; a final result emits the outstanding fragment and then a turn
// boundary.
type LocalDialer struct {
	modelPath string
}

// NewLocalDialer creates a dialer that loads the model at the given path on
// each Dial.
func NewLocalDialer(modelPath string) *LocalDialer {
	return &LocalDialer{modelPath: modelPath}
}

// Dial initializes the engine for one session.
func (d *LocalDialer) Dial(ctx context.Context, cfg ChannelConfig) (Channel, error) {
	engine := stt.NewVoskEngine()
	engineCfg := stt.DefaultConfig(d.modelPath)
	if cfg.SampleRate > 0 {
		engineCfg.SampleRate = cfg.SampleRate
	}
	if err := engine.Initialize(engineCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize local engine: %w", err)
	}
	return NewLocalChannel(engine), nil
}

// LocalChannel adapts an stt.Engine to the Channel contract.
type LocalChannel struct {
	mu      sync.Mutex
	engine  stt.Engine
	events  chan Event
	emitted string // fragments emitted for the current utterance
	closed  bool
}

// NewLocalChannel wraps an initialized engine. The channel owns the engine
// and closes it on Close.
func NewLocalChannel(engine stt.Engine) *LocalChannel {
	return &LocalChannel{
		engine: engine,
		events: make(chan Event, 64),
	}
}

// Send feeds one PCM frame to the engine and emits any resulting fragments.
func (c *LocalChannel) Send(frame []byte, mimeType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	result, err := c.engine.ProcessAudio(context.Background(), frame)
	if err != nil {
		return fmt.Errorf("local engine failed: %w", err)
	}
	if result == nil || result.Text == "" {
		return nil
	}

	if result.Partial {
		c.emitFragment(result.Text)
		return nil
	}

	// Utterance complete: flush whatever the final adds, then the boundary
	c.emitFragment(result.Text)
	c.events <- Event{Text: " ", TurnComplete: true}
	c.emitted = ""
	return nil
}

// emitFragment emits the portion of cumulative text not yet delivered.
// Mid-utterance revisions that are not pure extensions are held back until
// the text extends again; fragments stay append-only.
func (c *LocalChannel) emitFragment(cumulative string) {
	if !strings.HasPrefix(cumulative, c.emitted) {
		return
	}
	delta := cumulative[len(c.emitted):]
	if delta == "" {
		return
	}
	c.emitted = cumulative
	c.events <- Event{Text: delta}
}

// Events returns the inbound event stream.
func (c *LocalChannel) Events() <-chan Event {
	return c.events
}

// Close finalizes the current utterance and releases the engine. Idempotent.
func (c *LocalChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	// Drain the final result so trailing speech is not lost
	if result, err := c.engine.FinalResult(); err == nil && result.Text != "" {
		c.emitFragment(result.Text)
		c.events <- Event{TurnComplete: true}
	}

	err := c.engine.Close()
	close(c.events)
	if err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}
