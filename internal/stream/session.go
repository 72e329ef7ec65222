package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marlowe/dicta/internal/metrics"
)

// Handlers receives session events. All callbacks are invoked from the
// session's event loop, one at a time, in arrival order.
type Handlers struct {
	// OnText is invoked with each incremental transcript fragment.
	OnText func(fragment string)

	// OnTurnComplete is invoked when the remote signals the end of an
	// utterance.
	OnTurnComplete func()

	// OnAudio is invoked with decoded model audio. May be nil; the session
	// then consumes and discards the payload.
	OnAudio func(pcm []byte)

	// OnError is invoked on transport failure. The error is fatal to the
	// session; the consumer must close it and tear down capture.
	OnError func(err error)
}

// Session owns the lifecycle of one transcription connection.
//
// A session starts pending: Open launches the dial asynchronously, and frames
// sent before the dial resolves are queued in capture order and flushed the
// moment the channel is ready. No frame is dropped or reordered across the
// pending/ready transition.
type Session struct {
	mu      sync.Mutex
	channel Channel
	dialErr error
	ready   chan struct{}
	pending []queuedFrame
	closed  bool

	handlers Handlers
	logger   *slog.Logger
	met      *metrics.Metrics
	loopDone chan struct{}
	loopOnce sync.Once
}

type queuedFrame struct {
	data []byte
	mime string
}

// Manager opens streaming transcription sessions against a dialer.
type Manager struct {
	dialer Dialer
	logger *slog.Logger
	met    *metrics.Metrics
}

// NewManager creates a session manager. The logger and metrics may be nil.
func NewManager(dialer Dialer, logger *slog.Logger, met *metrics.Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dialer: dialer, logger: logger, met: met}
}

// Open starts establishing a channel and returns the session handle
// immediately. Frames may be sent right away; they are queued until the
// channel resolves. A dial failure is reported through Handlers.OnError.
func (m *Manager) Open(ctx context.Context, cfg ChannelConfig, handlers Handlers) *Session {
	s := &Session{
		ready:    make(chan struct{}),
		loopDone: make(chan struct{}),
		handlers: handlers,
		logger:   m.logger,
		met:      m.met,
	}

	go func() {
		ch, err := m.dialer.Dial(ctx, cfg)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			// Close raced the dial; release the channel rather than leak it
			if err == nil {
				ch.Close()
			}
			close(s.ready)
			s.finishLoop()
			return
		}

		if err != nil {
			s.dialErr = fmt.Errorf("failed to open transcription channel: %w", err)
			s.pending = nil
			s.mu.Unlock()
			close(s.ready)
			s.finishLoop()
			if handlers.OnError != nil {
				handlers.OnError(s.dialErr)
			}
			return
		}

		s.channel = ch
		queued := s.pending
		s.pending = nil

		// Flush queued frames in capture order before marking ready, so
		// frames sent concurrently cannot overtake them
		for _, f := range queued {
			if sendErr := ch.Send(f.data, f.mime); sendErr != nil {
				s.logger.Warn("dropping queued frame", slog.String("error", sendErr.Error()))
				break
			}
			if s.met != nil {
				s.met.PCMBytesStreamed.Add(float64(len(f.data)))
			}
		}
		s.mu.Unlock()
		close(s.ready)

		if s.met != nil {
			s.met.SessionsOpened.Inc()
			s.met.ActiveSessions.Inc()
		}

		s.eventLoop(ch)
	}()

	return s
}

// SendFrame delivers one encoded PCM frame to the channel, queueing it if the
// channel is still opening. Best-effort: sends after close or after a dial
// failure are silently dropped.
func (s *Session) SendFrame(frame []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.dialErr != nil {
		return nil
	}

	if s.channel == nil {
		buf := make([]byte, len(frame))
		copy(buf, frame)
		s.pending = append(s.pending, queuedFrame{data: buf, mime: mimeType})
		return nil
	}

	if err := s.channel.Send(frame, mimeType); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	if s.met != nil {
		s.met.PCMBytesStreamed.Add(float64(len(frame)))
	}
	return nil
}

// Close releases the channel. If the dial is still pending it is awaited
// first, then closed, so an in-flight open is never abandoned. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	// Wait for a pending dial to resolve before closing
	<-s.ready

	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()

	if ch == nil {
		return nil
	}

	err := ch.Close()
	<-s.loopDone

	if s.met != nil {
		s.met.ActiveSessions.Dec()
	}
	if err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	return nil
}

func (s *Session) finishLoop() {
	s.loopOnce.Do(func() { close(s.loopDone) })
}

// eventLoop dispatches inbound channel events to the handlers until the
// channel's event stream closes.
func (s *Session) eventLoop(ch Channel) {
	defer s.finishLoop()

	for ev := range ch.Events() {
		if ev.Err != nil {
			s.logger.Error("channel error", slog.String("error", ev.Err.Error()))
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			// Mark the loop finished before dispatching, so the error
			// handler may call Close without deadlocking
			s.finishLoop()
			if !closed && s.handlers.OnError != nil {
				s.handlers.OnError(ev.Err)
			}
			return
		}

		if ev.Text != "" && s.handlers.OnText != nil {
			s.handlers.OnText(ev.Text)
		}
		if len(ev.Audio) > 0 && s.handlers.OnAudio != nil {
			s.handlers.OnAudio(ev.Audio)
		}
		if ev.TurnComplete {
			if s.met != nil {
				s.met.TurnsCompleted.Inc()
			}
			if s.handlers.OnTurnComplete != nil {
				s.handlers.OnTurnComplete()
			}
		}
	}
}
