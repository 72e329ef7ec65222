// Package recorder implements the top-level dictation state machine: it owns
// the capture pipeline, the streaming transcription session, the transcript
// buffers, and the one-shot file transcription flow.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marlowe/dicta/internal/audio"
	"github.com/marlowe/dicta/internal/metrics"
	"github.com/marlowe/dicta/internal/note"
	"github.com/marlowe/dicta/internal/stream"
	"github.com/marlowe/dicta/internal/transcribe"
)

// State is the recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRequestingPermission
	StateRecording
	StatePaused
	StateStopping
	StateTranscribingFile
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingPermission:
		return "requesting-permission"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateTranscribingFile:
		return "transcribing-file"
	default:
		return "unknown"
	}
}

// Events receives recorder notifications. Callbacks are invoked outside the
// recorder's lock; any may be nil.
type Events struct {
	OnStateChange func(state State)
	OnElapsed     func(seconds int)
	OnLiveText    func(live string)
	OnSettled     func(settled string)
	OnVisualFrame func(frame []float32)
	OnError       func(err error)
}

// FileTranscriber issues one-shot transcription calls.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, data []byte, mediaType, language string) (string, error)
}

// Options configures a Recorder.
type Options struct {
	CaptureConfig audio.CaptureConfig

	// NewCapturer creates a capturer per session. Defaults to
	// audio.NewCapturer.
	NewCapturer func(audio.CaptureConfig) (audio.Capturer, error)

	// Streams opens streaming transcription sessions.
	Streams *stream.Manager

	// StreamModel is the hosted model identifier for the channel config.
	StreamModel string

	// Transcriber handles one-shot file transcription. May be nil if the
	// file flow is unused.
	Transcriber FileTranscriber

	// Language is the transcription language code.
	Language string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// session bundles the resources exclusively owned by one capture lifecycle:
// the device handle, the streaming channel, and the accumulation buffer.
type session struct {
	capturer audio.Capturer
	stream   *stream.Session
	frames   *audio.FrameBuffer
}

// Recorder is the top-level dictation controller. At most one session (live
// recording or file transcription) is active at a time; all start-type
// operations are no-ops unless the recorder is Idle.
type Recorder struct {
	opts   Options
	logger *slog.Logger
	met    *metrics.Metrics

	mu         sync.Mutex
	state      State
	sess       *session
	transcript string // settled model transcript
	live       string // fragments since the last turn boundary
	elapsed    int
	artifact   []byte
	tickerStop chan struct{}
	// chanFailed records a channel failure that arrived before Start
	// committed to Recording, where the failure handler's stop is a no-op
	chanFailed bool

	reconciler *note.Reconciler
	events     Events
}

// New creates a Recorder.
func New(opts Options, events Events) *Recorder {
	if opts.NewCapturer == nil {
		opts.NewCapturer = audio.NewCapturer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		opts:       opts,
		logger:     logger,
		met:        opts.Metrics,
		state:      StateIdle,
		reconciler: note.NewReconciler(),
		events:     events,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns the active recording time in seconds.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Artifact returns the finalized recording, or nil if none was produced.
func (r *Recorder) Artifact() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact
}

// Note returns the reconciler owning the editable note buffer.
func (r *Recorder) Note() *note.Reconciler {
	return r.reconciler
}

// VisualFrame returns the latest captured frame for visualization, or an
// empty slice when not recording.
func (r *Recorder) VisualFrame() []float32 {
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()

	if sess == nil || sess.capturer == nil {
		return []float32{}
	}
	return sess.capturer.LatestFrame()
}

// Start begins a new recording session. No-op unless Idle. The capture
// device is acquired synchronously; the streaming channel opens in the
// background, with frames queued in capture order until it resolves.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.state = StateRequestingPermission
	r.transcript = ""
	r.live = ""
	r.elapsed = 0
	r.artifact = nil
	r.chanFailed = false
	r.reconciler.Reset()
	r.mu.Unlock()
	r.notifyState(StateRequestingPermission)

	capturer, err := r.opts.NewCapturer(r.opts.CaptureConfig)
	if err == nil {
		err = func() error {
			capturer.SetSink(r.sinkFrame)
			return capturer.Start(ctx)
		}()
	}
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		r.notifyState(StateIdle)
		wrapped := fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		r.notifyError(wrapped)
		return wrapped
	}

	instruction, err := transcribe.LanguageInstruction(r.opts.Language)
	if err != nil {
		capturer.Stop()
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		r.notifyState(StateIdle)
		r.notifyError(err)
		return err
	}

	streamSession := r.opts.Streams.Open(ctx, stream.ChannelConfig{
		Model:             r.opts.StreamModel,
		SystemInstruction: instruction,
		SampleRate:        int(r.opts.CaptureConfig.SampleRate),
	}, stream.Handlers{
		OnText:         r.handleFragment,
		OnTurnComplete: r.handleTurnComplete,
		OnAudio:        r.handleModelAudio,
		OnError:        r.handleChannelError,
	})

	r.mu.Lock()
	r.sess = &session{
		capturer: capturer,
		stream:   streamSession,
		frames:   audio.NewFrameBuffer(),
	}
	r.state = StateRecording
	failed := r.chanFailed
	r.startTickerLocked()
	r.mu.Unlock()
	r.notifyState(StateRecording)

	// The channel can fail before the state commits; that failure's stop
	// saw a pre-Recording state and did nothing, so finish the teardown
	if failed {
		if err := r.Stop(); err != nil {
			r.logger.Warn("stop after early channel failure", slog.String("error", err.Error()))
		}
	}

	return nil
}

// Pause suspends frame production. No-op unless Recording.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil
	}
	r.state = StatePaused
	r.stopTickerLocked()
	sess := r.sess
	r.mu.Unlock()

	r.notifyState(StatePaused)
	r.notifyVisualFrame([]float32{})

	if err := sess.capturer.Pause(); err != nil {
		return fmt.Errorf("failed to pause capture: %w", err)
	}
	return nil
}

// Resume restarts frame production. No-op unless Paused.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return nil
	}
	r.state = StateRecording
	r.startTickerLocked()
	sess := r.sess
	r.mu.Unlock()

	r.notifyState(StateRecording)

	if err := sess.capturer.Resume(); err != nil {
		return fmt.Errorf("failed to resume capture: %w", err)
	}
	return nil
}

// Stop finalizes the session: it encodes the recording artifact, closes the
// streaming channel, releases the device, and flushes any pending live
// transcript. Every step is best-effort; failures are reported as a soft
// cleanup error and the recorder always reaches Idle.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StatePaused {
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopping
	r.stopTickerLocked()
	sess := r.sess
	r.sess = nil
	r.mu.Unlock()

	r.notifyState(StateStopping)
	r.notifyVisualFrame([]float32{})

	var cleanupErrs []error

	// Teardown order is fixed: the artifact is encoded from still-intact
	// buffers before any release step that could fail

	if sess.frames.FrameCount() > 0 {
		samples := sess.frames.Concat()
		artifact, err := audio.EncodeWAV(samples, int(r.opts.CaptureConfig.SampleRate))
		if err != nil {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("encode artifact: %w", err))
		} else {
			r.mu.Lock()
			r.artifact = artifact
			r.mu.Unlock()
		}
	}

	if err := sess.stream.Close(); err != nil {
		cleanupErrs = append(cleanupErrs, fmt.Errorf("close channel: %w", err))
	}

	if err := sess.capturer.Stop(); err != nil {
		cleanupErrs = append(cleanupErrs, fmt.Errorf("release device: %w", err))
	}

	r.flushLive()

	r.mu.Lock()
	r.state = StateIdle
	r.elapsed = 0
	r.mu.Unlock()
	r.notifyState(StateIdle)

	if len(cleanupErrs) > 0 {
		err := fmt.Errorf("%w: %v", ErrStopCleanup, errors.Join(cleanupErrs...))
		r.logger.Warn("stop cleanup incomplete", slog.String("error", err.Error()))
		if r.met != nil {
			r.met.StopCleanupFailures.Inc()
		}
		r.notifyError(err)
		return err
	}
	return nil
}

// TranscribeFile runs the one-shot file transcription flow. No-op unless
// Idle. The resolved transcript replaces the settled note text.
func (r *Recorder) TranscribeFile(ctx context.Context, name, reportedType string, data []byte) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.state = StateTranscribingFile
	r.transcript = ""
	r.live = ""
	r.artifact = nil
	r.reconciler.Reset()
	r.mu.Unlock()
	r.notifyState(StateTranscribingFile)

	err := r.transcribeFile(ctx, name, reportedType, data)

	// The recorder must never stay busy, whatever the call's outcome
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	r.notifyState(StateIdle)

	if err != nil {
		r.notifyError(err)
		return err
	}
	return nil
}

func (r *Recorder) transcribeFile(ctx context.Context, name, reportedType string, data []byte) error {
	mediaType, err := transcribe.ResolveMediaType(name, reportedType)
	if err != nil {
		r.countTranscription("unsupported_type")
		return err
	}

	if r.opts.Transcriber == nil {
		r.countTranscription("error")
		return fmt.Errorf("%w: no transcription client configured", ErrTranscriptionFailed)
	}

	text, err := r.opts.Transcriber.TranscribeFile(ctx, data, mediaType, r.opts.Language)
	if err != nil {
		var stopped *transcribe.StoppedError
		switch {
		case errors.Is(err, transcribe.ErrEmptyResult):
			r.countTranscription("empty")
			return err
		case errors.As(err, &stopped):
			r.countTranscription("stopped")
			return err
		default:
			r.countTranscription("error")
			return fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
	}

	r.mu.Lock()
	r.transcript = text
	r.mu.Unlock()
	r.reconciler.ApplySettled(text)
	r.notifySettled(text)
	r.countTranscription("ok")

	return nil
}

// sinkFrame runs synchronously inside the capture callback. Each frame goes
// to the streaming encoder first and the accumulation buffer second, so the
// two sinks always observe the same order.
func (r *Recorder) sinkFrame(frame []float32) {
	r.mu.Lock()
	sess := r.sess
	recording := r.state == StateRecording
	r.mu.Unlock()

	if sess == nil || !recording {
		return
	}

	pcm, mime := audio.EncodeFrame(frame)
	if err := sess.stream.SendFrame(pcm, mime); err != nil {
		r.logger.Warn("frame send failed", slog.String("error", err.Error()))
	}
	sess.frames.Append(frame)

	if r.met != nil {
		r.met.FramesCaptured.Inc()
		r.met.SamplesCaptured.Add(float64(len(frame)))
	}

	r.notifyVisualFrame(frame)
}

// handleFragment appends one incremental transcript fragment to the live
// buffer.
func (r *Recorder) handleFragment(fragment string) {
	r.mu.Lock()
	r.live += fragment
	live := r.live
	r.mu.Unlock()

	r.reconciler.SetLive(live)
	if r.events.OnLiveText != nil {
		r.events.OnLiveText(live)
	}
}

// handleTurnComplete flushes the live buffer into the settled transcript.
func (r *Recorder) handleTurnComplete() {
	r.flushLive()
}

// handleModelAudio consumes inline model audio. The protocol requires
// accepting it even though dictation never plays it back.
func (r *Recorder) handleModelAudio(pcm []byte) {
	if _, err := audio.DecodePCM16(pcm); err != nil {
		r.logger.Debug("discarding malformed model audio", slog.String("error", err.Error()))
	}
}

// handleChannelError reacts to a fatal channel failure by surfacing the
// error and stopping the session.
func (r *Recorder) handleChannelError(err error) {
	r.mu.Lock()
	r.chanFailed = true
	r.mu.Unlock()

	if r.met != nil {
		r.met.ChannelErrors.Inc()
	}
	r.notifyError(fmt.Errorf("%w: %v", ErrChannelFailed, err))

	// Stop on a separate goroutine: this handler runs on the session's
	// event loop, which Stop waits on
	go func() {
		if stopErr := r.Stop(); stopErr != nil {
			r.logger.Warn("stop after channel error failed", slog.String("error", stopErr.Error()))
		}
	}()
}

// flushLive moves any pending live transcript into the settled transcript.
func (r *Recorder) flushLive() {
	r.mu.Lock()
	if r.live == "" {
		r.mu.Unlock()
		return
	}
	r.transcript += r.live
	r.live = ""
	transcript := r.transcript
	r.mu.Unlock()

	r.reconciler.ApplySettled(transcript)
	r.reconciler.SetLive("")
	if r.events.OnLiveText != nil {
		r.events.OnLiveText("")
	}
	r.notifySettled(transcript)
}

// startTickerLocked begins the 1 Hz elapsed counter. Caller holds the lock.
func (r *Recorder) startTickerLocked() {
	stop := make(chan struct{})
	r.tickerStop = stop

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.mu.Lock()
				r.elapsed++
				elapsed := r.elapsed
				r.mu.Unlock()
				if r.met != nil {
					r.met.RecordingSeconds.Inc()
				}
				if r.events.OnElapsed != nil {
					r.events.OnElapsed(elapsed)
				}
			}
		}
	}()
}

// stopTickerLocked halts the elapsed counter. Caller holds the lock.
func (r *Recorder) stopTickerLocked() {
	if r.tickerStop != nil {
		close(r.tickerStop)
		r.tickerStop = nil
	}
}

func (r *Recorder) notifyState(state State) {
	if r.events.OnStateChange != nil {
		r.events.OnStateChange(state)
	}
}

func (r *Recorder) notifyError(err error) {
	if r.events.OnError != nil {
		r.events.OnError(err)
	}
}

func (r *Recorder) notifySettled(settled string) {
	if r.events.OnSettled != nil {
		r.events.OnSettled(settled)
	}
}

func (r *Recorder) notifyVisualFrame(frame []float32) {
	if r.events.OnVisualFrame != nil {
		r.events.OnVisualFrame(frame)
	}
}

func (r *Recorder) countTranscription(outcome string) {
	if r.met != nil {
		r.met.FileTranscriptions.WithLabelValues(outcome).Inc()
	}
}
