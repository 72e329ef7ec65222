package recorder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marlowe/dicta/internal/audio"
	"github.com/marlowe/dicta/internal/stream"
	"github.com/marlowe/dicta/internal/transcribe"
)

// fakeCapturer records lifecycle calls and exposes its sink so tests can
// inject frames as the device callback would.
type fakeCapturer struct {
	mu       sync.Mutex
	sink     audio.FrameFunc
	running  bool
	paused   bool
	stops    int
	startErr error
}

func (f *fakeCapturer) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

func (f *fakeCapturer) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	return nil
}

func (f *fakeCapturer) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	return nil
}

func (f *fakeCapturer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops++
	return nil
}

func (f *fakeCapturer) SetSink(sink audio.FrameFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
}

func (f *fakeCapturer) LatestFrame() []float32 {
	return []float32{}
}

func (f *fakeCapturer) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeCapturer) push(frame []float32) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink(frame)
	}
}

// fakeChannel is an in-memory stream.Channel fed by the test.
type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	events chan stream.Event
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan stream.Event, 16)}
}

func (c *fakeChannel) Send(frame []byte, mimeType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeChannel) Events() <-chan stream.Event {
	return c.events
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakeDialer hands out fake channels and reports how many dials happened.
type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (d *fakeDialer) Dial(ctx context.Context, cfg stream.ChannelConfig) (stream.Channel, error) {
	ch := newFakeChannel()
	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	return ch, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels)
}

func (d *fakeDialer) channel(i int) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[i]
}

// failingDialer rejects every dial immediately.
type failingDialer struct{}

func (failingDialer) Dial(ctx context.Context, cfg stream.ChannelConfig) (stream.Channel, error) {
	return nil, errors.New("endpoint unreachable")
}

type fakeTranscriber struct {
	text string
	err  error

	mu        sync.Mutex
	lastMedia string
}

func (t *fakeTranscriber) TranscribeFile(ctx context.Context, data []byte, mediaType, language string) (string, error) {
	t.mu.Lock()
	t.lastMedia = mediaType
	t.mu.Unlock()
	if t.err != nil {
		return "", t.err
	}
	return t.text, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestRecorder(t *testing.T) (*Recorder, *fakeCapturer, *fakeDialer) {
	t.Helper()
	capturer := &fakeCapturer{}
	dialer := &fakeDialer{}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	rec := New(Options{
		CaptureConfig: audio.DefaultCaptureConfig(),
		NewCapturer: func(audio.CaptureConfig) (audio.Capturer, error) {
			return capturer, nil
		},
		Streams:     stream.NewManager(dialer, logger, nil),
		StreamModel: "test-model",
		Language:    "en",
		Logger:      logger,
	}, Events{})
	return rec, capturer, dialer
}

func TestStartOnlyFromIdle(t *testing.T) {
	rec, _, dialer := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if rec.State() != StateRecording {
		t.Fatalf("state = %v, want %v", rec.State(), StateRecording)
	}

	// A second start while recording must not open another session
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("dial count = %d, want 1", got)
	}

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	rec, capturer, _ := newTestRecorder(t)
	capturer.startErr = errors.New("device busy")

	var reported error
	rec.events.OnError = func(err error) { reported = err }

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want ErrPermissionDenied", err)
	}
	if !errors.Is(reported, ErrPermissionDenied) {
		t.Errorf("OnError got %v, want ErrPermissionDenied", reported)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
}

func TestStopWithoutFramesLeavesNoArtifact(t *testing.T) {
	rec, capturer, _ := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if rec.Artifact() != nil {
		t.Errorf("artifact = %d bytes, want none", len(rec.Artifact()))
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
	if capturer.stops == 0 {
		t.Error("capturer was never released")
	}
}

func TestStopEncodesArtifact(t *testing.T) {
	rec, capturer, dialer := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })

	frame := make([]float32, 4096)
	for i := range frame {
		frame[i] = 0.25
	}
	capturer.push(frame)
	capturer.push(frame)

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	artifact := rec.Artifact()
	wantLen := 44 + 2*2*4096
	if len(artifact) != wantLen {
		t.Fatalf("artifact length = %d, want %d", len(artifact), wantLen)
	}
	if err := audio.ValidateWAV(artifact); err != nil {
		t.Errorf("artifact failed validation: %v", err)
	}
}

func TestFramesStreamBeforeAccumulating(t *testing.T) {
	rec, capturer, dialer := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })

	for i := 0; i < 3; i++ {
		capturer.push([]float32{0.1, 0.2, 0.3, 0.4})
	}
	waitFor(t, "frames to reach the channel", func() bool {
		return dialer.channel(0).sentCount() == 3
	})

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	// 3 frames of 4 samples each
	if got, want := len(rec.Artifact()), 44+2*12; got != want {
		t.Errorf("artifact length = %d, want %d", got, want)
	}
}

func TestPauseResumeGuards(t *testing.T) {
	rec, capturer, _ := newTestRecorder(t)

	// Both are no-ops outside their source states
	if err := rec.Pause(); err != nil {
		t.Fatalf("Pause() from idle error = %v", err)
	}
	if err := rec.Resume(); err != nil {
		t.Fatalf("Resume() from idle error = %v", err)
	}
	if rec.State() != StateIdle {
		t.Fatalf("state = %v, want %v", rec.State(), StateIdle)
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Resume(); err != nil {
		t.Fatalf("Resume() while recording error = %v", err)
	}
	if rec.State() != StateRecording {
		t.Fatalf("state = %v, want %v", rec.State(), StateRecording)
	}

	if err := rec.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if rec.State() != StatePaused {
		t.Fatalf("state = %v, want %v", rec.State(), StatePaused)
	}
	if !capturer.paused {
		t.Error("capturer was not paused")
	}

	if err := rec.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if rec.State() != StateRecording {
		t.Fatalf("state = %v, want %v", rec.State(), StateRecording)
	}

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestVisualFrameNotifications(t *testing.T) {
	rec, capturer, dialer := newTestRecorder(t)

	var (
		mu     sync.Mutex
		frames [][]float32
	)
	rec.events.OnVisualFrame = func(frame []float32) {
		mu.Lock()
		frames = append(frames, frame)
		mu.Unlock()
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })

	capturer.push([]float32{0.5, -0.5})

	mu.Lock()
	if len(frames) != 1 || len(frames[0]) != 2 {
		t.Fatalf("frames after capture = %v, want one 2-sample frame", frames)
	}
	mu.Unlock()

	// Pause and stop each push an empty frame so the meter clears
	if err := rec.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	mu.Lock()
	if len(frames) != 2 || len(frames[1]) != 0 {
		t.Fatalf("frames after pause = %v, want a trailing empty frame", frames)
	}
	mu.Unlock()

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(frames) != 3 || len(frames[2]) != 0 {
		t.Fatalf("frames after stop = %v, want a trailing empty frame", frames)
	}
}

func TestStopFromPausedReachesIdle(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
}

func TestTurnBoundaryFlushesLiveText(t *testing.T) {
	rec, _, dialer := newTestRecorder(t)

	var (
		mu      sync.Mutex
		settled string
	)
	rec.events.OnSettled = func(s string) {
		mu.Lock()
		settled = s
		mu.Unlock()
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })
	ch := dialer.channel(0)

	ch.events <- stream.Event{Text: "hello "}
	ch.events <- stream.Event{Text: "world"}
	waitFor(t, "live text", func() bool { return rec.Note().Live() == "hello world" })

	ch.events <- stream.Event{TurnComplete: true}
	waitFor(t, "turn flush", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return settled == "hello world"
	})
	if rec.Note().Live() != "" {
		t.Errorf("live after turn = %q, want empty", rec.Note().Live())
	}
	if rec.Note().Settled() != "hello world" {
		t.Errorf("settled = %q, want %q", rec.Note().Settled(), "hello world")
	}

	// A second turn appends to, never rewrites, the settled text
	ch.events <- stream.Event{Text: " again"}
	ch.events <- stream.Event{TurnComplete: true}
	waitFor(t, "second turn flush", func() bool {
		return rec.Note().Settled() == "hello world again"
	})

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestStopFlushesPendingLiveText(t *testing.T) {
	rec, _, dialer := newTestRecorder(t)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })
	ch := dialer.channel(0)

	ch.events <- stream.Event{Text: "trailing words"}
	waitFor(t, "live text", func() bool { return rec.Note().Live() == "trailing words" })

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if rec.Note().Settled() != "trailing words" {
		t.Errorf("settled = %q, want %q", rec.Note().Settled(), "trailing words")
	}
}

func TestChannelErrorStopsSession(t *testing.T) {
	rec, _, dialer := newTestRecorder(t)

	var (
		mu       sync.Mutex
		reported error
	)
	rec.events.OnError = func(err error) {
		mu.Lock()
		if reported == nil {
			reported = err
		}
		mu.Unlock()
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "dial", func() bool { return dialer.dialCount() > 0 })

	dialer.channel(0).events <- stream.Event{Err: errors.New("connection reset")}

	waitFor(t, "return to idle", func() bool { return rec.State() == StateIdle })
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(reported, ErrChannelFailed) {
		t.Errorf("OnError got %v, want ErrChannelFailed", reported)
	}
}

func TestDialFailureReturnsToIdle(t *testing.T) {
	capturer := &fakeCapturer{}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	var (
		mu       sync.Mutex
		reported error
	)
	rec := New(Options{
		CaptureConfig: audio.DefaultCaptureConfig(),
		NewCapturer: func(audio.CaptureConfig) (audio.Capturer, error) {
			return capturer, nil
		},
		Streams:     stream.NewManager(failingDialer{}, logger, nil),
		StreamModel: "test-model",
		Language:    "en",
		Logger:      logger,
	}, Events{
		OnError: func(err error) {
			mu.Lock()
			if reported == nil {
				reported = err
			}
			mu.Unlock()
		},
	})

	// The dial fails asynchronously; whichever side of the Recording
	// commit the failure lands on, the session must tear down to Idle
	for i := 0; i < 50; i++ {
		if err := rec.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, "return to idle", func() bool { return rec.State() == StateIdle })
	}

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(reported, ErrChannelFailed) {
		t.Errorf("OnError got %v, want ErrChannelFailed", reported)
	}
	if capturer.stops == 0 {
		t.Error("capturer was never released")
	}
}

func TestTranscribeFileReplacesNote(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	tr := &fakeTranscriber{text: "spoken contents"}
	rec.opts.Transcriber = tr

	err := rec.TranscribeFile(context.Background(), "memo.m4a", "audio/x-m4a", []byte("data"))
	if err != nil {
		t.Fatalf("TranscribeFile() error = %v", err)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
	if rec.Note().Settled() != "spoken contents" {
		t.Errorf("settled = %q, want %q", rec.Note().Settled(), "spoken contents")
	}
	if tr.lastMedia != "audio/mp4" {
		t.Errorf("media type = %q, want %q", tr.lastMedia, "audio/mp4")
	}
}

func TestTranscribeFileRejectsUnsupportedType(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	rec.opts.Transcriber = &fakeTranscriber{text: "never used"}

	err := rec.TranscribeFile(context.Background(), "clip.xyz", "", []byte("data"))
	var unsupported *transcribe.UnsupportedFileTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("TranscribeFile() error = %v, want UnsupportedFileTypeError", err)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
}

func TestTranscribeFileEmptyResult(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	rec.opts.Transcriber = &fakeTranscriber{err: transcribe.ErrEmptyResult}

	err := rec.TranscribeFile(context.Background(), "memo.wav", "audio/wav", []byte("data"))
	if !errors.Is(err, transcribe.ErrEmptyResult) {
		t.Fatalf("TranscribeFile() error = %v, want ErrEmptyResult", err)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want %v", rec.State(), StateIdle)
	}
}

func TestTranscribeFileBusyIsNoOp(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	tr := &fakeTranscriber{text: "ignored"}
	rec.opts.Transcriber = tr

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.TranscribeFile(context.Background(), "memo.wav", "audio/wav", []byte("data")); err != nil {
		t.Fatalf("TranscribeFile() while recording error = %v", err)
	}
	if rec.State() != StateRecording {
		t.Errorf("state = %v, want %v", rec.State(), StateRecording)
	}

	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
