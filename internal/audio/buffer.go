package audio

import "sync"

// FrameBuffer accumulates captured frames for the final recording artifact.
// Frames are append-only and kept in push order; the buffer is owned by a
// single recording session and reset between sessions.
type FrameBuffer struct {
	mu      sync.RWMutex
	frames  [][]float32
	samples int
}

// NewFrameBuffer creates an empty frame accumulator.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Append adds one captured frame. The frame is stored as-is; callers must not
// mutate it afterwards.
func (b *FrameBuffer) Append(frame []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, frame)
	b.samples += len(frame)
}

// Concat returns all accumulated samples as one sequence, in push order.
func (b *FrameBuffer) Concat() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]float32, 0, b.samples)
	for _, f := range b.frames {
		out = append(out, f...)
	}
	return out
}

// FrameCount returns the number of frames accumulated so far.
func (b *FrameBuffer) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// SampleCount returns the total number of samples across all frames.
func (b *FrameBuffer) SampleCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples
}

// Reset discards all accumulated frames.
func (b *FrameBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = nil
	b.samples = 0
}
