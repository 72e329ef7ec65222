package note

import (
	"strings"
	"sync"
	"time"
)

// DefaultCommitDelay is how long the reconciler waits after an edit before
// committing it, so every keystroke is not individually persisted.
const DefaultCommitDelay = 500 * time.Millisecond

// Reconciler merges a growing live transcript into a user-editable note.
//
// The note is conceptually settled + live: the settled portion is only ever
// appended to by incoming transcript text, while the live suffix mirrors the
// current in-flight transcript exactly. User edits and live growth may
// interleave; edits are merged with a suffix-match heuristic (see ApplyEdit).
type Reconciler struct {
	mu      sync.Mutex
	settled string
	live    string

	// trackedLen is the externally-tracked transcript length. A decrease
	// means the transcript was reset (e.g. a new file transcription), in
	// which case the settled text is replaced wholesale.
	trackedLen int

	commitDelay time.Duration
	pendingEdit string
	editTimer   *time.Timer
	onCommit    func(settled string)
}

// NewReconciler creates a reconciler with the default commit delay.
func NewReconciler() *Reconciler {
	return &Reconciler{commitDelay: DefaultCommitDelay}
}

// SetCommitDelay overrides the edit debounce interval. A zero or negative
// delay commits edits synchronously.
func (r *Reconciler) SetCommitDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitDelay = d
}

// SetOnCommit registers a callback invoked with the settled text after each
// committed edit and each flush.
func (r *Reconciler) SetOnCommit(fn func(settled string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCommit = fn
}

// ApplySettled reconciles externally-produced settled transcript text. If
// the tracked length grew, only the new tail is appended; the existing
// settled text is never rewritten. If it shrank, the transcript was reset
// and the settled text is replaced wholesale.
func (r *Reconciler) ApplySettled(transcript string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(transcript) < r.trackedLen {
		r.settled = transcript
		r.trackedLen = len(transcript)
		return
	}

	r.settled += transcript[r.trackedLen:]
	r.trackedLen = len(transcript)
}

// SetLive replaces the ephemeral live suffix with the current in-flight
// transcript.
func (r *Reconciler) SetLive(live string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = live
}

// ApplyEdit reconciles a user edit of the combined view. If the edited text
// still ends with the current live suffix, the user left the live portion
// alone and only the prefix becomes the new settled text. Otherwise the live
// suffix was edited away and the entire text becomes settled.
//
// The commit is debounced by the configured delay; a later edit within the
// window supersedes the earlier one.
func (r *Reconciler) ApplyEdit(fullText string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pendingEdit = fullText

	if r.commitDelay <= 0 {
		r.commitLocked()
		return
	}

	if r.editTimer != nil {
		r.editTimer.Stop()
	}
	r.editTimer = time.AfterFunc(r.commitDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.commitLocked()
	})
}

// commitLocked applies the pending edit using the suffix-match heuristic.
func (r *Reconciler) commitLocked() {
	text := r.pendingEdit
	r.pendingEdit = ""
	if r.editTimer != nil {
		r.editTimer.Stop()
		r.editTimer = nil
	}

	if r.live != "" && strings.HasSuffix(text, r.live) {
		r.settled = strings.TrimSuffix(text, r.live)
	} else {
		// The live suffix no longer survives in the edited text; the
		// whole edit wins and the live portion is discarded on commit
		r.settled = text
		r.live = ""
	}
	r.notifyLocked()
}

// View returns the combined text presented to the user.
func (r *Reconciler) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled + r.live
}

// Settled returns the settled portion of the note.
func (r *Reconciler) Settled() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled
}

// Live returns the ephemeral live suffix.
func (r *Reconciler) Live() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Reset clears all state for a new session.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.editTimer != nil {
		r.editTimer.Stop()
		r.editTimer = nil
	}
	r.settled = ""
	r.live = ""
	r.trackedLen = 0
	r.pendingEdit = ""
}

func (r *Reconciler) notifyLocked() {
	if r.onCommit != nil {
		r.onCommit(r.settled)
	}
}
