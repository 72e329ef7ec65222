package recorder

import "errors"

// Error kinds surfaced to the user. Start-flow failures return the state
// machine to Idle; stop cleanup failures are soft warnings that never block
// reaching Idle.
var (
	// ErrPermissionDenied means microphone access was refused or the
	// device could not be acquired. Fatal to starting.
	ErrPermissionDenied = errors.New("microphone access denied")

	// ErrChannelFailed means the streaming transcription channel failed
	// to open or failed mid-session. Fatal to the active session.
	ErrChannelFailed = errors.New("transcription channel failed")

	// ErrStopCleanup means part of the stop teardown failed. Non-fatal:
	// the recorder still reaches Idle.
	ErrStopCleanup = errors.New("failed to stop cleanly")

	// ErrTranscriptionFailed is the catch-all for one-shot file
	// transcription failures.
	ErrTranscriptionFailed = errors.New("transcription failed")
)
