package domain

import "errors"

// Sentinel errors shared across the backend. Callers match with errors.Is;
// wrapping adds call-site context without losing the kind.
var (
	// ErrDeviceNotSelected is returned when a recording start is attempted
	// without both an input and an output device chosen.
	ErrDeviceNotSelected = errors.New("no audio device selected")

	// ErrStoreUnavailable is returned when the conversation persistence
	// collaborator cannot be reached. Never retried automatically.
	ErrStoreUnavailable = errors.New("conversation store unavailable")

	// ErrConversationNotFound is returned by reads and deletes of an absent
	// conversation row.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrArtifactNotFound is the engine's idempotent "nothing to delete"
	// answer for recording data. Non-fatal for conversation deletion.
	ErrArtifactNotFound = errors.New("recording data not found")

	// ErrArtifactDeleteFailed aborts a conversation delete when the engine
	// failed to remove recording data for a reason other than absence.
	ErrArtifactDeleteFailed = errors.New("recording data deletion failed")

	// ErrEngineStartFailed and ErrEngineStopFailed mark rejected engine
	// commands; the session reverts to idle in both cases.
	ErrEngineStartFailed = errors.New("engine start failed")
	ErrEngineStopFailed  = errors.New("engine stop failed")

	// ErrMalformedResponse marks an engine reply that did not deserialize
	// into the expected shape for the requested operation.
	ErrMalformedResponse = errors.New("malformed engine response")
)
