package domain

import "time"

// SessionState models the recording lifecycle.
type SessionState string

const (
	SessionStateIdle                 SessionState = "idle"
	SessionStateCreatingConversation SessionState = "creating_conversation"
	SessionStateRecording            SessionState = "recording"
	SessionStateStopping             SessionState = "stopping"
)

// DeviceKind distinguishes the two persisted device selections.
type DeviceKind string

const (
	DeviceInput  DeviceKind = "input"
	DeviceOutput DeviceKind = "output"
)

// FeedMode selects which transcription endpoint the feed polls.
type FeedMode string

const (
	FeedLive     FeedMode = "live"
	FeedComplete FeedMode = "complete"
)

// ErrorCode identifies backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeDeviceNotSelected ErrorCode = "device_not_selected"
	ErrorCodeEngineStart       ErrorCode = "engine_start"
	ErrorCodeEngineStop        ErrorCode = "engine_stop"
	ErrorCodeStoreUnavailable  ErrorCode = "store_unavailable"
	ErrorCodeArtifactDelete    ErrorCode = "artifact_delete"
	ErrorCodeFeed              ErrorCode = "feed"
)

// Conversation is a read copy of a persisted conversation row. The store
// assigns the identifier on create; the client never mutates rows in place.
type Conversation struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationPage is one page of the conversation list, recomputed per query.
type ConversationPage struct {
	Items      []Conversation `json:"items"`
	PageIndex  int            `json:"pageIndex"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// Transcript is an ordered sequence of text segments from the engine.
type Transcript struct {
	Segments []string `json:"segments"`
}

// Summary is the engine's post-processing output for a conversation.
type Summary struct {
	Result      string   `json:"result"`
	ActionItems []string `json:"actionItems"`
}

// Status summarizes the coordinator's view of the session.
type Status struct {
	State          SessionState `json:"state"`
	ConversationID int64        `json:"conversationId,omitempty"`
	Active         bool         `json:"active"`
	Message        string       `json:"message,omitempty"`
}

// RecordingState is the engine-side recording read, the source of truth
// when client and engine disagree after a failed stop or a restart.
type RecordingState struct {
	Recording      bool  `json:"recording"`
	ConversationID int64 `json:"conversationId,omitempty"`
}

// FeedView is a snapshot of the transcription feed for the UI.
type FeedView struct {
	Mode     FeedMode `json:"mode"`
	Segments []string `json:"segments"`
}

// DeviceSelection mirrors the persisted device choices.
type DeviceSelection struct {
	InputDevice  string `json:"inputDevice,omitempty"`
	OutputDevice string `json:"outputDevice,omitempty"`
}
