package ports

import (
	"context"

	"meetnote/internal/domain"
)

// Engine is the external audio-capture/transcription/summarization
// collaborator. Every call is a suspension point; none are retried here.
type Engine interface {
	EnumerateInputDevices(ctx context.Context) ([]string, error)
	EnumerateOutputDevices(ctx context.Context) ([]string, error)

	// SetInputDevice and SetOutputDevice make a device the engine's active
	// one. The output variant retargets live audio playback immediately.
	SetInputDevice(ctx context.Context, name string) error
	SetOutputDevice(ctx context.Context, name string) error

	StartRecording(ctx context.Context, inputDevice, outputDevice string, conversationID int64) error
	StopRecording(ctx context.Context, conversationID int64) error
	RecordingState(ctx context.Context) (domain.RecordingState, error)

	LiveTranscription(ctx context.Context) (domain.Transcript, error)
	CompleteTranscription(ctx context.Context, conversationID int64) (domain.Transcript, error)
	Summary(ctx context.Context, conversationID int64) (domain.Summary, error)

	// DeleteRecordingData removes the engine's artifacts for a conversation.
	// Reports domain.ErrArtifactNotFound when there was nothing to delete.
	DeleteRecordingData(ctx context.Context, conversationID int64) error
}

// ArtifactDeleter is the slice of the engine the store proxy needs.
type ArtifactDeleter interface {
	DeleteRecordingData(ctx context.Context, conversationID int64) error
}

// ConversationStore is the persistence collaborator for conversation rows.
type ConversationStore interface {
	Create(ctx context.Context) (domain.Conversation, error)
	Get(ctx context.Context, id int64) (domain.Conversation, error)
	// List returns one page of conversations plus the total row count.
	List(ctx context.Context, page, pageSize int) ([]domain.Conversation, int, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Settings is the durable key-value store for device selections. It survives
// process restarts and may be rewritten externally at any time.
type Settings interface {
	Selection(kind domain.DeviceKind) (string, bool)
	SetSelection(kind domain.DeviceKind, name string) error
	ClearSelection(kind domain.DeviceKind) error
}

// DeviceSelector is the read side of the device registry, consumed by the
// coordinator exactly once per start call.
type DeviceSelector interface {
	Selection(kind domain.DeviceKind) (string, bool)
}

// ConversationCreator is the slice of the store proxy the coordinator needs.
type ConversationCreator interface {
	Create(ctx context.Context) (domain.Conversation, error)
}

// EventSink pushes backend state to the frontend.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, conversationID int64)
	TranscriptUpdated(mode domain.FeedMode, segments []string)
	// RecordingStateInvalidated tells dependent views to refetch the
	// "is recording" read after any transition into or out of recording.
	RecordingStateInvalidated(recording bool)
	SessionError(code domain.ErrorCode, detail string)
}
