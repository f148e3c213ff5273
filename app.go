package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"meetnote/internal/bootstrap"
	"meetnote/internal/domain"
	"meetnote/internal/usecase"
)

const (
	eventSession   = "meetnote:session"
	eventFeed      = "meetnote:feed"
	eventRecording = "meetnote:recording"
	eventError     = "meetnote:error"
)

// App is the Wails application root. Its exported methods are the operation
// surface bound to the frontend; the EventSink methods push state back.
type App struct {
	ctx context.Context

	services *bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	// The engine may still be recording from before a restart; its state
	// wins over the process-local default.
	if _, err := services.Coordinator.ReconcileEngineState(ctx); err != nil {
		services.Log.Warn().Err(err).Msg("engine state reconciliation failed")
	}
	a.SessionStateChanged(services.Coordinator.Status().State, 0)
}

func (a *App) shutdown(_ context.Context) {
	if a.services != nil {
		a.services.Close()
	}
}

// StartRecording creates a conversation and starts recording it.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.services.Coordinator.Start(a.ctx)
}

// StopRecording ends the active recording. Calling it with no active session
// is a no-op.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	status, err := a.services.Coordinator.Stop(a.ctx)
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return status, nil
	}
	return status, err
}

// GetRecordingState returns the coordinator's session status.
func (a *App) GetRecordingState() domain.Status {
	if a.services == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.services.Coordinator.Status()
}

// IsRecording reads the engine-side recording flag.
func (a *App) IsRecording() (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	state, err := a.services.Engine.RecordingState(a.ctx)
	if err != nil {
		return false, err
	}
	return state.Recording, nil
}

// ListConversations returns one page of the conversation list.
func (a *App) ListConversations(page, pageSize int) (domain.ConversationPage, error) {
	if err := a.requireReady(); err != nil {
		return domain.ConversationPage{}, err
	}
	result, err := a.services.Pager.Page(a.ctx, page, pageSize)
	if err != nil {
		a.SessionError(domain.ErrorCodeStoreUnavailable, err.Error())
		return domain.ConversationPage{}, err
	}
	return result, nil
}

// GetConversation returns a single conversation row.
func (a *App) GetConversation(id int64) (domain.Conversation, error) {
	if err := a.requireReady(); err != nil {
		return domain.Conversation{}, err
	}
	return a.services.Proxy.Get(a.ctx, id)
}

// DeleteConversation removes the engine's recording data and the row.
func (a *App) DeleteConversation(id int64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Proxy.Delete(a.ctx, id); err != nil {
		code := domain.ErrorCodeStoreUnavailable
		if errors.Is(err, domain.ErrArtifactDeleteFailed) {
			code = domain.ErrorCodeArtifactDelete
		}
		a.SessionError(code, err.Error())
		return err
	}
	return nil
}

// GetSummary fetches the engine's summary for a conversation on demand.
func (a *App) GetSummary(id int64) (domain.Summary, error) {
	if err := a.requireReady(); err != nil {
		return domain.Summary{}, err
	}
	return a.services.Engine.Summary(a.ctx, id)
}

// GetTranscription returns the latest transcription feed snapshot.
func (a *App) GetTranscription() (domain.FeedView, error) {
	if err := a.requireReady(); err != nil {
		return domain.FeedView{}, err
	}
	return a.services.Feed.Current(), nil
}

// RefreshTranscription polls the engine immediately instead of waiting for
// the next cadence tick and returns the resulting snapshot.
func (a *App) RefreshTranscription() (domain.FeedView, error) {
	if err := a.requireReady(); err != nil {
		return domain.FeedView{}, err
	}
	view, err := a.services.Feed.Fetch(a.ctx)
	if err != nil {
		a.SessionError(domain.ErrorCodeFeed, err.Error())
		return domain.FeedView{}, err
	}
	return view, nil
}

// OpenConversation points the feed at a stopped conversation's complete
// transcript. While a recording is active the feed already follows it.
func (a *App) OpenConversation(id int64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if status := a.services.Coordinator.Status(); status.Active && status.ConversationID == id {
		return nil
	}
	a.services.Feed.SetComplete(id)
	return nil
}

// CloseConversation stops feed polling when no view consumes it.
func (a *App) CloseConversation() {
	if a.services != nil {
		a.services.Feed.Stop()
	}
}

// EnumerateInputDevices lists capture devices.
func (a *App) EnumerateInputDevices() ([]string, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Registry.ListInputDevices(a.ctx)
}

// EnumerateOutputDevices lists playback devices.
func (a *App) EnumerateOutputDevices() ([]string, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Registry.ListOutputDevices(a.ctx)
}

// SetInputDeviceName persists and activates a capture device.
func (a *App) SetInputDeviceName(name string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Registry.SetSelection(a.ctx, domain.DeviceInput, name)
}

// SetOutputDeviceName persists and activates a playback device, retargeting
// live audio immediately.
func (a *App) SetOutputDeviceName(name string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Registry.SetSelection(a.ctx, domain.DeviceOutput, name)
}

// GetDeviceSelection returns the persisted device choices.
func (a *App) GetDeviceSelection() (domain.DeviceSelection, error) {
	if err := a.requireReady(); err != nil {
		return domain.DeviceSelection{}, err
	}
	return a.services.Registry.CurrentSelection(), nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, conversationID int64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]any{
		"state":          string(state),
		"conversationId": conversationID,
		"message":        sessionStateMessage(state),
	})
}

// TranscriptUpdated emits the latest feed text.
func (a *App) TranscriptUpdated(mode domain.FeedMode, segments []string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFeed, map[string]any{
		"mode":     string(mode),
		"segments": segments,
	})
}

// RecordingStateInvalidated tells the frontend to refetch the recording read.
func (a *App) RecordingStateInvalidated(recording bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecording, map[string]any{"recording": recording})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]any{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionStateMessage(state domain.SessionState) string {
	switch state {
	case domain.SessionStateIdle:
		return "Not recording"
	case domain.SessionStateCreatingConversation:
		return "Creating conversation..."
	case domain.SessionStateRecording:
		return "Recording"
	case domain.SessionStateStopping:
		return "Stopping..."
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeDeviceNotSelected:
		return "Select an input and output device first"
	case domain.ErrorCodeEngineStart:
		return "Could not start recording"
	case domain.ErrorCodeEngineStop:
		return "Could not stop recording"
	case domain.ErrorCodeStoreUnavailable:
		return "Conversation store unavailable"
	case domain.ErrorCodeArtifactDelete:
		return "Could not delete recording data"
	case domain.ErrorCodeFeed:
		return "Transcription feed error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
