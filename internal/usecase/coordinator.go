package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meetnote/internal/domain"
	"meetnote/internal/ports"
)

var (
	// ErrNoActiveSession is returned by Stop when no recording is in
	// progress. Call sites treat it as a no-op.
	ErrNoActiveSession = errors.New("no active recording session")

	// ErrSessionActive rejects a Start while a session is non-idle; the
	// existing session is left unchanged.
	ErrSessionActive = errors.New("a recording session is already active")
)

// FeedController is the mode-switching side of the transcription feed,
// driven by session transitions.
type FeedController interface {
	SetLive(conversationID int64)
	SetComplete(conversationID int64)
}

// Coordinator owns the authoritative recording session state and sequences
// conversation creation, engine start, and engine stop. At most one session
// is non-idle at a time; transitions are linearized by the mutex.
type Coordinator struct {
	conversations ports.ConversationCreator
	engine        ports.Engine
	devices       ports.DeviceSelector
	feed          FeedController
	events        ports.EventSink
	log           zerolog.Logger

	mu      sync.Mutex
	current session
}

func NewCoordinator(
	conversations ports.ConversationCreator,
	engine ports.Engine,
	devices ports.DeviceSelector,
	feed FeedController,
	events ports.EventSink,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		conversations: conversations,
		engine:        engine,
		devices:       devices,
		feed:          feed,
		events:        events,
		log:           log.With().Str("component", "coordinator").Logger(),
		current:       idleSession(),
	}
}

// Start creates a conversation and begins recording it against the current
// device selection. A second Start while non-idle is rejected and leaves
// state unchanged. Device gating happens before the conversation row is
// created, so a gated start leaves no orphan row and never reaches the
// engine. An engine start failure reverts to idle but keeps the created
// row; orphaned empty conversations are user-deletable.
func (c *Coordinator) Start(ctx context.Context) (domain.Status, error) {
	c.mu.Lock()
	if c.current.state != domain.SessionStateIdle {
		status := c.current.status()
		c.mu.Unlock()
		return status, ErrSessionActive
	}

	input, inputOK := c.devices.Selection(domain.DeviceInput)
	output, outputOK := c.devices.Selection(domain.DeviceOutput)
	if !inputOK || !outputOK {
		c.mu.Unlock()
		c.events.SessionError(domain.ErrorCodeDeviceNotSelected, domain.ErrDeviceNotSelected.Error())
		return idleSession().status(), domain.ErrDeviceNotSelected
	}

	c.current = session{state: domain.SessionStateCreatingConversation}
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateCreatingConversation, 0)

	conv, err := c.conversations.Create(ctx)
	if err != nil {
		c.revertToIdle(0)
		c.events.SessionError(domain.ErrorCodeStoreUnavailable, err.Error())
		return idleSession().status(), err
	}

	// The selection was read once above; a device change from here on does
	// not affect this session.
	if err := c.engine.StartRecording(ctx, input, output, conv.ID); err != nil {
		// The conversation row is kept: an empty conversation the user can
		// delete beats a compensating transaction that can itself fail.
		c.revertToIdle(conv.ID)
		c.events.SessionError(domain.ErrorCodeEngineStart, err.Error())
		c.log.Error().Err(err).Int64("conversation", conv.ID).Msg("engine start failed")
		return idleSession().status(), fmt.Errorf("%w: %v", domain.ErrEngineStartFailed, err)
	}

	c.mu.Lock()
	c.current = session{state: domain.SessionStateRecording, conversationID: conv.ID}
	status := c.current.status()
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateRecording, conv.ID)
	c.events.RecordingStateInvalidated(true)
	c.feed.SetLive(conv.ID)
	c.log.Info().Int64("conversation", conv.ID).Msg("recording started")
	return status, nil
}

// Stop ends the active recording. The session reverts to idle even when the
// engine rejects the stop; an engine still recording with no client-visible
// session is accepted degraded state, recoverable via ReconcileEngineState
// or a later manual stop.
func (c *Coordinator) Stop(ctx context.Context) (domain.Status, error) {
	c.mu.Lock()
	if c.current.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return idleSession().status(), ErrNoActiveSession
	}
	conversationID := c.current.conversationID
	c.current.state = domain.SessionStateStopping
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateStopping, conversationID)

	stopErr := c.engine.StopRecording(ctx, conversationID)

	c.mu.Lock()
	c.current = idleSession()
	status := c.current.status()
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateIdle, conversationID)
	c.events.RecordingStateInvalidated(false)
	c.feed.SetComplete(conversationID)

	if stopErr != nil {
		c.events.SessionError(domain.ErrorCodeEngineStop, stopErr.Error())
		c.log.Error().Err(stopErr).Int64("conversation", conversationID).Msg("engine stop failed")
		return status, fmt.Errorf("%w: %v", domain.ErrEngineStopFailed, stopErr)
	}

	c.log.Info().Int64("conversation", conversationID).Msg("recording stopped")
	return status, nil
}

// Status returns the coordinator's view of the session.
func (c *Coordinator) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.status()
}

// ReconcileEngineState re-reads the engine-side recording state and adopts it
// when the client disagrees: an engine recording with no client session is
// re-adopted (restart or failed-stop recovery), and a client session the
// engine no longer runs is cleared.
func (c *Coordinator) ReconcileEngineState(ctx context.Context) (domain.Status, error) {
	engineState, err := c.engine.RecordingState(ctx)
	if err != nil {
		return c.Status(), err
	}

	c.mu.Lock()
	switch {
	case engineState.Recording && c.current.state == domain.SessionStateIdle:
		c.current = session{
			state:          domain.SessionStateRecording,
			conversationID: engineState.ConversationID,
		}
		status := c.current.status()
		c.mu.Unlock()
		c.events.SessionStateChanged(domain.SessionStateRecording, engineState.ConversationID)
		c.events.RecordingStateInvalidated(true)
		c.feed.SetLive(engineState.ConversationID)
		c.log.Warn().Int64("conversation", engineState.ConversationID).Msg("adopted engine-side recording session")
		return status, nil

	case !engineState.Recording && c.current.state == domain.SessionStateRecording:
		conversationID := c.current.conversationID
		c.current = idleSession()
		status := c.current.status()
		c.mu.Unlock()
		c.events.SessionStateChanged(domain.SessionStateIdle, conversationID)
		c.events.RecordingStateInvalidated(false)
		c.feed.SetComplete(conversationID)
		c.log.Warn().Int64("conversation", conversationID).Msg("cleared session the engine no longer records")
		return status, nil

	default:
		status := c.current.status()
		c.mu.Unlock()
		return status, nil
	}
}

func (c *Coordinator) revertToIdle(conversationID int64) {
	c.mu.Lock()
	c.current = idleSession()
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateIdle, conversationID)
}
