package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"meetnote/internal/domain"
)

func newTestCoordinator(
	creator *fakeCreator,
	engine *fakeEngine,
	selector *fakeSelector,
	feed *fakeFeed,
	events *fakeEventSink,
) *Coordinator {
	return NewCoordinator(creator, engine, selector, feed, events, zerolog.Nop())
}

func bothDevices() *fakeSelector {
	return &fakeSelector{selections: map[domain.DeviceKind]string{
		domain.DeviceInput:  "mic1",
		domain.DeviceOutput: "spk1",
	}}
}

func TestCoordinatorStartStopSuccess(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{conv: domain.Conversation{ID: 42}}
	engine := &fakeEngine{}
	feed := &fakeFeed{}
	events := &fakeEventSink{}

	c := newTestCoordinator(creator, engine, bothDevices(), feed, events)

	status, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if status.State != domain.SessionStateRecording || status.ConversationID != 42 {
		t.Fatalf("unexpected status after start: %+v", status)
	}

	calls := engine.startCallsSnapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one engine start, got %d", len(calls))
	}
	if calls[0].input != "mic1" || calls[0].output != "spk1" || calls[0].conversationID != 42 {
		t.Fatalf("unexpected engine start call: %+v", calls[0])
	}
	if len(feed.live) != 1 || feed.live[0] != 42 {
		t.Fatalf("expected feed switched to live for 42, got %v", feed.live)
	}

	status, err = c.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
	if len(engine.stopCallsSnapshot()) != 1 || engine.stopCallsSnapshot()[0] != 42 {
		t.Fatalf("expected engine stop for 42")
	}
	if len(feed.complete) != 1 || feed.complete[0] != 42 {
		t.Fatalf("expected feed switched to complete for 42, got %v", feed.complete)
	}

	states := events.snapshotStates()
	want := []domain.SessionState{
		domain.SessionStateCreatingConversation,
		domain.SessionStateRecording,
		domain.SessionStateStopping,
		domain.SessionStateIdle,
	}
	if len(states) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %+v", len(want), len(states), states)
	}
	for i, s := range want {
		if states[i].state != s {
			t.Fatalf("transition %d: got %s, want %s", i, states[i].state, s)
		}
	}

	invalidations := events.snapshotInvalidations()
	if len(invalidations) != 2 || !invalidations[0] || invalidations[1] {
		t.Fatalf("expected recording invalidations [true false], got %v", invalidations)
	}
}

func TestCoordinatorRejectsSecondStart(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{conv: domain.Conversation{ID: 1}}
	engine := &fakeEngine{}
	c := newTestCoordinator(creator, engine, bothDevices(), &fakeFeed{}, &fakeEventSink{})

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	status, err := c.Start(context.Background())
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if status.State != domain.SessionStateRecording || status.ConversationID != 1 {
		t.Fatalf("second start changed state: %+v", status)
	}
	if creator.calls != 1 {
		t.Fatalf("expected one conversation, got %d", creator.calls)
	}
	if len(engine.startCallsSnapshot()) != 1 {
		t.Fatalf("expected one engine start")
	}
}

func TestCoordinatorStartWithoutDevices(t *testing.T) {
	t.Parallel()

	for name, selector := range map[string]*fakeSelector{
		"none":        {selections: map[domain.DeviceKind]string{}},
		"only input":  {selections: map[domain.DeviceKind]string{domain.DeviceInput: "mic1"}},
		"only output": {selections: map[domain.DeviceKind]string{domain.DeviceOutput: "spk1"}},
	} {
		selector := selector
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			creator := &fakeCreator{conv: domain.Conversation{ID: 9}}
			engine := &fakeEngine{}
			events := &fakeEventSink{}
			c := newTestCoordinator(creator, engine, selector, &fakeFeed{}, events)

			_, err := c.Start(context.Background())
			if !errors.Is(err, domain.ErrDeviceNotSelected) {
				t.Fatalf("expected ErrDeviceNotSelected, got %v", err)
			}
			if c.Status().State != domain.SessionStateIdle {
				t.Fatalf("state should remain idle")
			}
			if creator.calls != 0 {
				t.Fatalf("no conversation row should be created")
			}
			if len(engine.startCallsSnapshot()) != 0 {
				t.Fatalf("engine must not be called")
			}
			errs := events.snapshotErrors()
			if len(errs) != 1 || errs[0].code != domain.ErrorCodeDeviceNotSelected {
				t.Fatalf("expected device_not_selected error event, got %+v", errs)
			}
		})
	}
}

func TestCoordinatorCreateFailureRevertsToIdle(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{err: errors.New("store down")}
	engine := &fakeEngine{}
	events := &fakeEventSink{}
	c := newTestCoordinator(creator, engine, bothDevices(), &fakeFeed{}, events)

	_, err := c.Start(context.Background())
	if err == nil {
		t.Fatalf("expected create failure")
	}
	if c.Status().State != domain.SessionStateIdle {
		t.Fatalf("state should revert to idle")
	}
	if len(engine.startCallsSnapshot()) != 0 {
		t.Fatalf("engine must not be called after create failure")
	}

	// A later start must be accepted again.
	creator.err = nil
	creator.conv = domain.Conversation{ID: 3}
	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
}

func TestCoordinatorEngineStartFailureKeepsConversation(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{conv: domain.Conversation{ID: 5}}
	engine := &fakeEngine{startErr: errors.New("device busy")}
	events := &fakeEventSink{}
	c := newTestCoordinator(creator, engine, bothDevices(), &fakeFeed{}, events)

	_, err := c.Start(context.Background())
	if !errors.Is(err, domain.ErrEngineStartFailed) {
		t.Fatalf("expected ErrEngineStartFailed, got %v", err)
	}
	if c.Status().State != domain.SessionStateIdle {
		t.Fatalf("state should revert to idle")
	}
	if creator.calls != 1 {
		t.Fatalf("conversation row should have been created and kept")
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeEngineStart {
		t.Fatalf("expected engine_start error event, got %+v", errs)
	}
}

func TestCoordinatorStopWithoutActiveSession(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(&fakeCreator{}, &fakeEngine{}, bothDevices(), &fakeFeed{}, &fakeEventSink{})

	_, err := c.Stop(context.Background())
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestCoordinatorStopFailureRevertsToIdleAnyway(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{conv: domain.Conversation{ID: 8}}
	engine := &fakeEngine{stopErr: errors.New("engine wedged")}
	feed := &fakeFeed{}
	events := &fakeEventSink{}
	c := newTestCoordinator(creator, engine, bothDevices(), feed, events)

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	status, err := c.Stop(context.Background())
	if !errors.Is(err, domain.ErrEngineStopFailed) {
		t.Fatalf("expected ErrEngineStopFailed, got %v", err)
	}
	if status.State != domain.SessionStateIdle {
		t.Fatalf("state should revert to idle despite stop failure")
	}
	if len(feed.complete) != 1 {
		t.Fatalf("feed should still switch to complete")
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeEngineStop {
		t.Fatalf("expected engine_stop error event, got %+v", errs)
	}
}

func TestCoordinatorReconcileAdoptsEngineSession(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{recState: domain.RecordingState{Recording: true, ConversationID: 17}}
	feed := &fakeFeed{}
	c := newTestCoordinator(&fakeCreator{}, engine, bothDevices(), feed, &fakeEventSink{})

	status, err := c.ReconcileEngineState(context.Background())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if status.State != domain.SessionStateRecording || status.ConversationID != 17 {
		t.Fatalf("expected adopted session, got %+v", status)
	}
	if len(feed.live) != 1 || feed.live[0] != 17 {
		t.Fatalf("feed should follow the adopted session")
	}
}

func TestCoordinatorReconcileClearsStaleClientSession(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{conv: domain.Conversation{ID: 4}}
	engine := &fakeEngine{}
	feed := &fakeFeed{}
	c := newTestCoordinator(creator, engine, bothDevices(), feed, &fakeEventSink{})

	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	engine.setRecState(domain.RecordingState{Recording: false})
	status, err := c.ReconcileEngineState(context.Background())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if status.State != domain.SessionStateIdle {
		t.Fatalf("expected cleared session, got %+v", status)
	}
	if len(feed.complete) != 1 || feed.complete[0] != 4 {
		t.Fatalf("feed should switch to complete for the cleared session")
	}
}

type startCall struct {
	input          string
	output         string
	conversationID int64
}

type fakeEngine struct {
	mu sync.Mutex

	startErr error
	stopErr  error
	recState domain.RecordingState
	recErr   error

	live        domain.Transcript
	liveErr     error
	complete    domain.Transcript
	completeErr error
	summary     domain.Summary
	deleteErr   error

	inputDevices  []string
	outputDevices []string
	enumErr       error

	startCalls  []startCall
	stopCalls   []int64
	deleteCalls []int64
	setInputs   []string
	setOutputs  []string
}

func (f *fakeEngine) EnumerateInputDevices(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputDevices...), f.enumErr
}

func (f *fakeEngine) EnumerateOutputDevices(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.outputDevices...), f.enumErr
}

func (f *fakeEngine) SetInputDevice(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setInputs = append(f.setInputs, name)
	return nil
}

func (f *fakeEngine) SetOutputDevice(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOutputs = append(f.setOutputs, name)
	return nil
}

func (f *fakeEngine) StartRecording(_ context.Context, input, output string, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.startCalls = append(f.startCalls, startCall{input: input, output: output, conversationID: conversationID})
	f.recState = domain.RecordingState{Recording: true, ConversationID: conversationID}
	return nil
}

func (f *fakeEngine) StopRecording(_ context.Context, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopCalls = append(f.stopCalls, conversationID)
	f.recState = domain.RecordingState{}
	return nil
}

func (f *fakeEngine) RecordingState(context.Context) (domain.RecordingState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recState, f.recErr
}

func (f *fakeEngine) LiveTranscription(context.Context) (domain.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live, f.liveErr
}

func (f *fakeEngine) CompleteTranscription(context.Context, int64) (domain.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete, f.completeErr
}

func (f *fakeEngine) Summary(context.Context, int64) (domain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, nil
}

func (f *fakeEngine) DeleteRecordingData(_ context.Context, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleteCalls = append(f.deleteCalls, conversationID)
	return nil
}

func (f *fakeEngine) setRecState(state domain.RecordingState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recState = state
}

func (f *fakeEngine) startCallsSnapshot() []startCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]startCall(nil), f.startCalls...)
}

func (f *fakeEngine) stopCallsSnapshot() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.stopCalls...)
}

type fakeCreator struct {
	conv  domain.Conversation
	err   error
	calls int
}

func (f *fakeCreator) Create(context.Context) (domain.Conversation, error) {
	if f.err != nil {
		return domain.Conversation{}, f.err
	}
	f.calls++
	return f.conv, nil
}

type fakeSelector struct {
	selections map[domain.DeviceKind]string
}

func (f *fakeSelector) Selection(kind domain.DeviceKind) (string, bool) {
	name, ok := f.selections[kind]
	return name, ok && name != ""
}

type fakeFeed struct {
	live     []int64
	complete []int64
}

func (f *fakeFeed) SetLive(conversationID int64)     { f.live = append(f.live, conversationID) }
func (f *fakeFeed) SetComplete(conversationID int64) { f.complete = append(f.complete, conversationID) }

type stateEvent struct {
	state          domain.SessionState
	conversationID int64
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type transcriptEvent struct {
	mode     domain.FeedMode
	segments []string
}

type fakeEventSink struct {
	mu sync.Mutex

	states        []stateEvent
	errors        []errEvent
	transcripts   []transcriptEvent
	invalidations []bool
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, conversationID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, conversationID: conversationID})
}

func (f *fakeEventSink) TranscriptUpdated(mode domain.FeedMode, segments []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, transcriptEvent{mode: mode, segments: append([]string(nil), segments...)})
}

func (f *fakeEventSink) RecordingStateInvalidated(recording bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations = append(f.invalidations, recording)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stateEvent(nil), f.states...)
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotInvalidations() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.invalidations...)
}
