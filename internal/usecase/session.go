package usecase

import "meetnote/internal/domain"

// session is the single process-local recording session. It is never
// persisted; a restart while recording is reconciled against the engine's
// own state instead (see Coordinator.ReconcileEngineState).
type session struct {
	state          domain.SessionState
	conversationID int64
}

func idleSession() session {
	return session{state: domain.SessionStateIdle}
}

func (s session) status() domain.Status {
	return domain.Status{
		State:          s.state,
		ConversationID: s.conversationID,
		Active:         s.state != domain.SessionStateIdle,
	}
}
