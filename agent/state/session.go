package state

import (
	"errors"
	"time"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

// SessionState bundles the per-conversation trackers and the drift detector.
// It is not safe for concurrent use; the guard serializes turns per session id.
type SessionState struct {
	SessionID string

	Topics  *TopicTracker
	Objects *ObjectRegistry
	Drift   *drift.Detector

	// NextTurn is the index the next unnumbered turn receives.
	NextTurn int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSessionState(sessionID string, cfg TrackerConfig, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Topics:    NewTopicTracker(cfg),
		Objects:   NewObjectRegistry(),
		Drift:     drift.NewDetector(),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

/* ----------------------------- turn lifecycle ---------------------------- */

// BeginTurn advances both trackers. A nil requested index takes NextTurn;
// an explicit index never moves NextTurn backwards.
func (s *SessionState) BeginTurn(requested *int) int {
	turn := s.NextTurn
	if requested != nil {
		turn = *requested
	}
	s.Topics.OnTurnStart(turn)
	s.Objects.OnTurnStart(turn)
	if turn >= s.NextTurn {
		s.NextTurn = turn + 1
	}
	return turn
}

// Validate checks the structural invariants the trackers promise.
func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if s.Topics == nil || s.Objects == nil || s.Drift == nil {
		return errors.New("session state is missing a tracker")
	}

	active := 0
	for _, n := range s.Topics.Topics() {
		if n.Status == TopicActive {
			active++
		}
	}
	if active > 1 {
		return errors.New("more than one active topic")
	}
	return nil
}
