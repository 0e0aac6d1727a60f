package contract

import (
	"time"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

type ClassifyRequest struct {
	UserText     string   `json:"user_text"`
	AIText       string   `json:"ai_text"`
	ActiveTopic  string   `json:"active_topic,omitempty"`
	KnownTopics  []string `json:"known_topics,omitempty"`
	KnownObjects []string `json:"known_objects,omitempty"`
}

// ClassifyResponse carries intent flags plus optional candidate lists. Empty
// lists mean the classifier found nothing, not that the caller's lists are wrong.
type ClassifyResponse struct {
	User drift.UserIntent `json:"user"`
	AI   drift.AIIntent   `json:"ai"`

	UserTopics     []string            `json:"user_topics,omitempty"`
	AITopics       []string            `json:"ai_topics,omitempty"`
	AIObjects      []string            `json:"ai_objects,omitempty"`
	Corrections    []statex.Correction `json:"corrections,omitempty"`
	SuggestedFocus string              `json:"suggested_focus,omitempty"`
}

// TurnRecord is the audit trail of one processed turn.
type TurnRecord struct {
	ID          string                  `json:"id"`
	SessionID   string                  `json:"session_id"`
	TurnIndex   int                     `json:"turn_index"`
	TopicBefore string                  `json:"topic_before,omitempty"`
	TopicAfter  string                  `json:"topic_after,omitempty"`
	Events      []drift.Event           `json:"events"`
	Instruction control.TurnInstruction `json:"instruction"`
	Critical    bool                    `json:"critical"`
	CreatedAt   time.Time               `json:"created_at"`
}

// TurnInput is one exchange as seen by the guard. Intent pointers left nil
// are filled by the classifier when one is configured, else zero.
type TurnInput struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	TurnIndex *int   `json:"turn_index,omitempty" validate:"omitempty,gte=0,lte=1000000000"`

	UserText string `json:"user_text,omitempty"`
	AIText   string `json:"ai_text,omitempty"`

	UserTopics       []string            `json:"user_topics,omitempty" validate:"dive,max=200"`
	AITopics         []string            `json:"ai_topics,omitempty" validate:"dive,max=200"`
	TopicParent      string              `json:"topic_parent,omitempty"`
	Corrections      []statex.Correction `json:"corrections,omitempty"`
	ConfirmedObjects []string            `json:"confirmed_objects,omitempty" validate:"dive,max=200"`
	DeniedObjects    []string            `json:"denied_objects,omitempty" validate:"dive,max=200"`
	AIObjects        []string            `json:"ai_objects,omitempty" validate:"dive,max=200"`
	SuggestedFocus   string              `json:"suggested_focus,omitempty"`
	FallbackToRecent bool                `json:"fallback_to_recent,omitempty"`

	UserIntent *drift.UserIntent `json:"user_intent,omitempty"`
	AIIntent   *drift.AIIntent   `json:"ai_intent,omitempty"`
}

// TurnResult is what prompt assembly consumes for the next response.
type TurnResult struct {
	SessionID   string                  `json:"session_id"`
	TurnIndex   int                     `json:"turn_index"`
	TopicBefore string                  `json:"topic_before,omitempty"`
	TopicAfter  string                  `json:"topic_after,omitempty"`
	Events      []drift.Event           `json:"events"`
	Instruction control.TurnInstruction `json:"instruction"`
	Constraints []string                `json:"constraints"`
	// Directive is Constraints rendered as a bullet block for a system message.
	Directive string `json:"directive"`
	Critical  bool   `json:"critical"`
}
