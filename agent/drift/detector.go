package drift

import (
	"fmt"
	"slices"
)

type Type string

const (
	TypeTopicShift       Type = "topic_shift"
	TypeObjectOvercommit Type = "object_overcommit"
	TypeDenialIgnored    Type = "denial_ignored"
	TypeAssumptionLeap   Type = "assumption_leap"
	TypeSpeculationChain Type = "speculation_chain"
	TypeQuestionLoop     Type = "question_loop"
)

const (
	SeverityTopicShift       = 0.6
	SeverityObjectOvercommit = 0.7
	SeverityDenialIgnored    = 0.9
	SeverityAssumptionLeap   = 0.6
	SeverityQuestionLoop     = 0.5
	SeveritySpeculationChain = 0.8

	// CriticalSeverity is the threshold at or above which an event demands repair.
	CriticalSeverity = 0.8
)

const (
	questionWindow    = 5
	speculationWindow = 3

	questionLoopMin     = 3
	speculationChainMin = 2
)

// Event is one detected divergence. Description is diagnostic only.
type Event struct {
	Type        Type    `json:"type"`
	TurnIndex   int     `json:"turn_index"`
	Description string  `json:"description"`
	Severity    float64 `json:"severity"`
}

func (e Event) Critical() bool {
	return e.Severity >= CriticalSeverity
}

// UserIntent carries the externally classified signals about the user turn.
type UserIntent struct {
	ExplicitTopicChange  bool `json:"explicit_topic_change"`
	RequestedSpeculation bool `json:"requested_speculation"`
}

// AIIntent carries the externally classified signals about the AI response.
type AIIntent struct {
	Speculation      bool `json:"speculation"`
	IsQuestion       bool `json:"is_question"`
	FollowupQuestion bool `json:"followup_question"`
}

type ObjectEventType string

const (
	ObjectAssumed       ObjectEventType = "assumed"
	ObjectDeniedButUsed ObjectEventType = "denied_but_used"
)

// ObjectEvent reports how the response used a tracked entity this turn.
type ObjectEvent struct {
	Type ObjectEventType `json:"type"`
	Name string          `json:"name"`
}

type DetectInput struct {
	TurnIndex    int
	User         UserIntent
	AI           AIIntent
	TopicBefore  string
	TopicAfter   string
	ObjectEvents []ObjectEvent
}

// Detector lists drift symptoms for a turn. It neither judges nor repairs.
type Detector struct {
	lastTurn          int
	recentQuestions   []int
	recentSpeculation []int
}

func NewDetector() *Detector {
	return &Detector{lastTurn: -1}
}

func (d *Detector) LastTurn() int { return d.lastTurn }

// Detect returns events in detection order. A turn index that was already
// processed yields nil.
func (d *Detector) Detect(in DetectInput) []Event {
	if in.TurnIndex <= d.lastTurn {
		return nil
	}
	turn := in.TurnIndex
	var events []Event

	if in.TopicBefore != "" && in.TopicAfter != "" && in.TopicBefore != in.TopicAfter && !in.User.ExplicitTopicChange {
		events = append(events, Event{
			Type:        TypeTopicShift,
			TurnIndex:   turn,
			Description: fmt.Sprintf("Topic shifted from '%s' to '%s' without explicit user consent", in.TopicBefore, in.TopicAfter),
			Severity:    SeverityTopicShift,
		})
	}

	for _, ev := range in.ObjectEvents {
		switch ev.Type {
		case ObjectAssumed:
			events = append(events, Event{
				Type:        TypeObjectOvercommit,
				TurnIndex:   turn,
				Description: fmt.Sprintf("Object '%s' treated as existing without confirmation", ev.Name),
				Severity:    SeverityObjectOvercommit,
			})
		case ObjectDeniedButUsed:
			events = append(events, Event{
				Type:        TypeDenialIgnored,
				TurnIndex:   turn,
				Description: fmt.Sprintf("Denied object '%s' referenced again", ev.Name),
				Severity:    SeverityDenialIgnored,
			})
		}
	}

	if in.AI.Speculation {
		d.recentSpeculation = pushWindow(d.recentSpeculation, turn, speculationWindow)
		if !in.User.RequestedSpeculation {
			events = append(events, Event{
				Type:        TypeAssumptionLeap,
				TurnIndex:   turn,
				Description: "AI introduced speculative premise without user request",
				Severity:    SeverityAssumptionLeap,
			})
		}
	}

	if in.AI.IsQuestion {
		d.recentQuestions = pushWindow(d.recentQuestions, turn, questionWindow)
		if len(d.recentQuestions) >= questionLoopMin && !in.User.ExplicitTopicChange {
			events = append(events, Event{
				Type:        TypeQuestionLoop,
				TurnIndex:   turn,
				Description: "AI is repeatedly asking questions without resolution",
				Severity:    SeverityQuestionLoop,
			})
		}
	}

	if len(d.recentSpeculation) >= speculationChainMin && in.AI.FollowupQuestion {
		events = append(events, Event{
			Type:        TypeSpeculationChain,
			TurnIndex:   turn,
			Description: "Speculative reasoning chained across multiple turns",
			Severity:    SeveritySpeculationChain,
		})
	}

	d.lastTurn = turn
	return events
}

// HasCriticalDrift reports whether any event needs immediate repair.
func HasCriticalDrift(events []Event) bool {
	return slices.ContainsFunc(events, Event.Critical)
}

func pushWindow(window []int, turn, limit int) []int {
	window = append(window, turn)
	if len(window) > limit {
		window = slices.Clone(window[len(window)-limit:])
	}
	return window
}
