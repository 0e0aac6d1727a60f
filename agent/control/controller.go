package control

import (
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

type Mode string

const (
	ModeNormal        Mode = "normal"
	ModeRefocus       Mode = "refocus"
	ModeFactOnly      Mode = "fact_only"
	ModeNoQuestion    Mode = "no_question"
	ModeRepair        Mode = "repair"
	ModeShortResponse Mode = "short_response"
)

const (
	DefaultMaxLength = 300

	repairMaxLength           = 150
	questionLoopMaxLength     = 180
	speculationChainMaxLength = 200
	multiEventMaxLength       = 120

	multiEventThreshold = 3
)

// TurnInstruction is the bounded set of generation constraints for the next response.
type TurnInstruction struct {
	Mode             Mode     `json:"mode"`
	AllowSpeculation bool     `json:"allow_speculation"`
	AllowQuestions   bool     `json:"allow_questions"`
	MaxLength        int      `json:"max_length"`
	Notes            []string `json:"notes,omitempty"`
}

func DefaultInstruction() TurnInstruction {
	return TurnInstruction{
		Mode:             ModeNormal,
		AllowSpeculation: true,
		AllowQuestions:   true,
		MaxLength:        DefaultMaxLength,
	}
}

// Controller reduces drift events into one instruction. It holds no state.
type Controller struct{}

func NewController() *Controller {
	return &Controller{}
}

// Decide applies the per-event rules in input order, so mode is last-write-wins
// over the detection order. The critical override and the multi-event cap run last.
func (c *Controller) Decide(events []drift.Event) TurnInstruction {
	out := DefaultInstruction()

	for _, ev := range events {
		switch ev.Type {
		case drift.TypeObjectOvercommit:
			out.AllowSpeculation = false
			out.note("Disable speculation due to object overcommit")
		case drift.TypeAssumptionLeap:
			out.AllowSpeculation = false
			out.note("Prevent assumption leap")
		case drift.TypeDenialIgnored:
			out.Mode = ModeRepair
			out.AllowQuestions = false
			out.AllowSpeculation = false
			out.capLength(repairMaxLength)
			out.note("Repair mode due to denial ignored")
		case drift.TypeTopicShift:
			out.Mode = ModeRefocus
			out.note("Refocus conversation topic")
		case drift.TypeQuestionLoop:
			out.AllowQuestions = false
			out.capLength(questionLoopMaxLength)
			out.note("Question loop detected, disable questions")
		case drift.TypeSpeculationChain:
			out.Mode = ModeFactOnly
			out.AllowSpeculation = false
			out.AllowQuestions = false
			out.capLength(speculationChainMaxLength)
			out.note("Speculation chain stopped")
		}
	}

	if drift.HasCriticalDrift(events) {
		out.Mode = ModeRepair
		out.AllowSpeculation = false
		out.AllowQuestions = false
		out.capLength(repairMaxLength)
		out.note("Critical drift override applied")
	}

	if len(events) >= multiEventThreshold {
		out.capLength(multiEventMaxLength)
		out.note("Multiple drift events, enforce short response")
	}

	return out
}

func (i *TurnInstruction) capLength(limit int) {
	i.MaxLength = min(i.MaxLength, limit)
}

func (i *TurnInstruction) note(s string) {
	i.Notes = append(i.Notes, s)
}
