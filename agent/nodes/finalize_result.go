package guardnode

import (
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	promptx "github.com/tanpawarit/Chative-Drift-Guard/agent/prompt"
)

func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	events := in.Events
	if events == nil {
		events = []drift.Event{}
	}
	out := GraphOutput{
		SessionID:   in.SessionID,
		TurnIndex:   in.TurnIndex,
		TopicBefore: in.TopicBefore,
		TopicAfter:  in.TopicAfter,
		Events:      events,
		Instruction: in.Instruction,
		Constraints: in.Constraints,
		Directive:   promptx.RenderConstraints(in.Constraints),
		Critical:    drift.HasCriticalDrift(events),
	}

	evt := log.Debug()
	if len(events) > 0 {
		evt = log.Info()
	}
	evt.Str("session_id", out.SessionID).
		Int("turn", out.TurnIndex).
		Str("mode", string(out.Instruction.Mode)).
		Int("events", len(events)).
		Bool("critical", out.Critical).
		Bool("new_session", in.Created).
		Msg("turn processed")

	return out, nil
}
