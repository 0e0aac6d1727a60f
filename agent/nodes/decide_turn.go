package guardnode

import (
	"fmt"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	promptx "github.com/tanpawarit/Chative-Drift-Guard/agent/prompt"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

func DecideTurn(in *GraphState, controller *control.Controller) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.Instruction = controller.Decide(in.Events)
	in.Constraints = promptx.BuildConstraints(in.Instruction, constraintHints(in.Session))
	return in, nil
}

func constraintHints(st *statex.SessionState) promptx.Hints {
	hints := promptx.Hints{
		AvoidAssertiveQuestions: st.Topics.ShouldAvoidAssertiveQuestions(),
	}
	if active, ok := st.Topics.ActiveTopic(); ok {
		hints.ActiveTopic = active.Label
	}
	for _, n := range st.Topics.RejectedTopics() {
		hints.RejectedTopics = append(hints.RejectedTopics, n.Label)
	}
	for _, n := range st.Objects.Objects() {
		switch n.Status {
		case statex.ObjectDenied:
			hints.DeniedObjects = append(hints.DeniedObjects, n.Label)
		case statex.ObjectAssumed, statex.ObjectUnknown:
			hints.CautiousObjects = append(hints.CautiousObjects, n.Label)
		case statex.ObjectConfirmed:
		}
	}
	return hints
}
