package guardnode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

func DetectDrift(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.Events = in.Session.Drift.Detect(drift.DetectInput{
		TurnIndex:    in.TurnIndex,
		User:         in.User,
		AI:           in.AI,
		TopicBefore:  in.TopicBefore,
		TopicAfter:   in.TopicAfter,
		ObjectEvents: in.ObjectEvents,
	})
	return in, nil
}
