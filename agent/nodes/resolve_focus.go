package guardnode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

func ResolveFocus(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.TopicAfter = in.Session.Topics.FinalizeFocus(in.SuggestedFocus, in.Input.FallbackToRecent)
	return in, nil
}
