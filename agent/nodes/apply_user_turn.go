package guardnode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

// ApplyUserTurn records what the user established: denials, confirmations,
// topic rejections and the topics the user raised.
func ApplyUserTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	st := in.Session
	text := in.Input.UserText

	for _, name := range in.Input.DeniedObjects {
		st.Objects.Deny(name, statex.RoleUser, text, "")
	}
	for _, name := range in.Input.ConfirmedObjects {
		st.Objects.Confirm(name, statex.RoleUser, text, "")
	}

	st.Topics.ApplyUserCorrections(text, in.Corrections)

	candidates := in.UserTopics
	if len(candidates) == 0 {
		candidates = statex.NaiveExtractTopics(text)
	}
	if len(candidates) > 0 {
		st.Topics.RegisterCandidates(statex.CandidateBatch{
			Role:       statex.RoleUser,
			Text:       text,
			Candidates: candidates,
			ParentHint: in.Input.TopicParent,
		})
	}
	return in, nil
}
