package guardnode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

// ApplyAITurn records what the response introduced. Confirmed objects are left
// alone so a mention never downgrades them.
func ApplyAITurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	st := in.Session
	text := in.Input.AIText

	for _, name := range in.AIObjects {
		if st.Objects.CanAssumeExists(name) {
			continue
		}
		st.Objects.RegisterAssumed(name, statex.RoleAI, text, "")
	}

	candidates := in.AITopics
	if len(candidates) == 0 {
		candidates = statex.NaiveExtractTopics(text)
	}
	if len(candidates) > 0 {
		st.Topics.RegisterCandidates(statex.CandidateBatch{
			Role:        statex.RoleAI,
			Text:        text,
			Candidates:  candidates,
			Speculative: in.AI.Speculation,
		})
	}
	return in, nil
}
