package guardnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

func LoadOrCreateSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	cfg statex.TrackerConfig,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrStateNotFound):
		st = statex.NewSessionState(in.SessionID, cfg, in.Now)
		in.Created = true
	default:
		return nil, err
	}

	in.Session = st
	in.TurnIndex = st.BeginTurn(in.Input.TurnIndex)
	in.TopicBefore = st.Topics.ActiveTopicID()
	return in, nil
}
