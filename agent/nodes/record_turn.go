package guardnode

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

// RecordTurn hands the turn to the audit sink and observers. A sink failure is
// logged and never fails the turn.
func RecordTurn(
	ctx context.Context,
	in *GraphState,
	sink contractx.AuditSink,
	observers []contractx.TurnObserver,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	rec := contractx.TurnRecord{
		ID:          uuid.NewString(),
		SessionID:   in.SessionID,
		TurnIndex:   in.TurnIndex,
		TopicBefore: in.TopicBefore,
		TopicAfter:  in.TopicAfter,
		Events:      in.Events,
		Instruction: in.Instruction,
		Critical:    drift.HasCriticalDrift(in.Events),
		CreatedAt:   in.Now,
	}

	if sink != nil {
		if err := sink.Write(ctx, rec); err != nil {
			log.Error().Err(err).
				Str("session_id", rec.SessionID).
				Int("turn", rec.TurnIndex).
				Msg("audit write failed")
		}
	}
	for _, obs := range observers {
		if obs != nil {
			obs.ObserveTurn(rec)
		}
	}
	return in, nil
}
