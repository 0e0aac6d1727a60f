package guardnode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

var ErrInvalidSession = errors.New("session id is empty")

var turnValidate = validator.New()

type GraphInput = contractx.TurnInput

type GraphOutput = contractx.TurnResult

type GraphState struct {
	Input     GraphInput
	SessionID string
	Now       time.Time

	Session   *statex.SessionState
	Created   bool
	TurnIndex int

	User           drift.UserIntent
	AI             drift.AIIntent
	UserTopics     []string
	AITopics       []string
	AIObjects      []string
	Corrections    []statex.Correction
	SuggestedFocus string

	TopicBefore  string
	TopicAfter   string
	ObjectEvents []drift.ObjectEvent
	Events       []drift.Event
	Instruction  control.TurnInstruction
	Constraints  []string
}

func ValidateTurn(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	in.SessionID = sessionID

	if err := turnValidate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	for i, c := range in.Corrections {
		if strings.TrimSpace(c.Topic) == "" {
			return nil, fmt.Errorf("%w: corrections[%d].topic is empty", contractx.ErrValidation, i)
		}
	}

	return &GraphState{
		Input:          in,
		SessionID:      sessionID,
		Now:            nowFn().UTC(),
		UserTopics:     in.UserTopics,
		AITopics:       in.AITopics,
		AIObjects:      in.AIObjects,
		Corrections:    in.Corrections,
		SuggestedFocus: strings.TrimSpace(in.SuggestedFocus),
	}, nil
}
