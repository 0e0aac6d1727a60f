package guardnode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

// DiffObjects classifies the entities the AI response relies on, against the
// registry as it stands before the response is recorded.
func DiffObjects(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.ObjectEvents = MentionEvents(in.Session.Objects, in.AIObjects)
	return in, nil
}

// MentionEvents reports denied_but_used for DENIED names and assumed for
// anything not CONFIRMED. Names are deduplicated by normalized id.
func MentionEvents(reg *statex.ObjectRegistry, names []string) []drift.ObjectEvent {
	var out []drift.ObjectEvent
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		id := statex.NormalizeID(name)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		switch {
		case reg.IsDenied(name):
			out = append(out, drift.ObjectEvent{Type: drift.ObjectDeniedButUsed, Name: id})
		case !reg.CanAssumeExists(name):
			out = append(out, drift.ObjectEvent{Type: drift.ObjectAssumed, Name: id})
		}
	}
	return out
}
