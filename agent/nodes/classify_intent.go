package guardnode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

// ClassifyIntent fills whatever the caller left out. Caller-supplied values win.
func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	classifier contractx.IntentClassifier,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Input.UserIntent != nil {
		in.User = *in.Input.UserIntent
	}
	if in.Input.AIIntent != nil {
		in.AI = *in.Input.AIIntent
	}
	if classifier == nil || (in.Input.UserIntent != nil && in.Input.AIIntent != nil) {
		return in, nil
	}

	resp, err := classifier.Classify(ctx, contractx.ClassifyRequest{
		UserText:     in.Input.UserText,
		AIText:       in.Input.AIText,
		ActiveTopic:  in.TopicBefore,
		KnownTopics:  topicLabels(in.Session.Topics),
		KnownObjects: objectLabels(in.Session.Objects),
	})
	if err != nil {
		return nil, err
	}

	if in.Input.UserIntent == nil {
		in.User = resp.User
	}
	if in.Input.AIIntent == nil {
		in.AI = resp.AI
	}
	if len(in.UserTopics) == 0 {
		in.UserTopics = resp.UserTopics
	}
	if len(in.AITopics) == 0 {
		in.AITopics = resp.AITopics
	}
	if len(in.AIObjects) == 0 {
		in.AIObjects = resp.AIObjects
	}
	if len(in.Corrections) == 0 {
		in.Corrections = resp.Corrections
	}
	if in.SuggestedFocus == "" {
		in.SuggestedFocus = resp.SuggestedFocus
	}
	return in, nil
}

func topicLabels(t *statex.TopicTracker) []string {
	nodes := t.Topics()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}

func objectLabels(r *statex.ObjectRegistry) []string {
	nodes := r.Objects()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}
