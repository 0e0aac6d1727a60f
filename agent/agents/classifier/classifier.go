package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	llmx "github.com/tanpawarit/Chative-Drift-Guard/agent/llm"
	promptx "github.com/tanpawarit/Chative-Drift-Guard/agent/prompt"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

var _ contractx.IntentClassifier = (*Classifier)(nil)

// Classifier asks a chat model for the intent flags of one exchange.
type Classifier struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

type classifierLLMOutput struct {
	User           drift.UserIntent    `json:"user"`
	AI             drift.AIIntent      `json:"ai"`
	UserTopics     []string            `json:"user_topics,omitempty"`
	AITopics       []string            `json:"ai_topics,omitempty"`
	AIObjects      []string            `json:"ai_objects,omitempty"`
	Corrections    []statex.Correction `json:"corrections,omitempty"`
	SuggestedFocus string              `json:"suggested_focus,omitempty"`
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Classifier, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, contractx.ErrPromptMissing
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Classifier{runner: runner}, nil
}

// NewFromConfig builds the OpenRouter model and the embedded prompt.
func NewFromConfig(ctx context.Context, cfg llmx.Config) (*Classifier, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: classifier is disabled", contractx.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modelCfg := cfg.OpenRouter()
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	return New(ctx, chatModel, promptx.LoadPromptSet().Classifier)
}

func (c *Classifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassifyResponse, error) {
	if strings.TrimSpace(req.UserText) == "" && strings.TrimSpace(req.AIText) == "" {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: user or ai text is required", contractx.ErrValidation)
	}

	inputBytes, err := json.Marshal(req)
	if err != nil {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.ClassifyResponse{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	resp := contractx.ClassifyResponse{
		User:           out.User,
		AI:             out.AI,
		UserTopics:     cleanNames(out.UserTopics),
		AITopics:       cleanNames(out.AITopics),
		AIObjects:      cleanNames(out.AIObjects),
		Corrections:    out.Corrections,
		SuggestedFocus: strings.TrimSpace(out.SuggestedFocus),
	}
	if err := validateClassifyResponse(resp); err != nil {
		return contractx.ClassifyResponse{}, err
	}
	return resp, nil
}

func validateClassifyResponse(resp contractx.ClassifyResponse) error {
	if resp.AI.FollowupQuestion && !resp.AI.IsQuestion {
		return fmt.Errorf("%w: followup_question requires is_question", contractx.ErrSchemaViolation)
	}
	for i, c := range resp.Corrections {
		if strings.TrimSpace(c.Topic) == "" {
			return fmt.Errorf("%w: corrections[%d].topic is empty", contractx.ErrSchemaViolation, i)
		}
	}
	return nil
}

func cleanNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
