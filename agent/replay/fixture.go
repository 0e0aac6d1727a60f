// Package replay runs recorded conversations through a fresh guard and checks
// the drift events and instructions each turn produced.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

var (
	ErrInvalidFixture = errors.New("invalid replay fixture")

	fixtureValidate = validator.New()
)

// Fixture is one recorded conversation.
type Fixture struct {
	Name      string `yaml:"name" validate:"required"`
	SessionID string `yaml:"session_id" validate:"required,max=128"`
	Turns     []Turn `yaml:"turns" validate:"required,min=1,dive"`
}

type Turn struct {
	UserText string `yaml:"user"`
	AIText   string `yaml:"ai"`

	UserTopics       []string     `yaml:"user_topics"`
	AITopics         []string     `yaml:"ai_topics"`
	TopicParent      string       `yaml:"topic_parent"`
	Corrections      []Correction `yaml:"corrections" validate:"dive"`
	ConfirmedObjects []string     `yaml:"confirmed_objects"`
	DeniedObjects    []string     `yaml:"denied_objects"`
	AIObjects        []string     `yaml:"ai_objects"`
	SuggestedFocus   string       `yaml:"suggested_focus"`
	FallbackToRecent bool         `yaml:"fallback_to_recent"`

	UserIntent UserIntent `yaml:"user_intent"`
	AIIntent   AIIntent   `yaml:"ai_intent"`

	Expect *Expectation `yaml:"expect"`
}

type Correction struct {
	Topic  string `yaml:"topic" validate:"required"`
	Reason string `yaml:"reason"`
}

type UserIntent struct {
	ExplicitTopicChange  bool `yaml:"explicit_topic_change"`
	RequestedSpeculation bool `yaml:"requested_speculation"`
}

type AIIntent struct {
	Speculation      bool `yaml:"speculation"`
	IsQuestion       bool `yaml:"is_question"`
	FollowupQuestion bool `yaml:"followup_question"`
}

// Expectation is checked against the turn result. Nil fields are not checked;
// Events, when present, must match exactly and in order.
type Expectation struct {
	Events     *[]string `yaml:"events"`
	Mode       string    `yaml:"mode" validate:"omitempty,oneof=normal refocus fact_only no_question repair short_response"`
	MaxLength  int       `yaml:"max_length" validate:"gte=0"`
	TopicAfter *string   `yaml:"topic_after"`
	Critical   *bool     `yaml:"critical"`
}

// LoadFile reads and validates a fixture.
func LoadFile(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	fx, err := Decode(f)
	if err != nil {
		return Fixture{}, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// Decode parses one YAML fixture. Unknown keys are rejected.
func Decode(r io.Reader) (Fixture, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return Fixture{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := fixtureValidate.Struct(fx); err != nil {
		return Fixture{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return fx, nil
}

// Input converts the turn to guard input. Intents are always explicit so a
// replay never reaches a classifier.
func (t Turn) Input(sessionID string, index int) contractx.TurnInput {
	user := drift.UserIntent{
		ExplicitTopicChange:  t.UserIntent.ExplicitTopicChange,
		RequestedSpeculation: t.UserIntent.RequestedSpeculation,
	}
	ai := drift.AIIntent{
		Speculation:      t.AIIntent.Speculation,
		IsQuestion:       t.AIIntent.IsQuestion,
		FollowupQuestion: t.AIIntent.FollowupQuestion,
	}

	var corrections []statex.Correction
	for _, c := range t.Corrections {
		corrections = append(corrections, statex.Correction{Topic: c.Topic, Reason: c.Reason})
	}

	turn := index
	return contractx.TurnInput{
		SessionID:        sessionID,
		TurnIndex:        &turn,
		UserText:         t.UserText,
		AIText:           t.AIText,
		UserTopics:       t.UserTopics,
		AITopics:         t.AITopics,
		TopicParent:      t.TopicParent,
		Corrections:      corrections,
		ConfirmedObjects: t.ConfirmedObjects,
		DeniedObjects:    t.DeniedObjects,
		AIObjects:        t.AIObjects,
		SuggestedFocus:   t.SuggestedFocus,
		FallbackToRecent: t.FallbackToRecent,
		UserIntent:       &user,
		AIIntent:         &ai,
	}
}

// Mismatches lists every expectation the result fails.
func (e *Expectation) Mismatches(res contractx.TurnResult) []string {
	if e == nil {
		return nil
	}

	var out []string
	if e.Events != nil {
		got := make([]string, 0, len(res.Events))
		for _, ev := range res.Events {
			got = append(got, string(ev.Type))
		}
		if !slices.Equal(*e.Events, got) {
			out = append(out, fmt.Sprintf("events = %v, want %v", got, *e.Events))
		}
	}
	if e.Mode != "" && string(res.Instruction.Mode) != e.Mode {
		out = append(out, fmt.Sprintf("mode = %s, want %s", res.Instruction.Mode, e.Mode))
	}
	if e.MaxLength > 0 && res.Instruction.MaxLength != e.MaxLength {
		out = append(out, fmt.Sprintf("max_length = %d, want %d", res.Instruction.MaxLength, e.MaxLength))
	}
	if e.TopicAfter != nil && res.TopicAfter != *e.TopicAfter {
		out = append(out, fmt.Sprintf("topic_after = %q, want %q", res.TopicAfter, *e.TopicAfter))
	}
	if e.Critical != nil && res.Critical != *e.Critical {
		out = append(out, fmt.Sprintf("critical = %t, want %t", res.Critical, *e.Critical))
	}
	return out
}
