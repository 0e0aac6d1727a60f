package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

func ev(typ drift.Type, severity float64) drift.Event {
	return drift.Event{Type: typ, Severity: severity}
}

func TestDecideNoEvents(t *testing.T) {
	t.Parallel()

	got := NewController().Decide(nil)
	if diff := cmp.Diff(DefaultInstruction(), got); diff != "" {
		t.Fatalf("Decide(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideTopicShiftRefocuses(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{ev(drift.TypeTopicShift, drift.SeverityTopicShift)})
	want := TurnInstruction{
		Mode:             ModeRefocus,
		AllowSpeculation: true,
		AllowQuestions:   true,
		MaxLength:        300,
		Notes:            []string{"Refocus conversation topic"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideQuestionLoop(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{ev(drift.TypeQuestionLoop, drift.SeverityQuestionLoop)})
	if got.Mode != ModeNormal || got.AllowQuestions || got.MaxLength != 180 {
		t.Fatalf("Decide() = %+v", got)
	}
}

func TestDecideCriticalOverride(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{
		ev(drift.TypeDenialIgnored, drift.SeverityDenialIgnored),
		ev(drift.TypeTopicShift, drift.SeverityTopicShift),
	})
	want := TurnInstruction{
		Mode:             ModeRepair,
		AllowSpeculation: false,
		AllowQuestions:   false,
		MaxLength:        150,
		Notes: []string{
			"Repair mode due to denial ignored",
			"Refocus conversation topic",
			"Critical drift override applied",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideSpeculationChainIsRepairedAsCritical(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{
		ev(drift.TypeAssumptionLeap, drift.SeverityAssumptionLeap),
		ev(drift.TypeSpeculationChain, drift.SeveritySpeculationChain),
	})
	if got.Mode != ModeRepair || got.MaxLength != 150 || got.AllowSpeculation || got.AllowQuestions {
		t.Fatalf("Decide() = %+v", got)
	}
}

func TestDecideModeIsLastWriteWins(t *testing.T) {
	t.Parallel()

	c := NewController()
	// the lower-severity copy keeps the critical override out of the way
	chainFirst := c.Decide([]drift.Event{
		ev(drift.TypeSpeculationChain, 0.5),
		ev(drift.TypeTopicShift, drift.SeverityTopicShift),
	})
	if chainFirst.Mode != ModeRefocus {
		t.Fatalf("Mode = %s, want refocus", chainFirst.Mode)
	}

	shiftFirst := c.Decide([]drift.Event{
		ev(drift.TypeTopicShift, drift.SeverityTopicShift),
		ev(drift.TypeSpeculationChain, 0.5),
	})
	if shiftFirst.Mode != ModeFactOnly {
		t.Fatalf("Mode = %s, want fact_only", shiftFirst.Mode)
	}
}

func TestDecideManyEventsCapLength(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{
		ev(drift.TypeTopicShift, drift.SeverityTopicShift),
		ev(drift.TypeObjectOvercommit, drift.SeverityObjectOvercommit),
		ev(drift.TypeQuestionLoop, drift.SeverityQuestionLoop),
	})
	want := TurnInstruction{
		Mode:             ModeRefocus,
		AllowSpeculation: false,
		AllowQuestions:   false,
		MaxLength:        120,
		Notes: []string{
			"Refocus conversation topic",
			"Disable speculation due to object overcommit",
			"Question loop detected, disable questions",
			"Multiple drift events, enforce short response",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Decide() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideLengthNeverGrows(t *testing.T) {
	t.Parallel()

	got := NewController().Decide([]drift.Event{
		ev(drift.TypeQuestionLoop, drift.SeverityQuestionLoop),
		ev(drift.TypeSpeculationChain, 0.5),
	})
	if got.MaxLength != 180 {
		t.Fatalf("MaxLength = %d, want 180", got.MaxLength)
	}
}
