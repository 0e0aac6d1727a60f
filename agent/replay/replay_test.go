package replay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/metrics"
)

func TestRunWeatherSwordFixture(t *testing.T) {
	t.Parallel()

	fx, err := LoadFile("testdata/weather_sword.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	report, err := Run(context.Background(), fx, WithObservers(collector))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Turns) != 4 {
		t.Fatalf("turns = %d, want 4", len(report.Turns))
	}
	for _, turn := range report.Turns {
		if len(turn.Mismatches) > 0 {
			t.Errorf("turn %d: %v", turn.Index, turn.Mismatches)
		}
	}
	if !report.Passed() {
		t.Fatalf("report failed with %d mismatches", report.Failures())
	}
	if got := testutil.ToFloat64(collector.CriticalTotal); got != 1 {
		t.Fatalf("critical turns = %v, want 1", got)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	fx, err := LoadFile("testdata/weather_sword.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	first, err := Run(context.Background(), fx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := Run(context.Background(), fx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i := range first.Turns {
		a, b := first.Turns[i].Result, second.Turns[i].Result
		if a.TopicAfter != b.TopicAfter || a.Instruction.Mode != b.Instruction.Mode || len(a.Events) != len(b.Events) {
			t.Fatalf("turn %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestRunReportsMismatches(t *testing.T) {
	t.Parallel()

	fx, err := Decode(strings.NewReader(`
name: wrong expectation
session_id: s1
turns:
  - ai: "Maybe you are hungry?"
    ai_intent:
      speculation: true
    expect:
      events: []
      mode: normal
`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	report, err := Run(context.Background(), fx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Passed() {
		t.Fatalf("report passed, want assumption_leap mismatch")
	}
	if report.Failures() != 1 {
		t.Fatalf("Failures() = %d, want 1: %v", report.Failures(), report.Turns[0].Mismatches)
	}
}

func TestDecodeRejectsBadFixtures(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown key":      "name: x\nsession_id: s\nturns:\n  - usr: hi\n",
		"no turns":         "name: x\nsession_id: s\nturns: []\n",
		"missing name":     "session_id: s\nturns:\n  - user: hi\n",
		"bad mode":         "name: x\nsession_id: s\nturns:\n  - expect:\n      mode: loud\n",
		"blank correction": "name: x\nsession_id: s\nturns:\n  - corrections:\n      - reason: nope\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(strings.NewReader(doc)); !errors.Is(err, ErrInvalidFixture) {
				t.Fatalf("Decode() error = %v, want ErrInvalidFixture", err)
			}
		})
	}
}
