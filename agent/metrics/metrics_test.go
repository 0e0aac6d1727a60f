package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

func TestCollectorObserveTurn(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	c.ObserveTurn(contractx.TurnRecord{
		Events: []drift.Event{
			{Type: drift.TypeDenialIgnored, Severity: drift.SeverityDenialIgnored},
			{Type: drift.TypeObjectOvercommit, Severity: drift.SeverityObjectOvercommit},
		},
		Instruction: control.TurnInstruction{Mode: control.ModeRepair, MaxLength: 150},
		Critical:    true,
	})
	c.ObserveTurn(contractx.TurnRecord{
		Instruction: control.DefaultInstruction(),
	})

	if got := testutil.ToFloat64(c.TurnsTotal); got != 2 {
		t.Fatalf("TurnsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.CriticalTotal); got != 1 {
		t.Fatalf("CriticalTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.EventsTotal.WithLabelValues(string(drift.TypeDenialIgnored))); got != 1 {
		t.Fatalf("denial_ignored = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.InstructionsTotal.WithLabelValues(string(control.ModeNormal))); got != 1 {
		t.Fatalf("normal instructions = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.EventsTotal); got != 2 {
		t.Fatalf("event series = %d, want 2", got)
	}
}

func TestNewCollectorRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Fatalf("second NewCollector() error = nil")
	}
}

func TestNewCollectorWithoutRegistry(t *testing.T) {
	t.Parallel()

	c, err := NewCollector(nil)
	if err != nil {
		t.Fatalf("NewCollector(nil) error = %v", err)
	}
	c.ObserveTurn(contractx.TurnRecord{Instruction: control.DefaultInstruction()})
	if got := testutil.ToFloat64(c.TurnsTotal); got != 1 {
		t.Fatalf("TurnsTotal = %v, want 1", got)
	}
}
