package replay

import (
	"context"
	"fmt"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/agents/guard"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	statex "github.com/tanpawarit/Chative-Drift-Guard/agent/state"
)

// TurnReport is the outcome of one replayed turn.
type TurnReport struct {
	Index      int                  `json:"index"`
	Result     contractx.TurnResult `json:"result"`
	Mismatches []string             `json:"mismatches,omitempty"`
}

type Report struct {
	Name  string       `json:"name"`
	Turns []TurnReport `json:"turns"`
}

func (r Report) Passed() bool {
	for _, t := range r.Turns {
		if len(t.Mismatches) > 0 {
			return false
		}
	}
	return true
}

func (r Report) Failures() int {
	n := 0
	for _, t := range r.Turns {
		n += len(t.Mismatches)
	}
	return n
}

type Option func(*runner)

type runner struct {
	tracker   statex.TrackerConfig
	sink      contractx.AuditSink
	observers []contractx.TurnObserver
}

func WithTrackerConfig(cfg statex.TrackerConfig) Option {
	return func(r *runner) { r.tracker = cfg }
}

// WithAuditSink records replayed turns, e.g. to compare against a live history.
func WithAuditSink(sink contractx.AuditSink) Option {
	return func(r *runner) { r.sink = sink }
}

func WithObservers(obs ...contractx.TurnObserver) Option {
	return func(r *runner) { r.observers = append(r.observers, obs...) }
}

// Run replays the fixture through a guard with an empty in-memory store.
// Turns are numbered from zero in file order.
func Run(ctx context.Context, fx Fixture, opts ...Option) (Report, error) {
	r := &runner{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	g, err := guard.New(statex.NewMemoryStore(statex.WithTTL(0)), r.sink, guard.Config{
		Tracker:   r.tracker,
		Observers: r.observers,
	})
	if err != nil {
		return Report{}, fmt.Errorf("build guard: %w", err)
	}

	report := Report{Name: fx.Name, Turns: make([]TurnReport, 0, len(fx.Turns))}
	for i, turn := range fx.Turns {
		res, err := g.HandleTurn(ctx, turn.Input(fx.SessionID, i))
		if err != nil {
			return report, fmt.Errorf("turn %d: %w", i, err)
		}
		report.Turns = append(report.Turns, TurnReport{
			Index:      i,
			Result:     res,
			Mismatches: turn.Expect.Mismatches(res),
		})
	}
	return report, nil
}
