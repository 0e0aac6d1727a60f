// Package metrics exports per-turn drift counters to Prometheus.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

const (
	namespace = "drift_guard"
	subsystem = "turns"
)

var _ contractx.TurnObserver = (*Collector)(nil)

// Collector counts processed turns, drift events and the instructions issued.
type Collector struct {
	TurnsTotal        prometheus.Counter
	CriticalTotal     prometheus.Counter
	EventsTotal       *prometheus.CounterVec
	InstructionsTotal *prometheus.CounterVec
	MaxLength         prometheus.Histogram
}

// NewCollector registers the metrics on reg. A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "processed_total",
			Help:      "Turns processed by the guard.",
		}),
		CriticalTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "critical_total",
			Help:      "Turns with at least one critical drift event.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drift_events_total",
			Help:      "Drift events by type.",
		}, []string{"type"}),
		InstructionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "instructions_total",
			Help:      "Turn instructions by mode.",
		}, []string{"mode"}),
		MaxLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "max_length",
			Help:      "Response length cap handed to prompt assembly.",
			Buckets:   []float64{120, 150, 180, 300},
		}),
	}

	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{
		c.TurnsTotal,
		c.CriticalTotal,
		c.EventsTotal,
		c.InstructionsTotal,
		c.MaxLength,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register drift metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) ObserveTurn(rec contractx.TurnRecord) {
	c.TurnsTotal.Inc()
	if rec.Critical {
		c.CriticalTotal.Inc()
	}
	for _, ev := range rec.Events {
		c.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
	}
	c.InstructionsTotal.WithLabelValues(string(rec.Instruction.Mode)).Inc()
	c.MaxLength.Observe(float64(rec.Instruction.MaxLength))
}
