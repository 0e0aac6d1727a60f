package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

// Open builds the sink named by cfg.Driver. SQL sinks get their schema created.
func Open(ctx context.Context, cfg Config) (contractx.AuditSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverPostgres:
		sink := NewSQLSink(OpenPostgres(cfg.DSN))
		if err := sink.Init(ctx); err != nil {
			_ = sink.Close()
			return nil, err
		}
		return sink, nil
	case DriverSQLite:
		db, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		sink := NewSQLSink(db)
		if err := sink.Init(ctx); err != nil {
			_ = sink.Close()
			return nil, err
		}
		return sink, nil
	case DriverUpstash:
		sink, err := NewUpstashSink(cfg.Upstash)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case DriverQStash:
		sink, err := NewQStashSink(cfg.QStash)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case DriverLog:
		return NewLogSink(log.Logger), nil
	case DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}
