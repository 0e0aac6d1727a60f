package contract

import "context"

// IntentClassifier produces the boolean signals the drift detector consumes.
type IntentClassifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
}

// AuditSink persists one record per processed turn.
type AuditSink interface {
	Write(ctx context.Context, rec TurnRecord) error
	Close() error
}

// TurnObserver receives every processed turn, e.g. for metrics.
type TurnObserver interface {
	ObserveTurn(rec TurnRecord)
}
