package audit

import (
	"context"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

var _ contractx.AuditSink = (*LogSink)(nil)

// LogSink writes one structured log line per turn.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, rec contractx.TurnRecord) error {
	evt := s.logger.Info()
	if rec.Critical {
		evt = s.logger.Warn()
	}
	types := make([]string, 0, len(rec.Events))
	for _, ev := range rec.Events {
		types = append(types, string(ev.Type))
	}
	evt.Str("record_id", rec.ID).
		Str("session_id", rec.SessionID).
		Int("turn", rec.TurnIndex).
		Str("topic_before", rec.TopicBefore).
		Str("topic_after", rec.TopicAfter).
		Strs("events", types).
		Str("mode", string(rec.Instruction.Mode)).
		Bool("allow_speculation", rec.Instruction.AllowSpeculation).
		Bool("allow_questions", rec.Instruction.AllowQuestions).
		Int("max_length", rec.Instruction.MaxLength).
		Strs("notes", rec.Instruction.Notes).
		Time("created_at", rec.CreatedAt).
		Msg("drift turn")
	return nil
}

func (s *LogSink) Close() error { return nil }
