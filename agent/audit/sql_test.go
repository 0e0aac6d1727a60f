package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

func newSQLiteSink(t *testing.T) *SQLSink {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	sink := NewSQLSink(db)
	t.Cleanup(func() { _ = sink.Close() })

	if err := sink.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return sink
}

func sampleRecord(id string, turn int, created time.Time) contractx.TurnRecord {
	return contractx.TurnRecord{
		ID:          id,
		SessionID:   "s1",
		TurnIndex:   turn,
		TopicBefore: "weather",
		TopicAfter:  "lunch",
		Events: []drift.Event{{
			Type:        drift.TypeTopicShift,
			TurnIndex:   turn,
			Description: "Topic shifted from 'weather' to 'lunch' without user consent",
			Severity:    drift.SeverityTopicShift,
		}},
		Instruction: control.TurnInstruction{
			Mode:             control.ModeRefocus,
			AllowSpeculation: true,
			AllowQuestions:   true,
			MaxLength:        300,
			Notes:            []string{"Refocus conversation topic"},
		},
		CreatedAt: created,
	}
}

func TestSQLSinkHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := newSQLiteSink(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	second := sampleRecord("rec-2", 2, created.Add(time.Minute))
	second.Critical = true
	first := sampleRecord("rec-1", 1, created)

	for _, rec := range []contractx.TurnRecord{second, first} {
		if err := sink.Write(ctx, rec); err != nil {
			t.Fatalf("Write(%s) error = %v", rec.ID, err)
		}
	}

	got, err := sink.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History() len = %d, want 2", len(got))
	}

	want := []contractx.TurnRecord{first, second}
	for i := range got {
		if !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Fatalf("record %d CreatedAt = %v, want %v", i, got[i].CreatedAt, want[i].CreatedAt)
		}
		got[i].CreatedAt = want[i].CreatedAt
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("History() mismatch (-want +got):\n%s", diff)
	}

	other, err := sink.History(ctx, "s2")
	if err != nil {
		t.Fatalf("History(s2) error = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("History(s2) = %v, want empty", other)
	}
}

func TestSQLSinkInitIsRepeatable(t *testing.T) {
	t.Parallel()

	sink := newSQLiteSink(t)
	if err := sink.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
}
