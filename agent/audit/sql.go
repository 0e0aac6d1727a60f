package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/tanpawarit/Chative-Drift-Guard/agent/control"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
	"github.com/tanpawarit/Chative-Drift-Guard/agent/drift"
)

var _ contractx.AuditSink = (*SQLSink)(nil)

type turnRow struct {
	bun.BaseModel `bun:"table:drift_turns,alias:dt"`

	ID               string        `bun:"id,pk"`
	SessionID        string        `bun:"session_id,notnull"`
	TurnIndex        int           `bun:"turn_index,notnull"`
	TopicBefore      string        `bun:"topic_before"`
	TopicAfter       string        `bun:"topic_after"`
	Mode             string        `bun:"mode,notnull"`
	AllowSpeculation bool          `bun:"allow_speculation,notnull"`
	AllowQuestions   bool          `bun:"allow_questions,notnull"`
	MaxLength        int           `bun:"max_length,notnull"`
	Critical         bool          `bun:"critical,notnull"`
	Events           []drift.Event `bun:"events,type:jsonb"`
	Notes            []string      `bun:"notes,type:jsonb"`
	CreatedAt        time.Time     `bun:"created_at,notnull"`
}

func rowFromRecord(rec contractx.TurnRecord) *turnRow {
	return &turnRow{
		ID:               rec.ID,
		SessionID:        rec.SessionID,
		TurnIndex:        rec.TurnIndex,
		TopicBefore:      rec.TopicBefore,
		TopicAfter:       rec.TopicAfter,
		Mode:             string(rec.Instruction.Mode),
		AllowSpeculation: rec.Instruction.AllowSpeculation,
		AllowQuestions:   rec.Instruction.AllowQuestions,
		MaxLength:        rec.Instruction.MaxLength,
		Critical:         rec.Critical,
		Events:           rec.Events,
		Notes:            rec.Instruction.Notes,
		CreatedAt:        rec.CreatedAt.UTC(),
	}
}

func (r *turnRow) record() contractx.TurnRecord {
	return contractx.TurnRecord{
		ID:          r.ID,
		SessionID:   r.SessionID,
		TurnIndex:   r.TurnIndex,
		TopicBefore: r.TopicBefore,
		TopicAfter:  r.TopicAfter,
		Events:      r.Events,
		Instruction: control.TurnInstruction{
			Mode:             control.Mode(r.Mode),
			AllowSpeculation: r.AllowSpeculation,
			AllowQuestions:   r.AllowQuestions,
			MaxLength:        r.MaxLength,
			Notes:            r.Notes,
		},
		Critical:  r.Critical,
		CreatedAt: r.CreatedAt,
	}
}

// SQLSink appends turn records to a drift_turns table through bun.
type SQLSink struct {
	db *bun.DB
}

func NewSQLSink(db *bun.DB) *SQLSink {
	return &SQLSink{db: db}
}

func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenSQLite uses the pure-Go driver. One connection keeps ":memory:" databases coherent.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Init creates the table and index when missing.
func (s *SQLSink) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*turnRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create drift_turns: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*turnRow)(nil)).
		Index("drift_turns_session_turn_idx").
		Column("session_id", "turn_index").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create drift_turns index: %w", err)
	}
	return nil
}

func (s *SQLSink) Write(ctx context.Context, rec contractx.TurnRecord) error {
	if _, err := s.db.NewInsert().Model(rowFromRecord(rec)).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert turn: %v", contractx.ErrAuditWrite, err)
	}
	return nil
}

// History returns a session's records in turn order.
func (s *SQLSink) History(ctx context.Context, sessionID string) ([]contractx.TurnRecord, error) {
	var rows []turnRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("turn_index ASC", "created_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	out := make([]contractx.TurnRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}
