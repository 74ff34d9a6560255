package sink

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlSink appends records to an "events" table. The sqlite and postgres
// drivers differ only in DDL and placeholder syntax.
type sqlSink struct {
	db     *sql.DB
	insert string
}

const insertColumns = "seq, source, received_at, event_id, event_type, data, retry"

func newSQLSink(ctx context.Context, db *sql.DB, ddl, insert string) (*sqlSink, error) {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &sqlSink{db: db, insert: insert}, nil
}

func (s *sqlSink) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}

	var retry sql.NullInt64
	if rec.Event.Retry != nil {
		retry = sql.NullInt64{Int64: int64(*rec.Event.Retry), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.insert,
		rec.Seq,
		rec.Source,
		rec.ReceivedAt,
		rec.Event.ID,
		rec.Event.Event,
		rec.Event.Data,
		retry,
	)
	if err != nil {
		return fmt.Errorf("inserting event %d: %w", rec.Seq, err)
	}
	return nil
}

func (s *sqlSink) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *sqlSink) DB() *sql.DB {
	return s.db
}
