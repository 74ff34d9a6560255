package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	seq         INTEGER NOT NULL,
	source      TEXT NOT NULL,
	received_at TIMESTAMP NOT NULL,
	event_id    TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	data        TEXT NOT NULL,
	retry       INTEGER
)`

// SQLite appends records to a SQLite database.
type SQLite struct {
	*sqlSink
}

// NewSQLite opens dbPath, which can be a file path or ":memory:", and
// creates the events table if needed.
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each :memory: connection is a separate database.
	db.SetMaxOpenConns(1)

	s, err := newSQLSink(ctx, db, sqliteSchema,
		"INSERT INTO events ("+insertColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	return &SQLite{sqlSink: s}, nil
}
