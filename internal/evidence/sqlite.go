package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteBacking keeps evidence units in a SQLite file written by the ingest
// command and read back by the API on start.
type SQLiteBacking struct {
	db *sql.DB
}

// OpenSQLite opens the evidence database at dsn and configures WAL mode.
func OpenSQLite(dsn string) (*SQLiteBacking, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteBacking{db: db}, nil
}

const evidenceMigration = `
CREATE TABLE IF NOT EXISTS evidence_units (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL,
	title       TEXT NOT NULL,
	payload     TEXT NOT NULL,
	ingested_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evidence_units_seq ON evidence_units(seq);
`

func (s *SQLiteBacking) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, evidenceMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteBacking) Close() error {
	return s.db.Close()
}

// Put upserts unit. Re-ingesting an id moves it to the end of the
// ingestion order.
func (s *SQLiteBacking) Put(ctx context.Context, unit Unit) error {
	payload, err := json.Marshal(unit)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal unit")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evidence_units (id, seq, title, payload, ingested_at) VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM evidence_units), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, title = excluded.title, payload = excluded.payload, ingested_at = excluded.ingested_at`,
		unit.ID, unit.Title, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert evidence %s", unit.ID)
}

// LoadAll returns units in ingestion order.
func (s *SQLiteBacking) LoadAll(ctx context.Context) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM evidence_units ORDER BY seq ASC, id ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query evidence")
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence")
		}
		var u Unit
		if err := json.Unmarshal([]byte(payload), &u); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode evidence")
		}
		units = append(units, u)
	}
	return units, eris.Wrap(rows.Err(), "sqlite: iterate evidence")
}
