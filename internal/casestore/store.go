// Package casestore persists finished analysis sessions to SQLite: one row
// per completed session, the full session serialized into a JSON column.
// The store is append-only; nothing in the pipeline reads it back.
package casestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/col-analyzer/internal/colanalysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS case_analyses (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    TEXT NOT NULL,
	username      TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	case_citation TEXT NOT NULL,
	data          TEXT NOT NULL
);
`

// Columns added after the initial schema. Upgrades are additive and
// idempotent: a column is added only when pragma table_info does not list
// it yet.
var upgrades = []struct {
	column string
	decl   string
}{
	{"user_email", "TEXT NOT NULL DEFAULT ''"},
}

type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := applyUpgrades(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func applyUpgrades(db *sqlx.DB) error {
	existing := map[string]bool{}
	rows, err := db.Query(`SELECT name FROM pragma_table_info('case_analyses')`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, up := range upgrades {
		if existing[up.column] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE case_analyses ADD COLUMN %s %s", up.column, up.decl)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s: %w", up.column, err)
		}
	}
	return nil
}

// Save inserts one row for the finished session.
func (s *Store) Save(ctx context.Context, session *colanalysis.Session) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO case_analyses (created_at, username, model, case_citation, user_email, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		session.Username,
		session.Model,
		session.CaseCitation,
		session.UserEmail,
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert case analysis: %w", err)
	}
	return nil
}

// Count reports the number of persisted analyses; used by health checks and
// tests.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM case_analyses`); err != nil {
		return 0, err
	}
	return n, nil
}

var _ colanalysis.RecordStore = (*Store)(nil)
