package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, level, action, detail, session_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Level, e.Action, e.Detail, e.SessionRef, e.Timestamp)
	return err
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Level != "" {
		add("level = $%d", f.Level)
	}
	if f.ActionContains != "" {
		add("action LIKE $%d", "%"+f.ActionContains+"%")
	}
	if f.SessionRef != "" {
		add("session_ref = $%d", f.SessionRef)
	}

	query := `SELECT id, level, action, detail, session_ref, created_at FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sessionRef sql.NullString
		if err := rows.Scan(&e.ID, &e.Level, &e.Action, &e.Detail, &sessionRef, &e.Timestamp); err != nil {
			return nil, err
		}
		e.SessionRef = sessionRef.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
