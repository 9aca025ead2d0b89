package odontogram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS odontogram_record (
	id           TEXT PRIMARY KEY,
	patient_id   TEXT NOT NULL,
	dentition    TEXT NOT NULL,
	tooth_number INTEGER NOT NULL,
	surface      TEXT,
	condition    TEXT NOT NULL,
	notes        TEXT,
	material     TEXT,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_odontogram_record_chart ON odontogram_record (patient_id, dentition);
`

// ChartRepoSQLite keeps charts in a single SQLite file.
type ChartRepoSQLite struct {
	db *sql.DB
}

// NewChartRepoSQLite opens (or creates) the database at path. Use ":memory:"
// for a throwaway database.
func NewChartRepoSQLite(path string) (*ChartRepoSQLite, error) {
	if path == "" {
		path = "odontogram.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: writers serialize anyway and ":memory:" is per connection
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create odontogram schema: %w", err)
	}
	return &ChartRepoSQLite{db: conn}, nil
}

// DB exposes the handle for maintenance commands and tests.
func (r *ChartRepoSQLite) DB() *sql.DB { return r.db }

func (r *ChartRepoSQLite) Close() error { return r.db.Close() }

func (r *ChartRepoSQLite) Load(ctx context.Context, key ChartKey) ([]StoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tooth_number, surface, condition, notes, material
		FROM odontogram_record
		WHERE patient_id = ? AND dentition = ?
		ORDER BY tooth_number, surface`,
		key.PatientID.String(), string(key.Dentition))
	if err != nil {
		return nil, fmt.Errorf("query odontogram records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		var surface, notes, material sql.NullString
		if err := rows.Scan(&rec.ToothNumber, &surface, &rec.Condition, &notes, &material); err != nil {
			return nil, fmt.Errorf("scan odontogram record: %w", err)
		}
		rec.Surface = nullToPtr(surface)
		rec.Notes = nullToPtr(notes)
		rec.Material = nullToPtr(material)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate odontogram records: %w", err)
	}
	return out, nil
}

func (r *ChartRepoSQLite) Replace(ctx context.Context, key ChartKey, records []StoredRecord) (retErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM odontogram_record WHERE patient_id = ? AND dentition = ?`,
		key.PatientID.String(), string(key.Dentition)); err != nil {
		return fmt.Errorf("delete odontogram records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO odontogram_record (id, patient_id, dentition, tooth_number, surface, condition, notes, material)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), key.PatientID.String(), string(key.Dentition), rec.ToothNumber,
			ptrToNull(rec.Surface), rec.Condition, ptrToNull(rec.Notes), ptrToNull(rec.Material)); err != nil {
			return fmt.Errorf("insert odontogram record for tooth %d: %w", rec.ToothNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return strPtr(ns.String)
}

func ptrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
