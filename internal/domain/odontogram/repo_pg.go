package odontogram

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/odontogram/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type chartRepoPG struct{ pool *pgxpool.Pool }

func NewChartRepoPG(pool *pgxpool.Pool) ChartRepository {
	return &chartRepoPG{pool: pool}
}

func (r *chartRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

var recordCopyCols = []string{"id", "patient_id", "dentition", "tooth_number", "surface", "condition", "notes", "material"}

func (r *chartRepoPG) Load(ctx context.Context, key ChartKey) ([]StoredRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT tooth_number, surface, condition, notes, material
		FROM odontogram_record
		WHERE patient_id = $1 AND dentition = $2
		ORDER BY tooth_number, surface NULLS FIRST`,
		key.PatientID, string(key.Dentition))
	if err != nil {
		return nil, fmt.Errorf("query odontogram records: %w", err)
	}
	defer rows.Close()
	var out []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		if err := rows.Scan(&rec.ToothNumber, &rec.Surface, &rec.Condition, &rec.Notes, &rec.Material); err != nil {
			return nil, fmt.Errorf("scan odontogram record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate odontogram records: %w", err)
	}
	return out, nil
}

// Replace deletes and re-inserts the record set in one transaction. When the
// context already carries a transaction the caller owns commit and rollback.
func (r *chartRepoPG) Replace(ctx context.Context, key ChartKey, records []StoredRecord) error {
	if tx := db.TxFromContext(ctx); tx != nil {
		return replaceRecordsTx(ctx, tx, key, records)
	}

	var (
		tx  pgx.Tx
		err error
	)
	if c := db.ConnFromContext(ctx); c != nil {
		tx, err = c.Begin(ctx)
	} else {
		tx, err = r.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := replaceRecordsTx(ctx, tx, key, records); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func replaceRecordsTx(ctx context.Context, tx pgx.Tx, key ChartKey, records []StoredRecord) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM odontogram_record WHERE patient_id = $1 AND dentition = $2`,
		key.PatientID, string(key.Dentition)); err != nil {
		return fmt.Errorf("delete odontogram records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"odontogram_record"}, recordCopyCols,
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			rec := records[i]
			return []interface{}{
				uuid.New(), key.PatientID, string(key.Dentition), rec.ToothNumber,
				rec.Surface, rec.Condition, rec.Notes, rec.Material,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("insert odontogram records: %w", err)
	}
	return nil
}
