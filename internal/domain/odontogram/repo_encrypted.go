package odontogram

import (
	"context"
	"fmt"
)

// NoteSealer encrypts note text at rest. hipaa.FieldCipher implements it.
type NoteSealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

type chartRepoSealed struct {
	next   ChartRepository
	sealer NoteSealer
}

// NewSealedNotesRepo wraps repo so tooth and surface notes are stored
// encrypted. Only the notes column changes; everything else is stored as is.
func NewSealedNotesRepo(repo ChartRepository, sealer NoteSealer) ChartRepository {
	return &chartRepoSealed{next: repo, sealer: sealer}
}

func (r *chartRepoSealed) Load(ctx context.Context, key ChartKey) ([]StoredRecord, error) {
	records, err := r.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Notes == nil {
			continue
		}
		plain, err := r.sealer.Open(*records[i].Notes)
		if err != nil {
			return nil, fmt.Errorf("open note of tooth %d: %w", records[i].ToothNumber, err)
		}
		records[i].Notes = strPtr(plain)
	}
	return records, nil
}

func (r *chartRepoSealed) Replace(ctx context.Context, key ChartKey, records []StoredRecord) error {
	sealed := copyRecords(records)
	for i := range sealed {
		if sealed[i].Notes == nil {
			continue
		}
		v, err := r.sealer.Seal(*sealed[i].Notes)
		if err != nil {
			return fmt.Errorf("seal note of tooth %d: %w", sealed[i].ToothNumber, err)
		}
		sealed[i].Notes = strPtr(v)
	}
	return r.next.Replace(ctx, key, sealed)
}
