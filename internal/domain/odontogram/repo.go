package odontogram

import (
	"context"

	"github.com/google/uuid"
)

// ChartKey identifies the record set of one patient's chart in one dentition.
type ChartKey struct {
	PatientID uuid.UUID `json:"patient_id"`
	Dentition Dentition `json:"dentition"`
}

// ChartRepository stores the flat record set of a chart. Replace swaps the
// whole set atomically: readers see either the old set or the new one, and a
// failed Replace leaves the old set in place.
type ChartRepository interface {
	Load(ctx context.Context, key ChartKey) ([]StoredRecord, error)
	Replace(ctx context.Context, key ChartKey, records []StoredRecord) error
}
