package odontogram

import (
	"context"
	"sync"
)

type chartRepoMemory struct {
	mu      sync.RWMutex
	records map[ChartKey][]StoredRecord
}

// NewChartRepoMemory returns a process-local repository for development mode
// and tests.
func NewChartRepoMemory() ChartRepository {
	return &chartRepoMemory{records: make(map[ChartKey][]StoredRecord)}
}

func (r *chartRepoMemory) Load(_ context.Context, key ChartKey) ([]StoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRecords(r.records[key]), nil
}

func (r *chartRepoMemory) Replace(_ context.Context, key ChartKey, records []StoredRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(records) == 0 {
		delete(r.records, key)
		return nil
	}
	r.records[key] = copyRecords(records)
	return nil
}

func copyRecords(in []StoredRecord) []StoredRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]StoredRecord, len(in))
	for i, rec := range in {
		out[i] = StoredRecord{ToothNumber: rec.ToothNumber, Condition: rec.Condition}
		if rec.Surface != nil {
			out[i].Surface = strPtr(*rec.Surface)
		}
		if rec.Notes != nil {
			out[i].Notes = strPtr(*rec.Notes)
		}
		if rec.Material != nil {
			out[i].Material = strPtr(*rec.Material)
		}
	}
	return out
}
