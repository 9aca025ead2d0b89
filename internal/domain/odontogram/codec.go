package odontogram

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInconsistentRecords is returned when a surface row has no tooth-level row.
var ErrInconsistentRecords = errors.New("inconsistent odontogram records")

// StoredRecord is the flat row shape persisted for a chart. A row without a
// surface carries the tooth-level condition and note; a row with a surface
// carries that surface's condition and, when set, its material.
type StoredRecord struct {
	ToothNumber int     `json:"tooth_number" db:"tooth_number"`
	Surface     *string `json:"surface,omitempty" db:"surface"`
	Condition   string  `json:"condition" db:"condition"`
	Notes       *string `json:"notes,omitempty" db:"notes"`
	Material    *string `json:"material,omitempty" db:"material"`
}

// IsSurface reports whether the row describes a surface. A row whose surface
// is the empty string is a tooth-level row.
func (r StoredRecord) IsSurface() bool {
	return r.Surface != nil && *r.Surface != ""
}

// Encode flattens a chart into stored records. Every charted tooth yields one
// tooth-level row followed by one row per recorded surface, in ascending tooth
// and surface order. Absent teeth yield nothing.
func Encode(c *Chart) []StoredRecord {
	var out []StoredRecord
	for _, id := range c.IDs() {
		r := c.teeth[id]
		row := StoredRecord{ToothNumber: id, Condition: string(r.Condition)}
		if r.Note != "" {
			row.Notes = strPtr(r.Note)
		}
		out = append(out, row)

		keys := make([]string, 0, len(r.Surfaces))
		for s := range r.Surfaces {
			keys = append(keys, string(s))
		}
		sort.Strings(keys)
		for _, s := range keys {
			st := r.Surfaces[Surface(s)]
			srow := StoredRecord{ToothNumber: id, Surface: strPtr(s), Condition: string(st.Condition)}
			if st.Material != "" && st.Material != MaterialNone {
				srow.Material = strPtr(string(st.Material))
			}
			out = append(out, srow)
		}
	}
	return out
}

// Decode rebuilds a chart from stored records in any order. Surface rows
// without a material decode to MaterialNone.
func Decode(d Dentition, records []StoredRecord) *Chart {
	c := NewChart(d)
	for _, rec := range records {
		if rec.IsSurface() {
			st := SurfaceState{Condition: normalizeCondition(Condition(rec.Condition)), Material: MaterialNone}
			if rec.Material != nil && *rec.Material != "" {
				st.Material = Material(*rec.Material)
			}
			c.setSurface(rec.ToothNumber, Surface(*rec.Surface), st)
			continue
		}
		var note string
		if rec.Notes != nil {
			note = *rec.Notes
		}
		c.SetTooth(rec.ToothNumber, Condition(rec.Condition), note)
	}
	return c
}

// CheckConsistency verifies that every surface row has a tooth-level row for
// the same tooth and that no tooth or surface appears twice.
func CheckConsistency(records []StoredRecord) error {
	toothRows := make(map[int]bool)
	type surfaceKey struct {
		tooth   int
		surface string
	}
	seen := make(map[surfaceKey]bool)
	for _, rec := range records {
		if rec.IsSurface() {
			continue
		}
		if toothRows[rec.ToothNumber] {
			return fmt.Errorf("%w: tooth %d has more than one tooth-level row", ErrInconsistentRecords, rec.ToothNumber)
		}
		toothRows[rec.ToothNumber] = true
	}
	for _, rec := range records {
		if !rec.IsSurface() {
			continue
		}
		if !toothRows[rec.ToothNumber] {
			return fmt.Errorf("%w: surface %s of tooth %d has no tooth-level row", ErrInconsistentRecords, *rec.Surface, rec.ToothNumber)
		}
		k := surfaceKey{rec.ToothNumber, *rec.Surface}
		if seen[k] {
			return fmt.Errorf("%w: surface %s of tooth %d appears twice", ErrInconsistentRecords, *rec.Surface, rec.ToothNumber)
		}
		seen[k] = true
	}
	return nil
}

func strPtr(s string) *string { return &s }
