package odontogram

import "sort"

// SurfaceState is the recorded state of one surface of a tooth.
type SurfaceState struct {
	Condition Condition `json:"condition"`
	Material  Material  `json:"material"`
}

// ToothRecord is the recorded state of one tooth.
type ToothRecord struct {
	Condition Condition                `json:"condition"`
	Note      string                   `json:"note"`
	Surfaces  map[Surface]SurfaceState `json:"surfaces"`
}

// DefaultTooth is the record of a tooth that has never been charted. A chart
// never stores it: an absent tooth and a default tooth are the same thing.
func DefaultTooth() ToothRecord {
	return ToothRecord{Condition: ConditionHealthy, Surfaces: map[Surface]SurfaceState{}}
}

// IsDefault reports whether r is indistinguishable from DefaultTooth.
func (r ToothRecord) IsDefault() bool {
	return r.Condition == ConditionHealthy && r.Note == "" && len(r.Surfaces) == 0
}

// Clone returns a deep copy of r.
func (r ToothRecord) Clone() ToothRecord {
	out := ToothRecord{Condition: r.Condition, Note: r.Note, Surfaces: make(map[Surface]SurfaceState, len(r.Surfaces))}
	for s, st := range r.Surfaces {
		out.Surfaces[s] = st
	}
	return out
}

// Equal compares two records, treating nil and empty surface maps alike.
func (r ToothRecord) Equal(o ToothRecord) bool {
	if r.Condition != o.Condition || r.Note != o.Note || len(r.Surfaces) != len(o.Surfaces) {
		return false
	}
	for s, st := range r.Surfaces {
		if ost, ok := o.Surfaces[s]; !ok || ost != st {
			return false
		}
	}
	return true
}

// normalizeSurfaces fills defaults and drops entries with an empty surface
// code, which could not be told apart from the tooth-level row once stored.
func normalizeSurfaces(in map[Surface]SurfaceState) map[Surface]SurfaceState {
	out := make(map[Surface]SurfaceState, len(in))
	for s, st := range in {
		if s == "" {
			continue
		}
		if st.Condition == "" {
			st.Condition = ConditionHealthy
		}
		if st.Material == "" {
			st.Material = MaterialNone
		}
		out[s] = st
	}
	return out
}

func normalizeCondition(c Condition) Condition {
	if c == "" {
		return ConditionHealthy
	}
	return c
}

// Chart is one patient's odontogram for a single dentition, keyed by FDI id.
// Ids outside the dentition are stored and round-trip but are never
// enumerated by the notation catalog.
type Chart struct {
	Dentition Dentition
	teeth     map[int]ToothRecord
}

func NewChart(d Dentition) *Chart {
	if d == "" {
		d = DentitionAdult
	}
	return &Chart{Dentition: d, teeth: make(map[int]ToothRecord)}
}

// Get returns the tooth record, or DefaultTooth when the tooth is absent.
func (c *Chart) Get(id int) ToothRecord {
	r, ok := c.teeth[id]
	if !ok {
		return DefaultTooth()
	}
	return r.Clone()
}

// Has reports whether the tooth has an explicit entry.
func (c *Chart) Has(id int) bool {
	_, ok := c.teeth[id]
	return ok
}

// SetTooth replaces the tooth-level condition and note, keeping surfaces.
func (c *Chart) SetTooth(id int, cond Condition, note string) {
	r, ok := c.teeth[id]
	if !ok {
		r = DefaultTooth()
	}
	r.Condition = normalizeCondition(cond)
	r.Note = note
	c.put(id, r)
}

// SetToothFull replaces the whole record of a tooth.
func (c *Chart) SetToothFull(id int, cond Condition, note string, surfaces map[Surface]SurfaceState) {
	c.put(id, ToothRecord{
		Condition: normalizeCondition(cond),
		Note:      note,
		Surfaces:  normalizeSurfaces(surfaces),
	})
}

// ClearTooth drops the tooth's entry, resetting it to the default.
func (c *Chart) ClearTooth(id int) {
	delete(c.teeth, id)
}

func (c *Chart) put(id int, r ToothRecord) {
	if r.IsDefault() {
		delete(c.teeth, id)
		return
	}
	c.teeth[id] = r
}

// setSurface is used by the decoder; it creates the tooth entry when absent.
func (c *Chart) setSurface(id int, s Surface, st SurfaceState) {
	r, ok := c.teeth[id]
	if !ok {
		r = DefaultTooth()
	}
	if r.Surfaces == nil {
		r.Surfaces = map[Surface]SurfaceState{}
	}
	r.Surfaces[s] = st
	c.teeth[id] = r
}

// Len is the number of explicitly charted teeth.
func (c *Chart) Len() int { return len(c.teeth) }

// IDs returns the explicitly charted tooth ids in ascending order.
func (c *Chart) IDs() []int {
	ids := make([]int, 0, len(c.teeth))
	for id := range c.teeth {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone returns a deep copy of the chart.
func (c *Chart) Clone() *Chart {
	out := NewChart(c.Dentition)
	for id, r := range c.teeth {
		out.teeth[id] = r.Clone()
	}
	return out
}

// Equal compares dentition and every charted tooth.
func (c *Chart) Equal(o *Chart) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Dentition != o.Dentition || len(c.teeth) != len(o.teeth) {
		return false
	}
	for id, r := range c.teeth {
		or, ok := o.teeth[id]
		if !ok || !r.Equal(or) {
			return false
		}
	}
	return true
}
