package odontogram

import "sort"

// Selection is the set of teeth picked in the chart view. Clicking a tooth
// toggles its membership.
type Selection struct {
	ids map[int]struct{}
}

func NewSelection(ids ...int) *Selection {
	s := &Selection{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle adds id when absent and removes it when present. It returns whether
// id is selected afterwards.
func (s *Selection) Toggle(id int) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Contains(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Clear() { s.ids = make(map[int]struct{}) }

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// BulkEdit is the payload applied to every selected tooth.
type BulkEdit struct {
	Condition Condition                `json:"condition"`
	Note      string                   `json:"note"`
	Surfaces  map[Surface]SurfaceState `json:"surfaces,omitempty"`
}

// ApplyBulk writes the edit to every id with SetToothFull. Duplicate ids are
// harmless since the write is a full replace.
func ApplyBulk(c *Chart, ids []int, edit BulkEdit) {
	for _, id := range ids {
		c.SetToothFull(id, edit.Condition, edit.Note, edit.Surfaces)
	}
}
