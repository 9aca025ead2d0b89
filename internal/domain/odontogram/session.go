package odontogram

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrSaveInProgress = errors.New("a save for this chart is already in progress")
	ErrNothingToUndo  = errors.New("nothing to undo")
)

const maxUndoSteps = 50

// ChartSaver persists a full chart for a patient.
type ChartSaver interface {
	SaveChart(ctx context.Context, patientID uuid.UUID, c *Chart) error
}

// Session is the single owner of an open chart. Every edit made through it is
// one undo step; a bulk edit over N teeth is still one step.
type Session struct {
	PatientID uuid.UUID

	chart     *Chart
	selection *Selection
	undo      []*Chart
	dirty     bool
	saving    atomic.Bool
	saver     ChartSaver
}

func NewSession(patientID uuid.UUID, c *Chart, saver ChartSaver) *Session {
	if c == nil {
		c = NewChart(DentitionAdult)
	}
	return &Session{PatientID: patientID, chart: c, selection: NewSelection(), saver: saver}
}

// Chart returns the live chart. Callers must not mutate it directly.
func (s *Session) Chart() *Chart { return s.chart }

func (s *Session) Dentition() Dentition { return s.chart.Dentition }

func (s *Session) Selection() *Selection { return s.selection }

// Dirty reports unsaved edits.
func (s *Session) Dirty() bool { return s.dirty }

func (s *Session) checkpoint() {
	s.undo = append(s.undo, s.chart.Clone())
	if len(s.undo) > maxUndoSteps {
		s.undo = s.undo[len(s.undo)-maxUndoSteps:]
	}
	s.dirty = true
}

func (s *Session) SetTooth(id int, cond Condition, note string) {
	s.checkpoint()
	s.chart.SetTooth(id, cond, note)
}

func (s *Session) SetToothFull(id int, cond Condition, note string, surfaces map[Surface]SurfaceState) {
	s.checkpoint()
	s.chart.SetToothFull(id, cond, note, surfaces)
}

func (s *Session) ClearTooth(id int) {
	s.checkpoint()
	s.chart.ClearTooth(id)
}

// Replace swaps in a whole new chart of the same dentition.
func (s *Session) Replace(c *Chart) {
	s.checkpoint()
	next := c.Clone()
	next.Dentition = s.chart.Dentition
	s.chart = next
}

// ApplyToSelection applies the edit to the current selection as one step and
// returns the ids it touched. An empty selection is a no-op.
func (s *Session) ApplyToSelection(edit BulkEdit) []int {
	ids := s.selection.IDs()
	s.ApplyBulk(ids, edit)
	return ids
}

// ApplyBulk applies the edit to ids as one step.
func (s *Session) ApplyBulk(ids []int, edit BulkEdit) {
	if len(ids) == 0 {
		return
	}
	s.checkpoint()
	ApplyBulk(s.chart, ids, edit)
}

// Undo restores the chart as it was before the last edit.
func (s *Session) Undo() error {
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	last := len(s.undo) - 1
	s.chart = s.undo[last]
	s.undo = s.undo[:last]
	s.dirty = true
	return nil
}

// CanUndo reports whether Undo would succeed.
func (s *Session) CanUndo() bool { return len(s.undo) > 0 }

// Save writes the chart through the saver. Only one save runs at a time; a
// failed save leaves the chart and the dirty flag untouched so it can be
// retried.
func (s *Session) Save(ctx context.Context) error {
	if s.saver == nil {
		return errors.New("session has no saver")
	}
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInProgress
	}
	defer s.saving.Store(false)

	if err := s.saver.SaveChart(ctx, s.PatientID, s.chart.Clone()); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	s.dirty = false
	return nil
}
