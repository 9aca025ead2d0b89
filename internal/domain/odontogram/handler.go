package odontogram

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/odontogram/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ChartReaders...))
	read.GET("/odontogram/notation", h.GetNotation)
	read.GET("/odontogram/vocabulary", h.GetVocabulary)
	read.GET("/patients/:patient_id/odontogram", h.GetChart)
	read.GET("/patients/:patient_id/odontogram/summary", h.GetSummary)
	read.GET("/patients/:patient_id/odontogram/records", h.GetRecords)

	write := api.Group("", auth.RequireRole(auth.ChartEditors...))
	write.PUT("/patients/:patient_id/odontogram", h.ReplaceChart)
	write.PUT("/patients/:patient_id/odontogram/teeth/:tooth", h.UpdateTooth)
	write.DELETE("/patients/:patient_id/odontogram/teeth/:tooth", h.ClearTooth)
	write.POST("/patients/:patient_id/odontogram/bulk", h.BulkEdit)
}

// SurfaceView is a recorded surface with its display color.
type SurfaceView struct {
	Surface   Surface   `json:"surface"`
	Label     string    `json:"label"`
	Condition Condition `json:"condition"`
	Color     string    `json:"color"`
	Material  Material  `json:"material"`
}

// ToothView is what the chart renderer and the edit dialog consume.
type ToothView struct {
	Tooth     int           `json:"tooth"`
	Universal string        `json:"universal"`
	Palmer    string        `json:"palmer"`
	Arch      string        `json:"arch"`
	Charted   bool          `json:"charted"`
	Condition Condition     `json:"condition"`
	Label     string        `json:"label"`
	Color     string        `json:"color"`
	Known     bool          `json:"known"`
	Note      string        `json:"note"`
	Surfaces  []SurfaceView `json:"surfaces"`
}

type ChartView struct {
	PatientID uuid.UUID   `json:"patient_id"`
	Dentition Dentition   `json:"dentition"`
	Teeth     []ToothView `json:"teeth"`
	// Unlisted holds charted ids outside the dentition's tooth list.
	Unlisted []ToothView `json:"unlisted,omitempty"`
	Summary  Counts      `json:"summary"`
}

func toothView(c *Chart, id int) ToothView {
	r := c.Get(id)
	arch := "lower"
	if IsUpper(id) {
		arch = "upper"
	}
	v := ToothView{
		Tooth:     id,
		Universal: UniversalLabel(id),
		Palmer:    PalmerLabel(id),
		Arch:      arch,
		Charted:   c.Has(id),
		Condition: r.Condition,
		Label:     r.Condition.Label(),
		Color:     r.Condition.Color(),
		Known:     r.Condition.Known(),
		Note:      r.Note,
		Surfaces:  []SurfaceView{},
	}
	keys := make([]string, 0, len(r.Surfaces))
	for s := range r.Surfaces {
		keys = append(keys, string(s))
	}
	sort.Strings(keys)
	for _, k := range keys {
		st := r.Surfaces[Surface(k)]
		v.Surfaces = append(v.Surfaces, SurfaceView{
			Surface:   Surface(k),
			Label:     Surface(k).Label(),
			Condition: st.Condition,
			Color:     st.Condition.Color(),
			Material:  st.Material,
		})
	}
	return v
}

// NewChartView renders every tooth of the dentition in display order.
func NewChartView(patientID uuid.UUID, c *Chart) *ChartView {
	teeth := Teeth(c.Dentition)
	v := &ChartView{
		PatientID: patientID,
		Dentition: c.Dentition,
		Teeth:     make([]ToothView, 0, len(teeth)),
		Summary:   Summarize(c),
	}
	for _, id := range teeth {
		v.Teeth = append(v.Teeth, toothView(c, id))
	}
	for _, id := range c.IDs() {
		if !Contains(c.Dentition, id) {
			v.Unlisted = append(v.Unlisted, toothView(c, id))
		}
	}
	return v
}

// dentitionParam reads ?dentition=, with ?primary=true as a shorthand for the
// primary dentition.
func dentitionParam(c echo.Context) (Dentition, error) {
	d, err := ParseDentition(c.QueryParam("dentition"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p, _ := strconv.ParseBool(c.QueryParam("primary")); p {
		d = DentitionPrimary
	}
	return d, nil
}

func chartKey(c echo.Context) (ChartKey, error) {
	pid, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return ChartKey{}, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	d, err := dentitionParam(c)
	if err != nil {
		return ChartKey{}, err
	}
	return ChartKey{PatientID: pid, Dentition: d}, nil
}

// serviceError maps service failures to HTTP errors. Failures caused by the
// request are 400s; everything else is a 500.
func serviceError(err error) error {
	switch {
	case errors.Is(err, ErrPatientRequired), errors.Is(err, ErrInconsistentRecords):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSaveInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func checkSurfaces(surfaces map[Surface]SurfaceState) error {
	if _, ok := surfaces[""]; ok {
		return echo.NewHTTPError(http.StatusBadRequest, "surface code must not be empty")
	}
	return nil
}

func toothParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("tooth"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid tooth number")
	}
	return id, nil
}

func (h *Handler) GetChart(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	chart, err := h.svc.Load(c.Request().Context(), key)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, NewChartView(key.PatientID, chart))
}

func (h *Handler) GetSummary(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	var conds []Condition
	if raw := c.QueryParam("conditions"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				conds = append(conds, Condition(part))
			}
		}
	}
	counts, err := h.svc.Summary(c.Request().Context(), key, conds...)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": key.PatientID,
		"dentition":  key.Dentition,
		"total":      len(Teeth(key.Dentition)),
		"counts":     counts,
	})
}

func (h *Handler) GetRecords(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	records, err := h.svc.Records(c.Request().Context(), key)
	if err != nil {
		return serviceError(err)
	}
	if records == nil {
		records = []StoredRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// ChartInput is a full chart replacement keyed by FDI id.
type ChartInput struct {
	Teeth map[int]ToothRecord `json:"teeth"`
}

func (h *Handler) ReplaceChart(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	var in ChartInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	next := NewChart(key.Dentition)
	for id, r := range in.Teeth {
		if err := checkSurfaces(r.Surfaces); err != nil {
			return err
		}
		next.SetToothFull(id, r.Condition, r.Note, r.Surfaces)
	}
	sess, err := h.svc.Edit(c.Request().Context(), key, func(s *Session) error {
		s.Replace(next)
		return nil
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, NewChartView(key.PatientID, sess.Chart()))
}

// ToothInput edits one tooth. Without a surfaces field only the tooth-level
// condition and note change; with one the whole record is replaced.
type ToothInput struct {
	Condition Condition                `json:"condition"`
	Note      string                   `json:"note"`
	Surfaces  map[Surface]SurfaceState `json:"surfaces"`
}

func (h *Handler) UpdateTooth(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	id, err := toothParam(c)
	if err != nil {
		return err
	}
	var in ToothInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := checkSurfaces(in.Surfaces); err != nil {
		return err
	}
	sess, err := h.svc.Edit(c.Request().Context(), key, func(s *Session) error {
		if in.Surfaces == nil {
			s.SetTooth(id, in.Condition, in.Note)
		} else {
			s.SetToothFull(id, in.Condition, in.Note, in.Surfaces)
		}
		return nil
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, toothView(sess.Chart(), id))
}

func (h *Handler) ClearTooth(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	id, err := toothParam(c)
	if err != nil {
		return err
	}
	_, err = h.svc.Edit(c.Request().Context(), key, func(s *Session) error {
		s.ClearTooth(id)
		return nil
	})
	if err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkInput applies one edit to several teeth.
type BulkInput struct {
	Teeth []int `json:"teeth"`
	BulkEdit
}

func (h *Handler) BulkEdit(c echo.Context) error {
	key, err := chartKey(c)
	if err != nil {
		return err
	}
	var in BulkInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(in.Teeth) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "teeth is required")
	}
	if err := checkSurfaces(in.Surfaces); err != nil {
		return err
	}
	sess, err := h.svc.Edit(c.Request().Context(), key, func(s *Session) error {
		for _, id := range in.Teeth {
			if !s.Selection().Contains(id) {
				s.Selection().Toggle(id)
			}
		}
		s.ApplyToSelection(in.BulkEdit)
		return nil
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, NewChartView(key.PatientID, sess.Chart()))
}

func (h *Handler) GetNotation(c echo.Context) error {
	d, err := dentitionParam(c)
	if err != nil {
		return err
	}
	type entry struct {
		Tooth     int    `json:"tooth"`
		Universal string `json:"universal"`
		Palmer    string `json:"palmer"`
	}
	build := func(ids []int) []entry {
		out := make([]entry, 0, len(ids))
		for _, id := range ids {
			out = append(out, entry{Tooth: id, Universal: UniversalLabel(id), Palmer: PalmerLabel(id)})
		}
		return out
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"dentition": d,
		"upper":     build(UpperArch(d)),
		"lower":     build(LowerArch(d)),
	})
}

func (h *Handler) GetVocabulary(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conditions": Conditions(),
		"surfaces":   Surfaces(),
		"materials":  Materials(),
	})
}
