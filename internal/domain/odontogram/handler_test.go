package odontogram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/odontogram/internal/platform/auth"
)

func newTestServer(roles ...string) (*echo.Echo, *Service) {
	e := echo.New()
	svc := NewService(NewChartRepoMemory(), zerolog.Nop())
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, svc
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func chartPath(pid uuid.UUID) string {
	return "/api/v1/patients/" + pid.String() + "/odontogram"
}

func TestHandler_GetChartDefaults(t *testing.T) {
	e, _ := newTestServer("assistant")
	rec := serve(e, http.MethodGet, chartPath(uuid.New()), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view ChartView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Teeth) != 32 || view.Teeth[0].Tooth != 18 {
		t.Fatalf("expected 32 teeth starting at 18, got %d", len(view.Teeth))
	}
	for _, tv := range view.Teeth {
		if tv.Charted || tv.Condition != ConditionHealthy {
			t.Fatalf("tooth %d should be default healthy", tv.Tooth)
		}
	}
	if view.Summary[ConditionHealthy] != 32 {
		t.Errorf("expected 32 healthy, got %v", view.Summary)
	}
}

func TestHandler_PrimaryQuery(t *testing.T) {
	e, _ := newTestServer("assistant")
	for _, q := range []string{"?primary=true", "?dentition=primary"} {
		rec := serve(e, http.MethodGet, chartPath(uuid.New())+q, "")
		var view ChartView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatal(err)
		}
		if view.Dentition != DentitionPrimary || len(view.Teeth) != 20 {
			t.Errorf("%s: expected 20 primary teeth, got %d in %s", q, len(view.Teeth), view.Dentition)
		}
	}
}

func TestHandler_BadInput(t *testing.T) {
	e, _ := newTestServer("dentist")
	pid := uuid.New()
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"bad patient", http.MethodGet, "/api/v1/patients/abc/odontogram", ""},
		{"bad dentition", http.MethodGet, chartPath(pid) + "?dentition=mixed", ""},
		{"bad tooth", http.MethodPut, chartPath(pid) + "/teeth/x1", `{"condition":"caries"}`},
		{"empty bulk", http.MethodPost, chartPath(pid) + "/bulk", `{"teeth":[],"condition":"missing"}`},
		{"bad json", http.MethodPut, chartPath(pid) + "/teeth/11", `{"condition":`},
		{"nil patient", http.MethodGet, chartPath(uuid.Nil), ""},
		{"nil patient edit", http.MethodPut, chartPath(uuid.Nil) + "/teeth/11", `{"condition":"caries"}`},
		{"empty surface tooth", http.MethodPut, chartPath(pid) + "/teeth/11",
			`{"condition":"caries","surfaces":{"":{"condition":"filled"}}}`},
		{"empty surface replace", http.MethodPut, chartPath(pid),
			`{"teeth":{"11":{"condition":"caries","surfaces":{"":{"condition":"filled"}}}}}`},
		{"empty surface bulk", http.MethodPost, chartPath(pid) + "/bulk",
			`{"teeth":[11],"condition":"caries","surfaces":{"":{"condition":"filled"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandler_UpdateAndClearTooth(t *testing.T) {
	e, svc := newTestServer("hygienist")
	pid := uuid.New()
	key := ChartKey{PatientID: pid, Dentition: DentitionAdult}

	rec := serve(e, http.MethodPut, chartPath(pid)+"/teeth/46",
		`{"condition":"filled","note":"onlay","surfaces":{"occlusal":{"condition":"filled","material":"gold"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tv ToothView
	if err := json.Unmarshal(rec.Body.Bytes(), &tv); err != nil {
		t.Fatal(err)
	}
	if tv.Tooth != 46 || tv.Universal != "30" || len(tv.Surfaces) != 1 || tv.Surfaces[0].Material != MaterialGold {
		t.Errorf("unexpected tooth view: %+v", tv)
	}

	// no surfaces field keeps the recorded surfaces
	rec = serve(e, http.MethodPut, chartPath(pid)+"/teeth/46", `{"condition":"crown"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	c, _ := svc.Load(context.Background(), key)
	if got := c.Get(46); got.Condition != ConditionCrown || len(got.Surfaces) != 1 {
		t.Errorf("unexpected tooth after condition-only update: %+v", got)
	}

	rec = serve(e, http.MethodDelete, chartPath(pid)+"/teeth/46", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	c, _ = svc.Load(context.Background(), key)
	if c.Has(46) {
		t.Error("tooth 46 should be cleared")
	}
}

func TestHandler_BulkAndReplace(t *testing.T) {
	e, svc := newTestServer("dentist")
	pid := uuid.New()
	key := ChartKey{PatientID: pid, Dentition: DentitionAdult}

	rec := serve(e, http.MethodPost, chartPath(pid)+"/bulk", `{"teeth":[38,48,38],"condition":"extraction","note":"planned"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	c, _ := svc.Load(context.Background(), key)
	if c.Len() != 2 || c.Get(38).Note != "planned" {
		t.Errorf("unexpected chart after bulk: %v", c.IDs())
	}

	rec = serve(e, http.MethodPut, chartPath(pid), `{"teeth":{"11":{"condition":"implant"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	c, _ = svc.Load(context.Background(), key)
	if c.Len() != 1 || c.Get(11).Condition != ConditionImplant {
		t.Errorf("replace should leave only tooth 11, got %v", c.IDs())
	}
}

func TestHandler_UnknownConditionRoundTrips(t *testing.T) {
	e, _ := newTestServer("dentist")
	pid := uuid.New()
	serve(e, http.MethodPut, chartPath(pid)+"/teeth/21", `{"condition":"veneer"}`)

	rec := serve(e, http.MethodGet, chartPath(pid), "")
	var view ChartView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	for _, tv := range view.Teeth {
		if tv.Tooth != 21 {
			continue
		}
		if tv.Condition != "veneer" || tv.Known || tv.Label != "veneer" {
			t.Errorf("unexpected unknown-condition view: %+v", tv)
		}
	}
	if view.Summary[OtherBucket] != 1 {
		t.Errorf("expected one tooth in the other bucket, got %v", view.Summary)
	}
}

func TestHandler_SummaryAndRecords(t *testing.T) {
	e, _ := newTestServer("dentist")
	pid := uuid.New()
	serve(e, http.MethodPost, chartPath(pid)+"/bulk", `{"teeth":[17,27],"condition":"missing"}`)

	rec := serve(e, http.MethodGet, chartPath(pid)+"/summary?conditions=missing,caries", "")
	var body struct {
		Total  int    `json:"total"`
		Counts Counts `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 32 || body.Counts[ConditionMissing] != 2 || body.Counts[ConditionCaries] != 0 || len(body.Counts) != 2 {
		t.Errorf("unexpected summary: %+v", body)
	}

	rec = serve(e, http.MethodGet, chartPath(pid)+"/records", "")
	var records []StoredRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].ToothNumber != 17 {
		t.Errorf("unexpected records: %+v", records)
	}

	rec = serve(e, http.MethodGet, chartPath(uuid.New())+"/records", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_EmptySurfaceLeavesChart(t *testing.T) {
	e, svc := newTestServer("dentist")
	pid := uuid.New()
	rec := serve(e, http.MethodPut, chartPath(pid)+"/teeth/11", `{"condition":"caries","note":"n"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodPut, chartPath(pid)+"/teeth/11", `{"condition":"filled","surfaces":{"":{"condition":"filled"}}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	c, err := svc.Load(context.Background(), ChartKey{PatientID: pid, Dentition: DentitionAdult})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Get(11); got.Condition != ConditionCaries || got.Note != "n" || len(got.Surfaces) != 0 {
		t.Errorf("tooth 11 changed: %+v", got)
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"patient", ErrPatientRequired, http.StatusBadRequest},
		{"inconsistent", fmt.Errorf("save chart: %w", ErrInconsistentRecords), http.StatusBadRequest},
		{"save in progress", fmt.Errorf("save chart: %w", ErrSaveInProgress), http.StatusConflict},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := serviceError(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError")
			}
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}

func TestHandler_NotationPrimaryShorthand(t *testing.T) {
	e, _ := newTestServer("assistant")
	rec := serve(e, http.MethodGet, "/api/v1/odontogram/notation?primary=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var notation struct {
		Dentition Dentition         `json:"dentition"`
		Upper     []json.RawMessage `json:"upper"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &notation); err != nil {
		t.Fatal(err)
	}
	if notation.Dentition != DentitionPrimary || len(notation.Upper) != 10 {
		t.Errorf("expected primary notation, got %s with %d upper teeth", notation.Dentition, len(notation.Upper))
	}

	rec = serve(e, http.MethodGet, "/api/v1/odontogram/notation?dentition=mixed&primary=true", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown dentition, got %d", rec.Code)
	}
}

func TestHandler_NotationAndVocabulary(t *testing.T) {
	e, _ := newTestServer("assistant")
	rec := serve(e, http.MethodGet, "/api/v1/odontogram/notation?dentition=primary", "")
	var notation struct {
		Upper []struct {
			Tooth     int    `json:"tooth"`
			Universal string `json:"universal"`
			Palmer    string `json:"palmer"`
		} `json:"upper"`
		Lower []json.RawMessage `json:"lower"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &notation); err != nil {
		t.Fatal(err)
	}
	if len(notation.Upper) != 10 || len(notation.Lower) != 10 {
		t.Fatalf("expected 10 per arch, got %d/%d", len(notation.Upper), len(notation.Lower))
	}
	if notation.Upper[0].Tooth != 55 || notation.Upper[0].Universal != "A" || notation.Upper[0].Palmer != "URE" {
		t.Errorf("unexpected first primary tooth: %+v", notation.Upper[0])
	}

	rec = serve(e, http.MethodGet, "/api/v1/odontogram/vocabulary", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"caries"`) {
		t.Errorf("unexpected vocabulary response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Roles(t *testing.T) {
	pid := uuid.New()
	tests := []struct {
		name     string
		roles    []string
		method   string
		body     string
		wantCode int
	}{
		{"assistant reads", []string{"assistant"}, http.MethodGet, "", http.StatusOK},
		{"assistant cannot write", []string{"assistant"}, http.MethodPut, `{"condition":"caries"}`, http.StatusForbidden},
		{"admin writes", []string{"admin"}, http.MethodPut, `{"condition":"caries"}`, http.StatusOK},
		{"no roles", nil, http.MethodGet, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestServer(tt.roles...)
			path := chartPath(pid)
			if tt.method == http.MethodPut {
				path += "/teeth/11"
			}
			if rec := serve(e, tt.method, path, tt.body); rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestNewChartView_Unlisted(t *testing.T) {
	c := NewChart(DentitionAdult)
	c.SetTooth(16, ConditionCaries, "")
	c.SetTooth(55, ConditionMissing, "")
	v := NewChartView(uuid.New(), c)
	if len(v.Unlisted) != 1 || v.Unlisted[0].Tooth != 55 {
		t.Errorf("expected 55 unlisted, got %+v", v.Unlisted)
	}
	if v.Summary[ConditionMissing] != 0 {
		t.Error("unlisted teeth must not be counted")
	}
}
