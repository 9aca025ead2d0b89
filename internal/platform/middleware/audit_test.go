package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/odontogram/internal/platform/auth"
)

const testPatient = "5b0f6c3e-8d1c-4c58-9a43-1f7f3f9c2b11"

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, opts ...func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withAuth(userID string, roles []string) func(*http.Request) {
	return func(req *http.Request) {
		ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
		ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
		*req = *req.WithContext(ctx)
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_ChartRead(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/"+testPatient+"/odontogram",
		withAuth("dr-lee", []string{"dentist"}))
	c.Set("request_id", "req-1")
	c.Set("tenant_id", "clinic_a")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	e := rec.last()
	if e.UserID != "dr-lee" || len(e.UserRoles) != 1 || e.UserRoles[0] != "dentist" {
		t.Errorf("unexpected identity: %s %v", e.UserID, e.UserRoles)
	}
	if e.Resource != "odontogram" || e.PatientID != testPatient || e.Tooth != 0 {
		t.Errorf("unexpected target: %s %s %d", e.Resource, e.PatientID, e.Tooth)
	}
	if e.Action != "read" || e.StatusCode != http.StatusOK {
		t.Errorf("unexpected action/status: %s %d", e.Action, e.StatusCode)
	}
	if e.RequestID != "req-1" || e.TenantID != "clinic_a" {
		t.Errorf("unexpected request/tenant: %s %s", e.RequestID, e.TenantID)
	}
}

func TestAudit_ToothUpdate(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodPut, "/api/v1/patients/"+testPatient+"/odontogram/teeth/36")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := rec.last()
	if e.Tooth != 36 || e.Action != "update" || e.PatientID != testPatient {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestAudit_ErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodDelete, "/api/v1/patients/"+testPatient+"/odontogram/teeth/11")

	err := Audit(zerolog.Nop(), rec)(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	e := rec.last()
	if e.StatusCode != http.StatusForbidden || e.Action != "clear" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	rec := &mockRecorder{}
	for _, path := range []string{"/health", "/metrics", "/"} {
		c, _ := newTestContext(http.MethodGet, path)
		if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
	}
	if rec.count() != 0 {
		t.Errorf("expected no entries, got %d", rec.count())
	}
}

func TestAudit_RecorderErrorDoesNotBreakRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, httpRec := newTestContext(http.MethodGet, "/api/v1/odontogram/vocabulary")

	if err := Audit(zerolog.New(os.Stderr), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpRec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", httpRec.Code)
	}
}

func TestAudit_NoRecorder(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "/api/v1/patients/"+testPatient+"/odontogram/bulk")
	if err := Audit(zerolog.Nop())(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	var got AuditEntry
	f := AuditRecorderFunc(func(e AuditEntry) error {
		got = e
		return nil
	})
	c, _ := newTestContext(http.MethodGet, "/api/v1/odontogram/notation")
	if err := Audit(zerolog.Nop(), f)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Resource != "notation" {
		t.Errorf("expected resource notation, got %q", got.Resource)
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "bulk_update",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "clear",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("%s: got %s, want %s", method, got, want)
		}
	}
}

func TestParseChartPath(t *testing.T) {
	tests := []struct {
		path     string
		resource string
		patient  string
		tooth    int
	}{
		{"/api/v1/odontogram/notation", "notation", "", 0},
		{"/api/v1/odontogram", "odontogram", "", 0},
		{"/api/v1/patients/" + testPatient + "/odontogram", "odontogram", testPatient, 0},
		{"/api/v1/patients/" + testPatient + "/odontogram/summary", "odontogram", testPatient, 0},
		{"/api/v1/patients/" + testPatient + "/odontogram/teeth/48", "odontogram", testPatient, 48},
		{"/api/v1/patients/" + testPatient + "/odontogram/teeth/x", "odontogram", testPatient, 0},
		{"/api/v1/patients/not-a-uuid/odontogram", "odontogram", "", 0},
		{"/api/v1/patients", "patients", "", 0},
		{"/api/v1/", "unknown", "", 0},
	}
	for _, tt := range tests {
		resource, patient, tooth := parseChartPath(tt.path)
		if resource != tt.resource || patient != tt.patient || tooth != tt.tooth {
			t.Errorf("%s: got (%s, %s, %d), want (%s, %s, %d)",
				tt.path, resource, patient, tooth, tt.resource, tt.patient, tt.tooth)
		}
	}
}
