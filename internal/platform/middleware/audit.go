package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/odontogram/internal/platform/auth"
)

const apiPrefix = "/api/v1/"

// AuditEntry records who touched which patient's chart and how.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	TenantID   string
	Resource   string // odontogram, notation, vocabulary
	PatientID  string
	Tooth      int // 0 when the request is not about one tooth
	Action     string
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every /api/v1 request after it has been handled. Chart reads
// and writes carry the patient id and, for single-tooth routes, the tooth.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, apiPrefix) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			ctx := req.Context()
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Action:     httpMethodToAction(req.Method),
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.TenantID, _ = c.Get("tenant_id").(string)
			entry.Resource, entry.PatientID, entry.Tooth = parseChartPath(path)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if status == http.StatusForbidden || status == http.StatusUnauthorized {
				evt = logger.Warn()
			}
			evt.
				Str("type", "chart_audit").
				Str("request_id", entry.RequestID).
				Str("tenant_id", entry.TenantID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Int("tooth", entry.Tooth).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("chart_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "bulk_update"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "clear"
	default:
		return "read"
	}
}

// parseChartPath understands
//
//	/api/v1/odontogram/<catalog>
//	/api/v1/patients/<uuid>/odontogram[/...]
//	/api/v1/patients/<uuid>/odontogram/teeth/<fdi>
func parseChartPath(path string) (resource, patientID string, tooth int) {
	segs := strings.Split(strings.Trim(strings.TrimPrefix(path, apiPrefix), "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return "unknown", "", 0
	}
	switch segs[0] {
	case "odontogram":
		if len(segs) > 1 {
			return segs[1], "", 0
		}
		return "odontogram", "", 0
	case "patients":
		if len(segs) < 2 {
			return "patients", "", 0
		}
		if _, err := uuid.Parse(segs[1]); err == nil {
			patientID = segs[1]
		}
		resource = "patients"
		if len(segs) > 2 {
			resource = segs[2]
		}
		if len(segs) > 4 && segs[3] == "teeth" {
			tooth, _ = strconv.Atoi(segs[4])
		}
		return resource, patientID, tooth
	}
	return segs[0], "", 0
}
