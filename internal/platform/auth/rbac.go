package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Chart roles. Admin passes every check.
const (
	RoleAdmin     = "admin"
	RoleDentist   = "dentist"
	RoleHygienist = "hygienist"
	RoleAssistant = "assistant"
)

var (
	// ChartReaders may view charts, summaries and stored records.
	ChartReaders = []string{RoleDentist, RoleHygienist, RoleAssistant}
	// ChartEditors may change charts.
	ChartEditors = []string{RoleDentist, RoleHygienist}
)

// roleAliases maps identity provider role names onto chart roles.
var roleAliases = map[string]string{
	"dental_assistant": RoleAssistant,
	"dental_hygienist": RoleHygienist,
	"dds":              RoleDentist,
	"dmd":              RoleDentist,
	"clinic_admin":     RoleAdmin,
}

// normalizeRoles lowercases role claims, resolves aliases and drops
// duplicates.
func normalizeRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if alias, ok := roleAliases[r]; ok {
			r = alias
		}
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasAnyRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// HasAnyRole reports whether granted contains admin or one of required.
func HasAnyRole(granted []string, required ...string) bool {
	for _, has := range granted {
		if has == RoleAdmin {
			return true
		}
		for _, want := range required {
			if has == want {
				return true
			}
		}
	}
	return false
}
