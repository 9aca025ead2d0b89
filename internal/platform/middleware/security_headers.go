package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	chartCSP      = "default-src 'none'; frame-ancestors 'none'"
	hstsHeaderVal = "max-age=31536000; includeSubDomains"
)

// SecurityHeadersConfig controls the headers SecurityHeaders writes.
type SecurityHeadersConfig struct {
	// HSTS adds Strict-Transport-Security. Enable it only when clients reach
	// the service over TLS.
	HSTS bool
	// CatalogPrefixes are path prefixes whose responses hold no patient data
	// (notation, vocabulary) and may be cached privately for CatalogMaxAge.
	// A zero CatalogMaxAge keeps no-store on every route.
	CatalogPrefixes []string
	CatalogMaxAge   time.Duration
	// Skipper exempts requests such as /health and /metrics.
	Skipper echomw.Skipper
}

// SkipPaths returns a skipper matching the exact request paths given.
func SkipPaths(paths ...string) echomw.Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c echo.Context) bool {
		_, ok := set[c.Request().URL.Path]
		return ok
	}
}

// SecurityHeaders sets response headers for a JSON API that serves patient
// charts. Chart responses are never cached.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}
	catalogCache := ""
	if cfg.CatalogMaxAge > 0 {
		catalogCache = fmt.Sprintf("private, max-age=%d", int(cfg.CatalogMaxAge/time.Second))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", chartCSP)
			h.Set("Referrer-Policy", "no-referrer")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", hstsHeaderVal)
			}

			cache := "no-store"
			if catalogCache != "" && hasAnyPrefix(c.Request().URL.Path, cfg.CatalogPrefixes) {
				cache = catalogCache
			}
			h.Set("Cache-Control", cache)
			return next(c)
		}
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
