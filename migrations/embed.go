// Package migrations holds the PostgreSQL schema for chart storage.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
