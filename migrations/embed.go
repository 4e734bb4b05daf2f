// Package migrations holds the postgres schema managed by goose.
package migrations

import "embed"

// FS contains every goose SQL migration in this directory
//
//go:embed *.sql
var FS embed.FS
