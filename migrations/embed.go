// Package migrations holds the versioned SQL schema, embedded so the server
// and integration tests can migrate without a checkout on disk.
package migrations

import "embed"

// FS contains every *.sql migration
//
//go:embed *.sql
var FS embed.FS
