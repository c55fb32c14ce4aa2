// Package migrations holds the numbered schema files applied by
// wellcheck-server migrate up.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
