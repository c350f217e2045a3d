// Package migrations embeds all SQL migration files so the binary is
// self-contained and does not depend on a working directory that happens to
// contain ./migrations/.
package migrations

import "embed"

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
