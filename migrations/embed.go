// Package migrations embeds the SQL schema. The runner applies only *.up.sql;
// the down files are for manual rollback.
package migrations

import "embed"

// FS holds every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
