// Package migrations embeds the SQL schema applied at startup by db.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
