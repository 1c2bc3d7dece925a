// Package migrations embeds the schema for each supported driver.
package migrations

import "embed"

// FS holds one directory of ordered .sql files per driver name.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
