// Package assets embeds the SQL migrations applied at start-up.
package assets

import "embed"

//go:embed migrations/*.sql
var EmbeddedFiles embed.FS
