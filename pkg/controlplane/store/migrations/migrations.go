// Package migrations embeds the versioned PostgreSQL schema for the
// chat store. File naming follows golang-migrate's
// NNNNNN_name.{up,down}.sql convention.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
