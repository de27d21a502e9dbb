// Package migrations embeds the goose SQL migrations of the dictionary store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
