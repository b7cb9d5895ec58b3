// Package migrations embeds the goose SQL files so the API, cmd/migrate and
// the DB-backed tests all apply the same schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
