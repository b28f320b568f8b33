// Package migrations embeds the unit's SQL schema into the binary.
package migrations

import (
	"embed"

	"github.com/panoptes/pocs-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
