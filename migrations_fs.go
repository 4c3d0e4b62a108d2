package shipnotify

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the ledger schema for postgres with the sqlite variant
// under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

func GetMigrationsFS() fs.FS {
	return migrationsFS
}
