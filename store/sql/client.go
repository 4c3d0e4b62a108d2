package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return defaultPingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-shipnotify"
}

// OpenClient opens the configured database, registers the ledger migrations
// for its dialect and applies them.
func OpenClient(ctx context.Context, cfg core.DatabaseConfig) (*persistence.Client, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = core.DatabaseDriverSQLite
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: database dsn is required")
	}
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == core.DatabaseDriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: driver, server: dsn, debug: cfg.Debug}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if err := migrations.RegisterForDriver(ctx, func(fsys fs.FS) { client.RegisterSQLMigrations(fsys) }, driver); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case core.DatabaseDriverSQLite:
		return sqlitedialect.New(), nil
	case core.DatabaseDriverPostgres:
		return pgdialect.New(), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported database driver %q", driver)
	}
}
