package store

import (
	"context"
	"database/sql"
	"embed"
	"strings"

	"ugel-incidentes/config"
	"ugel-incidentes/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations runs the embedded goose migrations up to the latest
// version.
func ApplyMigrations(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *utils.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	dialect := "sqlite3"
	if cfg != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.DBDriver)) {
		case "postgres", "pgx":
			dialect = "postgres"
		}
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("migraciones aplicadas dialect=%s", dialect)
	}
	return nil
}
