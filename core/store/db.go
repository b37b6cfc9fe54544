package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ugel-incidentes/config"
	"ugel-incidentes/core/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// NewDB opens the configured database. sqlite is the default for
// single-node installs, postgres (via pgx) for anything shared.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sql.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	var db *sql.DB
	var err error
	switch driver {
	case "", "sqlite", "sqlite3":
		path := cfg.DBPath
		if cfg.DBURL != "" {
			path = cfg.DBURL
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." && !strings.HasPrefix(path, ":memory:") {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("crear directorio de datos: %w", mkErr)
			}
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		// modernc/sqlite serializes writers; a single connection
		// avoids SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA foreign_keys=ON;",
			"PRAGMA busy_timeout=5000;",
		} {
			if _, pErr := db.Exec(pragma); pErr != nil {
				db.Close()
				return nil, fmt.Errorf("pragma %s: %w", pragma, pErr)
			}
		}
	case "postgres", "pgx":
		db, err = sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("driver de base de datos desconocido: %q", cfg.DBDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if logger != nil {
		logger.Printf("DB lista driver=%s", driverName(driver))
	}
	return db, nil
}

func driverName(driver string) string {
	switch driver {
	case "postgres", "pgx":
		return "pgx"
	default:
		return "sqlite"
	}
}
