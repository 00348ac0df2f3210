package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/celestium/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/celestium/internal/store/pgstore"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	sqliteScheme      = "sqlite://"
	sqliteMemory      = ":memory:"
	defaultSQLiteFile = "celestium.db"
	// Concurrent handlers share one sqlite file; writers wait instead of failing with SQLITE_BUSY.
	sqliteBusyPragma = "_pragma=busy_timeout(5000)"
)

// databaseTarget is a parsed --database-url.
type databaseTarget struct {
	Driver string
	// DSN is what the driver opens.
	DSN string
	// Path is the sqlite file, empty for postgres.
	Path string
}

func isPostgresURL(raw string) bool {
	return strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://")
}

// parseDatabaseURL accepts postgres URLs, sqlite:// URLs and bare sqlite paths.
func parseDatabaseURL(raw string) (databaseTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return databaseTarget{}, fmt.Errorf("database url is empty")
	}
	if isPostgresURL(raw) {
		return databaseTarget{Driver: driverPostgres, DSN: raw}, nil
	}
	path := raw
	if strings.HasPrefix(raw, sqliteScheme) {
		parsed, err := url.Parse(raw)
		if err != nil {
			return databaseTarget{}, fmt.Errorf("parse sqlite url: %w", err)
		}
		path = parsed.Host + parsed.Path
		if path == "" || path == "/" {
			path = defaultSQLiteFile
		}
	}
	if path == sqliteMemory {
		return databaseTarget{Driver: driverSQLite, DSN: sqliteMemory, Path: sqliteMemory}, nil
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return databaseTarget{}, fmt.Errorf("prepare sqlite directory: %w", err)
	}
	return databaseTarget{Driver: driverSQLite, DSN: path + "?" + sqliteBusyPragma, Path: path}, nil
}

func openGorm(ctx context.Context, target databaseTarget) (*gorm.DB, func() error, error) {
	var dialector gorm.Dialector
	switch target.Driver {
	case driverPostgres:
		dialector = postgres.Open(target.DSN)
	case driverSQLite:
		dialector = sqlite.Open(target.DSN)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", target.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if target.Driver == driverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	return db.WithContext(ctx), sqlDB.Close, nil
}

// openStore opens the configured backend and prepares its tables.
func openStore(ctx context.Context, cfg *runtimeConfig) (marketStore, func(), error) {
	target, err := parseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store == storePgx {
		if target.Driver != driverPostgres {
			return nil, nil, fmt.Errorf("store %q requires a postgres database url", storePgx)
		}
		pool, err := pgxpool.New(ctx, target.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("database open: %w", err)
		}
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	db, closeDB, err := openGorm(ctx, target)
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	store := gormstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = closeDB()
		return nil, nil, err
	}
	return store, func() { _ = closeDB() }, nil
}
