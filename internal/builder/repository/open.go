package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenPostgres открывает postgres через pgx stdlib и проверяет соединение.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Open выбирает драйвер по имени (sqlite | postgres).
func Open(ctx context.Context, driver, path, dsn string) (*sql.DB, Dialect, error) {
	switch Dialect(driver) {
	case DialectPostgres:
		if dsn == "" {
			return nil, "", fmt.Errorf("DATABASE_URL is required for postgres")
		}
		db, err := OpenPostgres(ctx, dsn)
		return db, DialectPostgres, err
	case DialectSQLite, "":
		db, err := OpenSQLite(path)
		return db, DialectSQLite, err
	default:
		return nil, "", fmt.Errorf("unsupported db driver %q", driver)
	}
}
