package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/filterkit/filterkit/filterkit/storage"
)

// Adapter opens SQLite-backed indexes. DriverName defaults to the pure-Go
// "sqlite" driver (modernc.org/sqlite); pass "sqlite3" for mattn/go-sqlite3.
// The chosen driver must be registered by the importing program.
type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: "sqlite"}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendSQLite }

func (a *Adapter) Dialect() storage.Dialect { return Dialect{} }

func (a *Adapter) IndexID() string { return a.Path }

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_busy_timeout=5000&_foreign_keys=on"
	} else {
		dsn = dsn + "&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error { return nil }

// Dialect is the SQLite flavor: question placeholders and json_extract field
// access. json_extract preserves JSON numeric affinity, so the text and
// number expressions coincide.
type Dialect struct{}

func (Dialect) Placeholders() storage.PlaceholderStyle { return storage.PlaceholderQuestion }

func (Dialect) FieldText(path string) (string, error) {
	if !storage.ValidFieldPath(path) {
		return "", fmt.Errorf("sqlite: invalid field path %q", path)
	}
	return fmt.Sprintf("json_extract(body, '$.%s')", path), nil
}

func (d Dialect) FieldNumber(path string) (string, error) {
	return d.FieldText(path)
}

func (Dialect) RegexpOp() string { return "" }

func (Dialect) BodyParam(placeholder string) string { return placeholder }

func (Dialect) DDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS docs (
  id TEXT PRIMARY KEY,
  body TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS docs_updated_at ON docs (updated_at)`,
	}
}
