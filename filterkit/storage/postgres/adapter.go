package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/filterkit/filterkit/filterkit/storage"
)

// Adapter opens Postgres-backed indexes inside a dedicated schema.
type Adapter struct {
	DSN    string
	Schema string // pinned via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) Dialect() storage.Dialect { return Dialect{} }

func (a *Adapter) IndexID() string { return "postgres:" + a.Schema }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes; safe to wrap
	return `"` + ident + `"`
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	// 1) Connect without search_path to ensure the schema exists
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	// 2) Connect with search_path pinned to the schema
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	// Include public as a fallback for built-ins; schema is first.
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error { return nil }

// Dialect is the Postgres flavor: dollar placeholders, JSONB path extraction
// via #>>, and native regexp matching.
type Dialect struct{}

func (Dialect) Placeholders() storage.PlaceholderStyle { return storage.PlaceholderDollar }

func (Dialect) FieldText(path string) (string, error) {
	if !storage.ValidFieldPath(path) {
		return "", fmt.Errorf("postgres: invalid field path %q", path)
	}
	return fmt.Sprintf("body #>> '{%s}'", strings.ReplaceAll(path, ".", ",")), nil
}

func (d Dialect) FieldNumber(path string) (string, error) {
	expr, err := d.FieldText(path)
	if err != nil {
		return "", err
	}
	return "(" + expr + ")::numeric", nil
}

func (Dialect) RegexpOp() string { return "~" }

func (Dialect) BodyParam(placeholder string) string { return placeholder + "::jsonb" }

func (Dialect) DDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS docs (
  id TEXT PRIMARY KEY,
  body JSONB NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS docs_updated_at ON docs (updated_at)`,
		`CREATE INDEX IF NOT EXISTS docs_body ON docs USING GIN (body)`,
	}
}
