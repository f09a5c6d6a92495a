package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// Backend identifies a storage backend.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// PlaceholderStyle selects the SQL placeholder syntax of a backend.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
)

// Dialect describes how a backend expresses JSON field access, parameters,
// and schema DDL.
type Dialect interface {
	Placeholders() PlaceholderStyle
	// FieldText returns a SQL expression extracting the field as text.
	// The path must be a valid dot-separated identifier path.
	FieldText(path string) (string, error)
	// FieldNumber returns a SQL expression extracting the field as a number.
	FieldNumber(path string) (string, error)
	// RegexpOp returns the regexp-match operator, or "" when unsupported.
	RegexpOp() string
	// BodyParam wraps a placeholder for insertion into the body column.
	BodyParam(placeholder string) string
	// DDL returns the statements that create the docs table.
	DDL() []string
}

// Adapter abstracts database-specific connection handling.
type Adapter interface {
	Backend() Backend
	Dialect() Dialect
	IndexID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error
}

// ArgBuilder accumulates query arguments and yields placeholders in the
// dialect's style.
type ArgBuilder struct {
	style PlaceholderStyle
	args  []any
}

func NewArgBuilder(style PlaceholderStyle) *ArgBuilder {
	return &ArgBuilder{style: style}
}

// Arg registers a query argument and returns its placeholder.
func (b *ArgBuilder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.style == PlaceholderDollar {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

// Args returns the registered arguments in placeholder order.
func (b *ArgBuilder) Args() []any { return b.args }

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldPath reports whether path is a dot-separated identifier path that
// is safe to inline into a SQL expression.
func ValidFieldPath(path string) bool {
	return fieldPathRe.MatchString(path)
}
