package filterkit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filterkit/filterkit/filterkit/conditions"
	"github.com/filterkit/filterkit/filterkit/filter"
	"github.com/filterkit/filterkit/filterkit/plan"
	"github.com/filterkit/filterkit/filterkit/storage"
)

// Index is a JSON document index reachable through a storage adapter.
// Searches translate condition trees into filters and compile them to SQL
// over the docs table.
type Index struct {
	db      *sql.DB
	adapter storage.Adapter
	opts    IndexOptions
	log     *zap.Logger
}

// Create connects to the backend and ensures the docs table exists.
func Create(ctx context.Context, adapter storage.Adapter, opts IndexOptions) (*Index, error) {
	ix, err := Open(ctx, adapter, opts)
	if err != nil {
		return nil, err
	}
	for _, stmt := range adapter.Dialect().DDL() {
		if _, err := ix.db.ExecContext(ctx, stmt); err != nil {
			_ = ix.Close()
			return nil, Wrap(ErrSQL, "create index", err)
		}
	}
	return ix, nil
}

// Open connects to an existing index.
func Open(ctx context.Context, adapter storage.Adapter, opts IndexOptions) (*Index, error) {
	if opts.Now == nil {
		opts.Now = DefaultIndexOptions().Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrBackend, fmt.Sprintf("connect %s", adapter.IndexID()), err)
	}
	return &Index{db: db, adapter: adapter, opts: opts, log: opts.Logger}, nil
}

func (ix *Index) Close() error {
	err := ix.db.Close()
	if cerr := ix.adapter.Close(); err == nil {
		err = cerr
	}
	return err
}

func (ix *Index) dialect() storage.Dialect { return ix.adapter.Dialect() }

// Put stores a JSON document, generating an id when none is given, and
// returns the document id.
func (ix *Index) Put(ctx context.Context, id string, body []byte) (string, error) {
	if !json.Valid(body) {
		return "", ParseError("document body is not valid JSON")
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := ix.opts.Now().UnixMilli()
	d := ix.dialect()
	b := storage.NewArgBuilder(d.Placeholders())
	stmt := fmt.Sprintf(
		`INSERT INTO docs (id, body, created_at, updated_at) VALUES (%s, %s, %s, %s)
ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		b.Arg(id), d.BodyParam(b.Arg(string(body))), b.Arg(now), b.Arg(now))
	if _, err := ix.db.ExecContext(ctx, stmt, b.Args()...); err != nil {
		return "", Wrap(ErrSQL, "put document", err)
	}
	return id, nil
}

// Get returns a stored document by id.
func (ix *Index) Get(ctx context.Context, id string) (*Doc, error) {
	b := storage.NewArgBuilder(ix.dialect().Placeholders())
	stmt := fmt.Sprintf("SELECT body, created_at, updated_at FROM docs WHERE id = %s", b.Arg(id))
	var doc Doc
	doc.ID = id
	err := ix.db.QueryRowContext(ctx, stmt, b.Args()...).
		Scan(&doc.Body, &doc.Meta.CreatedAtMS, &doc.Meta.UpdatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError(id)
	}
	if err != nil {
		return nil, Wrap(ErrSQL, "get document", err)
	}
	return &doc, nil
}

// Delete removes a document by id.
func (ix *Index) Delete(ctx context.Context, id string) error {
	b := storage.NewArgBuilder(ix.dialect().Placeholders())
	stmt := fmt.Sprintf("DELETE FROM docs WHERE id = %s", b.Arg(id))
	res, err := ix.db.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return Wrap(ErrSQL, "delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Wrap(ErrSQL, "delete document", err)
	}
	if n == 0 {
		return NotFoundError(id)
	}
	return nil
}

// DeleteWhere removes every document matching the condition tree and returns
// the number of documents removed.
func (ix *Index) DeleteWhere(ctx context.Context, cond conditions.Cond) (int64, error) {
	out, err := ix.compile(cond)
	if err != nil {
		return 0, err
	}
	stmt := "DELETE FROM docs WHERE " + out.WhereSQL
	ix.log.Debug("delete where", zap.String("sql", stmt))
	res, err := ix.db.ExecContext(ctx, stmt, out.Args...)
	if err != nil {
		return 0, Wrap(ErrSQL, "delete by conditions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Wrap(ErrSQL, "delete by conditions", err)
	}
	return n, nil
}

// Search returns documents matching the condition tree, ordered by id.
func (ix *Index) Search(ctx context.Context, cond conditions.Cond, opts SearchOptions) (*SearchResultPage, error) {
	out, err := ix.compile(cond)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	var total int64
	countStmt := "SELECT COUNT(*) FROM docs WHERE " + out.WhereSQL
	if err := ix.db.QueryRowContext(ctx, countStmt, out.Args...).Scan(&total); err != nil {
		return nil, Wrap(ErrSQL, "count search matches", err)
	}

	stmt := fmt.Sprintf(
		"SELECT id, body, created_at, updated_at FROM docs WHERE %s ORDER BY id LIMIT %d",
		out.WhereSQL, limit)
	ix.log.Debug("search", zap.String("sql", stmt), zap.Int("args", len(out.Args)), zap.Int64("total", total))

	rows, err := ix.db.QueryContext(ctx, stmt, out.Args...)
	if err != nil {
		return nil, Wrap(ErrSQL, "search", err)
	}
	defer rows.Close()

	page := &SearchResultPage{Total: total}
	if opts.Explain {
		page.ExplainSQL = stmt
		page.ExplainSteps = out.Steps
	}
	for rows.Next() {
		var doc Doc
		if err := rows.Scan(&doc.ID, &doc.Body, &doc.Meta.CreatedAtMS, &doc.Meta.UpdatedAtMS); err != nil {
			return nil, Wrap(ErrSQL, "scan search row", err)
		}
		page.Items = append(page.Items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrSQL, "search", err)
	}
	return page, nil
}

func (ix *Index) compile(cond conditions.Cond) (*plan.Output, error) {
	fs, err := conditions.Parse(cond)
	if err != nil {
		return nil, Wrap(ErrParse, "parse conditions", err)
	}
	var root filter.Filter
	switch len(fs) {
	case 0:
		root = filter.NewMatchAll()
	case 1:
		root = fs[0]
	default:
		root = filter.NewAnd(fs...)
	}
	out, err := plan.Compile(ix.dialect(), root)
	if err != nil {
		if errors.Is(err, plan.ErrUnsupported) {
			return nil, Wrap(ErrFeature, "compile filter", err)
		}
		return nil, Wrap(ErrRejected, "compile filter", err)
	}
	return out, nil
}
