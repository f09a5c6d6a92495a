package filterkit

import (
	"time"

	"go.uber.org/zap"
)

// IndexOptions configures index behavior
type IndexOptions struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// DefaultIndexOptions returns sensible defaults
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		Now:    time.Now,
		Logger: zap.NewNop(),
	}
}

// SearchOptions configures a search operation
type SearchOptions struct {
	Limit   int
	Explain bool
}

// DocMeta holds document metadata
type DocMeta struct {
	CreatedAtMS int64
	UpdatedAtMS int64
}

// Doc is a stored document with metadata
type Doc struct {
	ID   string
	Body []byte
	Meta DocMeta
}

// SearchResultPage is a page of search results. Total counts every match,
// including documents beyond the page limit.
type SearchResultPage struct {
	Items        []Doc
	Total        int64
	ExplainSQL   string
	ExplainSteps []string
}
