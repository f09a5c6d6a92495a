package filterkit

import (
	"encoding/json"

	"github.com/filterkit/filterkit/filterkit/conditions"
)

// Render parses a condition tree and assembles the resulting filters into a
// search-engine query body, ready for the caller's transport layer.
func Render(cond conditions.Cond) ([]byte, error) {
	fs, err := conditions.Parse(cond)
	if err != nil {
		return nil, Wrap(ErrParse, "parse conditions", err)
	}
	clauses := make([]any, 0, len(fs))
	for _, f := range fs {
		src, err := f.Source()
		if err != nil {
			return nil, Wrap(ErrRejected, "render filter", err)
		}
		clauses = append(clauses, src)
	}
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": clauses},
		},
	}
	return json.MarshalIndent(body, "", "  ")
}
