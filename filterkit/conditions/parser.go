package conditions

import (
	"fmt"
	"strings"

	"github.com/filterkit/filterkit/filterkit/filter"
)

// DefaultMaxDepth bounds condition nesting when Options leave it unset.
const DefaultMaxDepth = 64

// Options configures condition parsing.
type Options struct {
	// MaxDepth bounds recursion over nested condition trees.
	MaxDepth int
	// StrictOperators rejects unrecognized operator suffixes instead of
	// falling back to equality.
	StrictOperators bool
}

// DefaultOptions returns the default parsing options.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth}
}

// Parse translates a condition tree into an ordered sequence of filters.
// Entries of one mapping level are semantically AND-combined; callers that
// need a single node fold the sequence themselves (see filter.NewAnd).
func Parse(c Cond) ([]filter.Filter, error) {
	return ParseWithOptions(c, DefaultOptions())
}

// ParseWithOptions is Parse with explicit options.
func ParseWithOptions(c Cond, opts Options) ([]filter.Filter, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	p := &parser{opts: opts}
	return p.parse(c, 0)
}

type parser struct {
	opts Options
}

func (p *parser) parse(c Cond, depth int) ([]filter.Filter, error) {
	if depth > p.opts.MaxDepth {
		return nil, fmt.Errorf("conditions: nesting exceeds %d levels", p.opts.MaxDepth)
	}
	switch v := c.(type) {
	case Raw:
		// Pre-built filters pass through unchanged.
		return []filter.Filter{v.Filter}, nil
	case Seq:
		out := make([]filter.Filter, 0, len(v.Items))
		for _, item := range v.Items {
			sub, err := p.parse(item, depth+1)
			if err != nil {
				return nil, err
			}
			switch len(sub) {
			case 0:
			case 1:
				out = append(out, sub[0])
			default:
				out = append(out, combineAnd(sub))
			}
		}
		return out, nil
	case *Map:
		return p.parseMap(v, depth)
	case nil:
		return nil, fmt.Errorf("conditions: nil condition")
	default:
		return nil, fmt.Errorf("conditions: condition must be a mapping, sequence, or filter, got %T", c)
	}
}

func (p *parser) parseMap(m *Map, depth int) ([]filter.Filter, error) {
	out := make([]filter.Filter, 0, m.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		key, val := pair.Key, pair.Value

		name, escaped := unescapeKey(key)
		if !escaped {
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "and":
				sub, err := p.parse(val, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, combineAnd(sub))
				continue
			case "or":
				sub, err := p.parse(val, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, filter.NewOr(sub...))
				continue
			case "not":
				sub, err := p.parse(val, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, filter.NewNot(foldOne(sub)))
				continue
			}
		}

		if r, ok := val.(Raw); ok {
			// Caller pre-built the value for this field; keep it as-is.
			out = append(out, r.Filter)
			continue
		}

		leaf, err := p.leaf(name, val)
		if err != nil {
			return nil, err
		}
		out = append(out, leaf)
	}
	return out, nil
}

func (p *parser) leaf(key string, val Cond) (filter.Filter, error) {
	field, op, known := SplitKey(key)
	if !known {
		if p.opts.StrictOperators {
			return nil, fmt.Errorf("conditions: unrecognized operator in key %q", key)
		}
		op = OpEq
	}
	v := condValue(val)
	switch op {
	case OpGt:
		return filter.NewRange(field).Gt(v), nil
	case OpGte:
		return filter.NewRange(field).Gte(v), nil
	case OpLt:
		return filter.NewRange(field).Lt(v), nil
	case OpLte:
		return filter.NewRange(field).Lte(v), nil
	case OpIn:
		return filter.NewTerms(field, coerceList(v)...), nil
	case OpNotIn:
		return filter.NewNot(filter.NewTerms(field, coerceList(v)...)), nil
	case OpIs:
		// The null check takes precedence over generic equality.
		if v == nil {
			return filter.NewMissing(field), nil
		}
		return filter.NewTerm(field, v), nil
	case OpIsNot:
		if v == nil {
			return filter.NewNot(filter.NewMissing(field)), nil
		}
		return filter.NewNot(filter.NewTerm(field, v)), nil
	case OpNeq:
		return filter.NewNot(filter.NewTerm(field, v)), nil
	}
	return filter.NewTerm(field, v), nil
}

// combineAnd folds parsed filters into one AND composite. An AND composite
// already present among them is reused instead of nesting AND(AND(...)).
func combineAnd(fs []filter.Filter) *filter.AndFilter {
	var and *filter.AndFilter
	rest := make([]filter.Filter, 0, len(fs))
	for _, f := range fs {
		if and == nil {
			if a, ok := f.(*filter.AndFilter); ok {
				and = a
				continue
			}
		}
		rest = append(rest, f)
	}
	if and == nil {
		and = filter.NewAnd()
	}
	return and.Add(rest...)
}

func foldOne(fs []filter.Filter) filter.Filter {
	switch len(fs) {
	case 0:
		return filter.NewMatchAll()
	case 1:
		return fs[0]
	}
	return combineAnd(fs)
}

// coerceList wraps a scalar in a single-element list; in / not in accept
// scalar and list values alike.
func coerceList(v any) []any {
	if vs, ok := v.([]any); ok {
		return vs
	}
	return []any{v}
}

// unescapeKey strips the escape prefix that forces field interpretation for
// keys that would otherwise collide with the and/or/not grouping keywords.
func unescapeKey(key string) (string, bool) {
	if strings.HasPrefix(key, `\`) {
		return key[1:], true
	}
	return key, false
}
