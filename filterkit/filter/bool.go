package filter

import (
	"fmt"
	"strings"
)

// AndFilter matches documents that satisfy every child clause.
type AndFilter struct {
	must []Filter
}

func NewAnd(filters ...Filter) *AndFilter {
	return &AndFilter{must: filters}
}

// Add appends child clauses and returns the composite for chaining.
func (f *AndFilter) Add(filters ...Filter) *AndFilter {
	f.must = append(f.must, filters...)
	return f
}

func (f *AndFilter) Children() []Filter { return f.must }

func (f *AndFilter) Len() int { return len(f.must) }

func (f *AndFilter) Source() (any, error) {
	must, err := sources(f.must)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bool": map[string]any{"must": must}}, nil
}

func (f *AndFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// OrFilter matches documents that satisfy at least one child clause.
type OrFilter struct {
	should []Filter
}

func NewOr(filters ...Filter) *OrFilter {
	return &OrFilter{should: filters}
}

// Add appends child clauses and returns the composite for chaining.
func (f *OrFilter) Add(filters ...Filter) *OrFilter {
	f.should = append(f.should, filters...)
	return f
}

func (f *OrFilter) Children() []Filter { return f.should }

func (f *OrFilter) Len() int { return len(f.should) }

func (f *OrFilter) Source() (any, error) {
	should, err := sources(f.should)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bool": map[string]any{"should": should}}, nil
}

func (f *OrFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// NotFilter matches documents that do not satisfy its single child.
type NotFilter struct {
	inner Filter
}

func NewNot(inner Filter) *NotFilter { return &NotFilter{inner: inner} }

func (f *NotFilter) Child() Filter { return f.inner }

func (f *NotFilter) Source() (any, error) {
	inner, err := f.inner.Source()
	if err != nil {
		return nil, err
	}
	return map[string]any{"bool": map[string]any{"must_not": []any{inner}}}, nil
}

func (f *NotFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// Combine builds an AND or OR composite from the given filters. Any operator
// other than "and" or "or" is rejected.
func Combine(op string, filters ...Filter) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "and":
		return NewAnd(filters...), nil
	case "or":
		return NewOr(filters...), nil
	}
	return nil, fmt.Errorf("filter: unsupported combine operator %q (want and or or)", op)
}

func sources(filters []Filter) ([]any, error) {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		src, err := f.Source()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
