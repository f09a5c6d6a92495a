package filter

import "encoding/json"

// Filter is an opaque, composable predicate over documents. Leaves test one
// field against one value or set of bounds; composites combine child filters.
// A filter is a mutable builder until it is handed to a composite or
// rendered, and must be treated as immutable afterwards.
type Filter interface {
	// Source returns the JSON-marshalable DSL fragment for this filter.
	Source() (any, error)
}

func marshalSource(f Filter) ([]byte, error) {
	src, err := f.Source()
	if err != nil {
		return nil, err
	}
	return json.Marshal(src)
}

// TermFilter matches documents whose field equals a value exactly.
type TermFilter struct {
	Field string
	Value any
}

func NewTerm(field string, value any) *TermFilter {
	return &TermFilter{Field: field, Value: value}
}

func (f *TermFilter) Source() (any, error) {
	return map[string]any{"term": map[string]any{f.Field: f.Value}}, nil
}

func (f *TermFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// TermsFilter matches documents whose field equals any of the given values.
type TermsFilter struct {
	Field  string
	Values []any
}

func NewTerms(field string, values ...any) *TermsFilter {
	return &TermsFilter{Field: field, Values: values}
}

func (f *TermsFilter) Source() (any, error) {
	vals := f.Values
	if vals == nil {
		vals = []any{}
	}
	return map[string]any{"terms": map[string]any{f.Field: vals}}, nil
}

func (f *TermsFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// Range bound keys.
const (
	BoundGt  = "gt"
	BoundGte = "gte"
	BoundLt  = "lt"
	BoundLte = "lte"
)

// RangeFilter matches documents whose field falls within the set bounds.
type RangeFilter struct {
	Field  string
	Bounds map[string]any
}

func NewRange(field string) *RangeFilter {
	return &RangeFilter{Field: field, Bounds: make(map[string]any, 1)}
}

func (f *RangeFilter) Gt(v any) *RangeFilter  { f.Bounds[BoundGt] = v; return f }
func (f *RangeFilter) Gte(v any) *RangeFilter { f.Bounds[BoundGte] = v; return f }
func (f *RangeFilter) Lt(v any) *RangeFilter  { f.Bounds[BoundLt] = v; return f }
func (f *RangeFilter) Lte(v any) *RangeFilter { f.Bounds[BoundLte] = v; return f }

func (f *RangeFilter) Source() (any, error) {
	return map[string]any{"range": map[string]any{f.Field: f.Bounds}}, nil
}

func (f *RangeFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// ExistsFilter matches documents where the field is present.
type ExistsFilter struct {
	Field string
}

func NewExists(field string) *ExistsFilter { return &ExistsFilter{Field: field} }

func (f *ExistsFilter) Source() (any, error) {
	return map[string]any{"exists": map[string]any{"field": f.Field}}, nil
}

func (f *ExistsFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// MissingFilter matches documents where the field is absent. It renders as a
// negated exists clause.
type MissingFilter struct {
	Field string
}

func NewMissing(field string) *MissingFilter { return &MissingFilter{Field: field} }

func (f *MissingFilter) Source() (any, error) {
	exists, err := NewExists(f.Field).Source()
	if err != nil {
		return nil, err
	}
	return map[string]any{"bool": map[string]any{"must_not": []any{exists}}}, nil
}

func (f *MissingFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// PrefixFilter matches documents whose field starts with a literal prefix.
type PrefixFilter struct {
	Field  string
	Prefix string
}

func NewPrefix(field, prefix string) *PrefixFilter {
	return &PrefixFilter{Field: field, Prefix: prefix}
}

func (f *PrefixFilter) Source() (any, error) {
	return map[string]any{"prefix": map[string]any{f.Field: f.Prefix}}, nil
}

func (f *PrefixFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// WildcardFilter matches documents whose field matches a pattern with
// * (any run) and ? (any single character) wildcards.
type WildcardFilter struct {
	Field   string
	Pattern string
}

func NewWildcard(field, pattern string) *WildcardFilter {
	return &WildcardFilter{Field: field, Pattern: pattern}
}

func (f *WildcardFilter) Source() (any, error) {
	return map[string]any{"wildcard": map[string]any{f.Field: f.Pattern}}, nil
}

func (f *WildcardFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// RegexpFilter matches documents whose field matches a regular expression.
type RegexpFilter struct {
	Field   string
	Pattern string
}

func NewRegexp(field, pattern string) *RegexpFilter {
	return &RegexpFilter{Field: field, Pattern: pattern}
}

func (f *RegexpFilter) Source() (any, error) {
	return map[string]any{"regexp": map[string]any{f.Field: f.Pattern}}, nil
}

func (f *RegexpFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// IdsFilter matches documents by identifier.
type IdsFilter struct {
	Values []string
}

func NewIds(values ...string) *IdsFilter { return &IdsFilter{Values: values} }

func (f *IdsFilter) Source() (any, error) {
	vals := f.Values
	if vals == nil {
		vals = []string{}
	}
	return map[string]any{"ids": map[string]any{"values": vals}}, nil
}

func (f *IdsFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// MatchAllFilter matches every document.
type MatchAllFilter struct{}

func NewMatchAll() *MatchAllFilter { return &MatchAllFilter{} }

func (f *MatchAllFilter) Source() (any, error) {
	return map[string]any{"match_all": map[string]any{}}, nil
}

func (f *MatchAllFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// GeoDistanceFilter matches documents whose geo-point field lies within a
// distance of an origin.
type GeoDistanceFilter struct {
	Field    string
	Lat      float64
	Lon      float64
	Distance string
}

func NewGeoDistance(field string, lat, lon float64, distance string) *GeoDistanceFilter {
	return &GeoDistanceFilter{Field: field, Lat: lat, Lon: lon, Distance: distance}
}

func (f *GeoDistanceFilter) Source() (any, error) {
	return map[string]any{"geo_distance": map[string]any{
		"distance": f.Distance,
		f.Field:    map[string]any{"lat": f.Lat, "lon": f.Lon},
	}}, nil
}

func (f *GeoDistanceFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// ScriptFilter matches documents for which an engine-side script evaluates
// to true.
type ScriptFilter struct {
	Script string
	Params map[string]any
}

func NewScript(script string) *ScriptFilter { return &ScriptFilter{Script: script} }

func (f *ScriptFilter) Param(name string, value any) *ScriptFilter {
	if f.Params == nil {
		f.Params = make(map[string]any, 1)
	}
	f.Params[name] = value
	return f
}

func (f *ScriptFilter) Source() (any, error) {
	script := map[string]any{"source": f.Script}
	if len(f.Params) > 0 {
		script["params"] = f.Params
	}
	return map[string]any{"script": map[string]any{"script": script}}, nil
}

func (f *ScriptFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }

// NestedFilter applies an inner filter to documents nested under a path.
type NestedFilter struct {
	Path  string
	Inner Filter
}

func NewNested(path string, inner Filter) *NestedFilter {
	return &NestedFilter{Path: path, Inner: inner}
}

func (f *NestedFilter) Source() (any, error) {
	inner, err := f.Inner.Source()
	if err != nil {
		return nil, err
	}
	return map[string]any{"nested": map[string]any{"path": f.Path, "query": inner}}, nil
}

func (f *NestedFilter) MarshalJSON() ([]byte, error) { return marshalSource(f) }
