package conditions

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/filterkit/filterkit/filterkit/filter"
)

// Cond is one node of a caller-supplied condition tree.
type Cond interface {
	isCond()
}

// Scalar is a single comparable value: string, number, bool, or nil.
type Scalar struct {
	Value any
}

func (Scalar) isCond() {}

// List is a sequence of scalar values, as consumed by in / not in.
type List struct {
	Values []any
}

func (List) isCond() {}

// Map is an ordered mapping from field or keyword keys to nested conditions.
// Entry order is preserved and significant for the assembled query.
type Map struct {
	entries *orderedmap.OrderedMap[string, Cond]
}

func (*Map) isCond() {}

// Seq is a numeric-keyed sequence of nested condition trees. Each item is
// AND-combined with its siblings during parsing.
type Seq struct {
	Items []Cond
}

func (Seq) isCond() {}

// Raw wraps a pre-built filter that is passed through parsing unchanged.
type Raw struct {
	Filter filter.Filter
}

func (Raw) isCond() {}

// NewMap returns an empty ordered condition mapping.
func NewMap() *Map {
	return &Map{entries: orderedmap.New[string, Cond]()}
}

// Set adds or replaces an entry and returns the map for chaining.
func (m *Map) Set(key string, v Cond) *Map {
	m.entries.Set(key, v)
	return m
}

// Get returns the entry for key, if present.
func (m *Map) Get(key string) (Cond, bool) {
	return m.entries.Get(key)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return m.entries.Len()
}

// Value wraps a scalar as a condition node.
func Value(v any) Scalar { return Scalar{Value: v} }

// Values wraps a list of scalars as a condition node.
func Values(vs ...any) List { return List{Values: vs} }

// Items wraps condition trees as a sequence node.
func Items(cs ...Cond) Seq { return Seq{Items: cs} }

// Prebuilt wraps an already-constructed filter as a condition node.
func Prebuilt(f filter.Filter) Raw { return Raw{Filter: f} }

// condValue converts a condition node back to a plain Go value for handing
// to a leaf factory. Shapes a leaf cannot use (nested maps under a field key)
// are converted leniently and left to the factory's own contract.
func condValue(c Cond) any {
	switch v := c.(type) {
	case Scalar:
		return v.Value
	case List:
		return v.Values
	case Seq:
		out := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			out = append(out, condValue(item))
		}
		return out
	case *Map:
		out := make(map[string]any, v.Len())
		for pair := v.entries.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = condValue(pair.Value)
		}
		return out
	case Raw:
		return v.Filter
	}
	return nil
}

// DecodeJSON builds a condition tree from caller JSON, preserving object key
// order. Objects decode to Map, arrays of scalars to List, arrays holding any
// nested structure to Seq, and everything else to Scalar. Integral numbers
// decode as int64, other numbers as float64.
func DecodeJSON(data []byte) (Cond, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	c, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("conditions: trailing data after JSON value")
	}
	return c, nil
}

func decodeValue(dec *json.Decoder) (Cond, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("conditions: unexpected %q", t.String())
	case string:
		return Scalar{Value: t}, nil
	case json.Number:
		return Scalar{Value: numberValue(t)}, nil
	case bool:
		return Scalar{Value: t}, nil
	case nil:
		return Scalar{Value: nil}, nil
	}
	return nil, fmt.Errorf("conditions: unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Cond, error) {
	m := NewMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("conditions: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("conditions: object key is not a string: %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, fmt.Errorf("conditions: %w", err)
	}
	return m, nil
}

func decodeArray(dec *json.Decoder) (Cond, error) {
	var items []Cond
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return nil, fmt.Errorf("conditions: %w", err)
	}

	allScalar := true
	for _, item := range items {
		if _, ok := item.(Scalar); !ok {
			allScalar = false
			break
		}
	}
	if allScalar {
		vals := make([]any, 0, len(items))
		for _, item := range items {
			vals = append(vals, item.(Scalar).Value)
		}
		return List{Values: vals}, nil
	}
	return Seq{Items: items}, nil
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}
