package conditions

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filterkit/filterkit/filterkit/filter"
)

func sourceJSON(t *testing.T, f filter.Filter) string {
	t.Helper()
	src, err := f.Source()
	require.NoError(t, err)
	data, err := json.Marshal(src)
	require.NoError(t, err)
	return string(data)
}

func TestParsePrebuiltPassThrough(t *testing.T) {
	leaf := filter.NewTerm("status", "active")

	out, err := Parse(Prebuilt(leaf))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Same(t, leaf, out[0].(*filter.TermFilter))
}

func TestParseImplicitAndMatchesExplicitAnd(t *testing.T) {
	implicit := NewMap().
		Set("age >", Value(18)).
		Set("status is", Value("active"))

	out, err := Parse(implicit)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.JSONEq(t, `{"range":{"age":{"gt":18}}}`, sourceJSON(t, out[0]))
	require.JSONEq(t, `{"term":{"status":"active"}}`, sourceJSON(t, out[1]))

	explicit := NewMap().Set("and", NewMap().
		Set("age >", Value(18)).
		Set("status is", Value("active")))

	wrapped, err := Parse(explicit)
	require.NoError(t, err)
	require.Len(t, wrapped, 1)

	// Assembling the implicit sequence under AND must be equivalent.
	require.JSONEq(t,
		sourceJSON(t, filter.NewAnd(out...)),
		sourceJSON(t, wrapped[0]))
}

func TestParseNotInCoercesScalars(t *testing.T) {
	out, err := Parse(NewMap().Set("tag not in", Values("a", "b")))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.JSONEq(t,
		`{"bool":{"must_not":[{"terms":{"tag":["a","b"]}}]}}`,
		sourceJSON(t, out[0]))

	scalar, err := Parse(NewMap().Set("tag not in", Value("a")))
	require.NoError(t, err)
	require.Len(t, scalar, 1)
	require.JSONEq(t,
		`{"bool":{"must_not":[{"terms":{"tag":["a"]}}]}}`,
		sourceJSON(t, scalar[0]))
}

func TestParseNullAwareIs(t *testing.T) {
	missing, err := Parse(NewMap().Set("deletedAt is", Value(nil)))
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.JSONEq(t,
		`{"bool":{"must_not":[{"exists":{"field":"deletedAt"}}]}}`,
		sourceJSON(t, missing[0]))

	notMissing, err := Parse(NewMap().Set("deletedAt is not", Value(nil)))
	require.NoError(t, err)
	require.Len(t, notMissing, 1)
	require.JSONEq(t,
		`{"bool":{"must_not":[{"bool":{"must_not":[{"exists":{"field":"deletedAt"}}]}}]}}`,
		sourceJSON(t, notMissing[0]))

	// Non-null "is" stays a plain equality, never a missing leaf.
	eq, err := Parse(NewMap().Set("deletedAt is", Value("2020-01-01")))
	require.NoError(t, err)
	require.Len(t, eq, 1)
	require.JSONEq(t, `{"term":{"deletedAt":"2020-01-01"}}`, sourceJSON(t, eq[0]))
}

func TestParseOrGroupingFlattens(t *testing.T) {
	out, err := Parse(NewMap().Set("or", NewMap().
		Set("a is", Value(1)).
		Set("b is", Value(2))))
	require.NoError(t, err)
	require.Len(t, out, 1)

	or, ok := out[0].(*filter.OrFilter)
	require.True(t, ok, "expected *filter.OrFilter, got %T", out[0])
	require.Equal(t, 2, or.Len())
	require.JSONEq(t,
		`{"bool":{"should":[{"term":{"a":1}},{"term":{"b":2}}]}}`,
		sourceJSON(t, out[0]))
}

func TestParseUnrecognizedOperatorFallsBackToEquality(t *testing.T) {
	out, err := Parse(NewMap().Set("field ~~", Value("x")))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.JSONEq(t, `{"term":{"field":"x"}}`, sourceJSON(t, out[0]))
}

func TestParseStrictOperatorsRejectsUnknownSuffix(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictOperators = true
	_, err := ParseWithOptions(NewMap().Set("field ~~", Value("x")), opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized operator")
}

// leafSources collects the rendered leaves of a filter tree, ignoring
// composite structure.
func leafSources(t *testing.T, f filter.Filter) []string {
	t.Helper()
	switch v := f.(type) {
	case *filter.AndFilter:
		var out []string
		for _, child := range v.Children() {
			out = append(out, leafSources(t, child)...)
		}
		return out
	case *filter.OrFilter:
		var out []string
		for _, child := range v.Children() {
			out = append(out, leafSources(t, child)...)
		}
		return out
	case *filter.NotFilter:
		return leafSources(t, v.Child())
	}
	return []string{sourceJSON(t, f)}
}

func TestParseRoundTripStructuralEquivalence(t *testing.T) {
	inner := NewMap().
		Set("age >=", Value(21)).
		Set("city is", Value("berlin")).
		Set("score <", Value(9.5))

	// Same comparisons, explicitly and-wrapped with different key order.
	reordered := NewMap().Set("and", NewMap().
		Set("score <", Value(9.5)).
		Set("age >=", Value(21)).
		Set("city is", Value("berlin")))

	plain, err := Parse(inner)
	require.NoError(t, err)
	wrapped, err := Parse(reordered)
	require.NoError(t, err)
	require.Len(t, wrapped, 1)

	a := leafSources(t, filter.NewAnd(plain...))
	b := leafSources(t, wrapped[0])
	sort.Strings(a)
	sort.Strings(b)
	require.Equal(t, a, b)
}

func TestParseSequenceFoldsMultiKeyGroups(t *testing.T) {
	// A bare list of sub-condition groups: each multi-key group becomes one
	// AND node, single-key groups stay plain.
	cond := Items(
		NewMap().Set("a is", Value(1)).Set("b is", Value(2)),
		NewMap().Set("c is", Value(3)),
	)

	out, err := Parse(cond)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.JSONEq(t,
		`{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}`,
		sourceJSON(t, out[0]))
	require.JSONEq(t, `{"term":{"c":3}}`, sourceJSON(t, out[1]))
}

func TestParseAndReusesExistingComposite(t *testing.T) {
	// The sequence under "and" yields an AND node (from the multi-key group)
	// plus a plain leaf; folding must reuse that AND instead of nesting.
	cond := NewMap().Set("and", Items(
		NewMap().Set("a is", Value(1)).Set("b is", Value(2)),
		NewMap().Set("c is", Value(3)),
	))

	out, err := Parse(cond)
	require.NoError(t, err)
	require.Len(t, out, 1)

	and, ok := out[0].(*filter.AndFilter)
	require.True(t, ok, "expected *filter.AndFilter, got %T", out[0])
	require.Equal(t, 3, and.Len())
	require.JSONEq(t,
		`{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}},{"term":{"c":3}}]}}`,
		sourceJSON(t, out[0]))
}

func TestParseNotWrapsParsedValue(t *testing.T) {
	out, err := Parse(NewMap().Set("not", NewMap().Set("status is", Value("archived"))))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.JSONEq(t,
		`{"bool":{"must_not":[{"term":{"status":"archived"}}]}}`,
		sourceJSON(t, out[0]))
}

func TestParseKeywordsAreCaseInsensitive(t *testing.T) {
	out, err := Parse(NewMap().Set("OR", NewMap().
		Set("a is", Value(1)).
		Set("b is", Value(2))))
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, ok := out[0].(*filter.OrFilter)
	require.True(t, ok)
}

func TestParseEscapedKeywordKeyIsAField(t *testing.T) {
	out, err := Parse(NewMap().Set(`\not`, Value("x")))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.JSONEq(t, `{"term":{"not":"x"}}`, sourceJSON(t, out[0]))
}

func TestParseRawValueUnderFieldKeyPassesThrough(t *testing.T) {
	leaf := filter.NewPrefix("name", "al")
	out, err := Parse(NewMap().Set("name", Prebuilt(leaf)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Same(t, leaf, out[0].(*filter.PrefixFilter))
}

func TestParseComparisonOperators(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"age >", `{"range":{"age":{"gt":18}}}`},
		{"age >=", `{"range":{"age":{"gte":18}}}`},
		{"age <", `{"range":{"age":{"lt":18}}}`},
		{"age <=", `{"range":{"age":{"lte":18}}}`},
		{"age !=", `{"bool":{"must_not":[{"term":{"age":18}}]}}`},
		{"age", `{"term":{"age":18}}`},
		{"age =", `{"term":{"age":18}}`},
	}
	for _, tc := range cases {
		out, err := Parse(NewMap().Set(tc.key, Value(18)))
		require.NoError(t, err, tc.key)
		require.Len(t, out, 1, tc.key)
		require.JSONEq(t, tc.want, sourceJSON(t, out[0]), tc.key)
	}
}

func TestParseInAcceptsScalar(t *testing.T) {
	out, err := Parse(NewMap().Set("tag in", Value("a")))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.JSONEq(t, `{"terms":{"tag":["a"]}}`, sourceJSON(t, out[0]))
}

func TestParseDepthLimit(t *testing.T) {
	cond := NewMap().Set("a is", Value(1))
	for i := 0; i < 10; i++ {
		cond = NewMap().Set("not", cond)
	}
	opts := Options{MaxDepth: 3}
	_, err := ParseWithOptions(cond, opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nesting exceeds")

	_, err = ParseWithOptions(cond, DefaultOptions())
	require.NoError(t, err)
}

func TestParseRejectsBareScalar(t *testing.T) {
	_, err := Parse(Value("oops"))
	require.Error(t, err)
}
