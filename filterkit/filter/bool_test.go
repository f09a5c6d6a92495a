package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAndComposite(t *testing.T) {
	and := NewAnd(NewTerm("a", 1))
	and.Add(NewTerm("b", 2), NewTerm("c", 3))
	require.Equal(t, 3, and.Len())
	require.JSONEq(t,
		`{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}},{"term":{"c":3}}]}}`,
		renderJSON(t, and))
}

func TestEmptyAnd(t *testing.T) {
	require.JSONEq(t, `{"bool":{"must":[]}}`, renderJSON(t, NewAnd()))
}

func TestOrComposite(t *testing.T) {
	or := NewOr(NewTerm("a", 1)).Add(NewTerm("b", 2))
	require.Equal(t, 2, or.Len())
	require.JSONEq(t,
		`{"bool":{"should":[{"term":{"a":1}},{"term":{"b":2}}]}}`,
		renderJSON(t, or))
}

func TestNotComposite(t *testing.T) {
	not := NewNot(NewTerm("a", 1))
	require.JSONEq(t,
		`{"bool":{"must_not":[{"term":{"a":1}}]}}`,
		renderJSON(t, not))
}

func TestCompositesNest(t *testing.T) {
	f := NewAnd(
		NewTerm("status", "active"),
		NewOr(NewTerm("a", 1), NewNot(NewTerm("b", 2))),
	)
	require.JSONEq(t,
		`{"bool":{"must":[
			{"term":{"status":"active"}},
			{"bool":{"should":[
				{"term":{"a":1}},
				{"bool":{"must_not":[{"term":{"b":2}}]}}
			]}}
		]}}`,
		renderJSON(t, f))
}

func TestCombine(t *testing.T) {
	and, err := Combine("and", NewTerm("a", 1), NewTerm("b", 2))
	require.NoError(t, err)
	require.IsType(t, &AndFilter{}, and)

	or, err := Combine(" OR ", NewTerm("a", 1))
	require.NoError(t, err)
	require.IsType(t, &OrFilter{}, or)
}

func TestCombineRejectsUnknownOperator(t *testing.T) {
	_, err := Combine("xor", NewTerm("a", 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported combine operator")
}
