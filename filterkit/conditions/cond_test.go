package conditions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJSONPreservesKeyOrder(t *testing.T) {
	c, err := DecodeJSON([]byte(`{"zeta is": 1, "alpha is": 2, "mid >": 3}`))
	require.NoError(t, err)

	m, ok := c.(*Map)
	require.True(t, ok, "expected *Map, got %T", c)
	require.Equal(t, 3, m.Len())

	var keys []string
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	require.Equal(t, []string{"zeta is", "alpha is", "mid >"}, keys)
}

func TestDecodeJSONScalarArrayIsList(t *testing.T) {
	c, err := DecodeJSON([]byte(`["a", "b", 3]`))
	require.NoError(t, err)

	l, ok := c.(List)
	require.True(t, ok, "expected List, got %T", c)
	require.Equal(t, []any{"a", "b", int64(3)}, l.Values)
}

func TestDecodeJSONStructuredArrayIsSeq(t *testing.T) {
	c, err := DecodeJSON([]byte(`[{"a is": 1}, {"b is": 2}]`))
	require.NoError(t, err)

	s, ok := c.(Seq)
	require.True(t, ok, "expected Seq, got %T", c)
	require.Len(t, s.Items, 2)
	_, ok = s.Items[0].(*Map)
	require.True(t, ok)
}

func TestDecodeJSONNumbers(t *testing.T) {
	c, err := DecodeJSON([]byte(`{"a": 42, "b": 4.5}`))
	require.NoError(t, err)

	m := c.(*Map)
	a, _ := m.Get("a")
	require.Equal(t, Scalar{Value: int64(42)}, a)
	b, _ := m.Get("b")
	require.Equal(t, Scalar{Value: 4.5}, b)
}

func TestDecodeJSONNullAndBool(t *testing.T) {
	c, err := DecodeJSON([]byte(`{"deletedAt is": null, "active is": true}`))
	require.NoError(t, err)

	m := c.(*Map)
	d, _ := m.Get("deletedAt is")
	require.Equal(t, Scalar{Value: nil}, d)
	a, _ := m.Get("active is")
	require.Equal(t, Scalar{Value: true}, a)
}

func TestDecodeJSONNested(t *testing.T) {
	c, err := DecodeJSON([]byte(`{"or": {"a is": 1, "b in": ["x", "y"]}}`))
	require.NoError(t, err)

	m := c.(*Map)
	or, ok := m.Get("or")
	require.True(t, ok)
	inner, ok := or.(*Map)
	require.True(t, ok)
	bv, _ := inner.Get("b in")
	require.Equal(t, List{Values: []any{"x", "y"}}, bv)
}

func TestDecodeJSONTrailingData(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a": 1} {"b": 2}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "trailing data")
}

func TestDecodeJSONInvalid(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a":`))
	require.Error(t, err)
}

func TestCondValueShapes(t *testing.T) {
	require.Equal(t, "x", condValue(Value("x")))
	require.Nil(t, condValue(Value(nil)))
	require.Equal(t, []any{"a", "b"}, condValue(Values("a", "b")))
	require.Equal(t, []any{int64(1), "b"}, condValue(Items(Value(int64(1)), Value("b"))))

	m := NewMap().Set("k", Value("v"))
	require.Equal(t, map[string]any{"k": "v"}, condValue(m))
}
