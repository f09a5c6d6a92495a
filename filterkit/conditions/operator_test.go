package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitKey(t *testing.T) {
	cases := []struct {
		key   string
		field string
		op    Op
		known bool
	}{
		{"age", "age", OpEq, true},
		{"age >", "age", OpGt, true},
		{"age >=", "age", OpGte, true},
		{"age <", "age", OpLt, true},
		{"age <=", "age", OpLte, true},
		{"age =", "age", OpEq, true},
		{"age !=", "age", OpNeq, true},
		{"tag in", "tag", OpIn, true},
		{"tag not in", "tag", OpNotIn, true},
		{"deletedAt is", "deletedAt", OpIs, true},
		{"deletedAt is not", "deletedAt", OpIsNot, true},
		{"tag NOT IN", "tag", OpNotIn, true},    // case-insensitive
		{"tag  not   in", "tag", OpNotIn, true}, // whitespace collapsed
		{"age\t>=", "age", OpGte, true},
		{"age ", "age", OpEq, true},
		{"field ~~", "field", OpEq, false},
		{"field like", "field", OpEq, false},
	}
	for _, tc := range cases {
		field, op, known := SplitKey(tc.key)
		assert.Equal(t, tc.field, field, tc.key)
		assert.Equal(t, tc.op, op, tc.key)
		assert.Equal(t, tc.known, known, tc.key)
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "=", OpEq.String())
	assert.Equal(t, "not in", OpNotIn.String())
	assert.Equal(t, "is not", OpIsNot.String())
	assert.Equal(t, "?", Op(99).String())
}
