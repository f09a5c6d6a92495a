package conditions

import (
	"strings"
	"unicode"
)

// Op is a comparison operator resolved from a field-key suffix.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpIs
	OpIsNot
	OpNeq
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpIs:
		return "is"
	case OpIsNot:
		return "is not"
	case OpNeq:
		return "!="
	default:
		return "?"
	}
}

// SplitKey splits a field key on its first whitespace run into a field name
// and an operator. The suffix is lower-cased and inner whitespace collapsed,
// so "age   >" and "tag NOT  IN" resolve normally. A missing or empty suffix
// means equality. known is false when the suffix is not a recognized
// operator; callers fall back to equality unless configured strict.
func SplitKey(key string) (field string, op Op, known bool) {
	i := strings.IndexFunc(key, unicode.IsSpace)
	if i < 0 {
		return key, OpEq, true
	}
	field = key[:i]
	token := strings.ToLower(strings.Join(strings.Fields(key[i:]), " "))
	switch token {
	case "", "=":
		return field, OpEq, true
	case ">":
		return field, OpGt, true
	case ">=":
		return field, OpGte, true
	case "<":
		return field, OpLt, true
	case "<=":
		return field, OpLte, true
	case "in":
		return field, OpIn, true
	case "not in":
		return field, OpNotIn, true
	case "is":
		return field, OpIs, true
	case "is not":
		return field, OpIsNot, true
	case "!=":
		return field, OpNeq, true
	}
	return field, OpEq, false
}
