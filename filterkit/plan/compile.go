package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/filterkit/filterkit/filterkit/filter"
	"github.com/filterkit/filterkit/filterkit/storage"
)

// ErrUnsupported marks filters a SQL backend cannot express.
var ErrUnsupported = errors.New("filter not supported by SQL backends")

// Output is the result of compiling a filter tree for one dialect.
type Output struct {
	WhereSQL string
	Args     []any
	Steps    []string
}

// Compile translates a filter tree into a WHERE clause over the docs table.
func Compile(d storage.Dialect, f filter.Filter) (*Output, error) {
	c := &compiler{dialect: d, builder: storage.NewArgBuilder(d.Placeholders())}
	where, err := c.compile(f)
	if err != nil {
		return nil, err
	}
	return &Output{WhereSQL: where, Args: c.builder.Args(), Steps: c.steps}, nil
}

type compiler struct {
	dialect storage.Dialect
	builder *storage.ArgBuilder
	steps   []string
}

func (c *compiler) step(format string, args ...any) {
	c.steps = append(c.steps, fmt.Sprintf(format, args...))
}

func (c *compiler) compile(f filter.Filter) (string, error) {
	switch v := f.(type) {
	case *filter.AndFilter:
		return c.compileJoin(v.Children(), " AND ", "1=1", "AND")
	case *filter.OrFilter:
		return c.compileJoin(v.Children(), " OR ", "1=0", "OR")
	case *filter.NotFilter:
		inner, err := c.compile(v.Child())
		if err != nil {
			return "", err
		}
		c.step("NOT")
		return "NOT (" + inner + ")", nil
	case *filter.TermFilter:
		return c.compileTerm(v)
	case *filter.TermsFilter:
		return c.compileTerms(v)
	case *filter.RangeFilter:
		return c.compileRange(v)
	case *filter.ExistsFilter:
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("EXISTS %s", v.Field)
		return expr + " IS NOT NULL", nil
	case *filter.MissingFilter:
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("MISSING %s", v.Field)
		return expr + " IS NULL", nil
	case *filter.PrefixFilter:
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("PREFIX %s:%s", v.Field, v.Prefix)
		ph := c.builder.Arg(likeEscape(v.Prefix) + "%")
		return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, expr, ph), nil
	case *filter.WildcardFilter:
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("WILDCARD %s:%s", v.Field, v.Pattern)
		ph := c.builder.Arg(wildcardToLike(v.Pattern))
		return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, expr, ph), nil
	case *filter.RegexpFilter:
		op := c.dialect.RegexpOp()
		if op == "" {
			return "", fmt.Errorf("plan: regexp filter: %w", ErrUnsupported)
		}
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("REGEXP %s:%s", v.Field, v.Pattern)
		ph := c.builder.Arg(v.Pattern)
		return fmt.Sprintf("%s %s %s", expr, op, ph), nil
	case *filter.IdsFilter:
		if len(v.Values) == 0 {
			return "1=0", nil
		}
		phs := make([]string, 0, len(v.Values))
		for _, id := range v.Values {
			phs = append(phs, c.builder.Arg(id))
		}
		c.step("IDS %d values", len(v.Values))
		return "id IN (" + strings.Join(phs, ", ") + ")", nil
	case *filter.MatchAllFilter:
		c.step("MATCH ALL")
		return "1=1", nil
	default:
		return "", fmt.Errorf("plan: %T: %w", f, ErrUnsupported)
	}
}

func (c *compiler) compileJoin(children []filter.Filter, sep, empty, label string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		part, err := c.compile(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	c.step("%s %d clauses", label, len(parts))
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) compileTerm(v *filter.TermFilter) (string, error) {
	if v.Value == nil {
		expr, err := c.dialect.FieldText(v.Field)
		if err != nil {
			return "", err
		}
		c.step("TERM %s IS NULL", v.Field)
		return expr + " IS NULL", nil
	}
	c.step("TERM %s=%v", v.Field, v.Value)
	return c.cmp(v.Field, "=", v.Value)
}

func (c *compiler) compileTerms(v *filter.TermsFilter) (string, error) {
	if len(v.Values) == 0 {
		return "1=0", nil
	}
	numeric := true
	for _, val := range v.Values {
		if !isNumeric(val) {
			numeric = false
			break
		}
	}
	var expr string
	var err error
	if numeric {
		expr, err = c.dialect.FieldNumber(v.Field)
	} else {
		expr, err = c.dialect.FieldText(v.Field)
	}
	if err != nil {
		return "", err
	}
	phs := make([]string, 0, len(v.Values))
	for _, val := range v.Values {
		if numeric {
			phs = append(phs, c.builder.Arg(val))
		} else {
			phs = append(phs, c.builder.Arg(toText(val)))
		}
	}
	c.step("TERMS %s (%d values)", v.Field, len(v.Values))
	return expr + " IN (" + strings.Join(phs, ", ") + ")", nil
}

// Bound iteration order is fixed for reproducible SQL.
var boundOrder = []struct {
	key string
	op  string
}{
	{filter.BoundGt, ">"},
	{filter.BoundGte, ">="},
	{filter.BoundLt, "<"},
	{filter.BoundLte, "<="},
}

func (c *compiler) compileRange(v *filter.RangeFilter) (string, error) {
	parts := make([]string, 0, len(v.Bounds))
	for _, b := range boundOrder {
		val, ok := v.Bounds[b.key]
		if !ok {
			continue
		}
		part, err := c.cmp(v.Field, b.op, val)
		if err != nil {
			return "", err
		}
		c.step("RANGE %s %s %v", v.Field, b.op, val)
		parts = append(parts, part)
	}
	switch len(parts) {
	case 0:
		return "1=1", nil
	case 1:
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (c *compiler) cmp(field, op string, value any) (string, error) {
	var expr string
	var err error
	var arg any
	if isNumeric(value) {
		expr, err = c.dialect.FieldNumber(field)
		arg = value
	} else {
		expr, err = c.dialect.FieldText(field)
		arg = toText(value)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", expr, op, c.builder.Arg(arg)), nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// toText renders a value the way it appears when the JSON field is extracted
// as text, so comparisons against text expressions stay consistent.
func toText(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return nil
	}
	return fmt.Sprintf("%v", v)
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func wildcardToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%':
			b.WriteString(`\%`)
		case '_':
			b.WriteString(`\_`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
