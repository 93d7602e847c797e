package docstore

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jobboard/backend/go-services/pkg/logger"
)

var log = logger.Named("docstore")

// Operator is a comparison operator supported by the filter language.
type Operator string

const (
	OpEq    Operator = "$eq"
	OpNe    Operator = "$ne"
	OpIn    Operator = "$in"
	OpRegex Operator = "$regex"
	OpGt    Operator = "$gt"
	OpGte   Operator = "$gte"
	OpLt    Operator = "$lt"
	OpLte   Operator = "$lte"
)

// Regex is a pattern filter value. Only its literal source text is used: the
// match is an ASCII case-insensitive substring test, not a regular expression.
type Regex struct {
	Pattern string
}

// Condition is one compiled leaf of a filter.
type Condition struct {
	Field string
	Op    Operator

	// Value is the normalized operand of $eq and $ne (nil means missing/null).
	Value any
	// Values holds the normalized operands of $in.
	Values []any
	// Text is the lowercased substring for $regex and the TimeLayout bound
	// for the date comparisons.
	Text string
	// Never marks a condition that cannot match anything (an unparseable
	// date bound, a $in operand that is not a list).
	Never bool
}

// Filter is the compiled, backend-neutral form of a filter expression.
// Conditions are ANDed with the optional disjunction in Or.
type Filter struct {
	Conditions []Condition
	Or         []*Filter
}

// ParseFilter compiles a filter expression. Unsupported operators and keys are
// dropped; they never cause an error.
func ParseFilter(filter map[string]any) *Filter {
	f := &Filter{}
	for key, val := range filter {
		if key == "$or" {
			branches, ok := asList(val)
			if !ok || len(branches) == 0 {
				log.Debugf("ignoring malformed $or: %v", val)
				continue
			}
			for _, b := range branches {
				m, ok := asMap(b)
				if !ok {
					log.Debugf("ignoring non-object $or branch: %v", b)
					continue
				}
				f.Or = append(f.Or, ParseFilter(m))
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			log.Debugf("ignoring unsupported filter key %s", key)
			continue
		}
		if strings.Contains(key, `"`) {
			log.Debugf("ignoring unaddressable filter field %q", key)
			continue
		}
		field := key
		if field == "id" {
			field = FieldID
		}
		f.Conditions = append(f.Conditions, parseField(field, val)...)
	}
	return f
}

func parseField(field string, val any) []Condition {
	if pattern, ok := regexSource(val); ok {
		return []Condition{regexCondition(field, pattern)}
	}
	ops, ok := asMap(val)
	if !ok || !isOperatorMap(ops) {
		return []Condition{{Field: field, Op: OpEq, Value: normalizeOperand(val)}}
	}
	var conds []Condition
	for op, operand := range ops {
		switch Operator(op) {
		case OpEq:
			conds = append(conds, Condition{Field: field, Op: OpEq, Value: normalizeOperand(operand)})
		case OpNe:
			conds = append(conds, Condition{Field: field, Op: OpNe, Value: normalizeOperand(operand)})
		case OpIn:
			list, ok := asList(operand)
			if !ok {
				log.Debugf("non-list $in on %s matches nothing", field)
				conds = append(conds, Condition{Field: field, Op: OpIn, Never: true})
				continue
			}
			c := Condition{Field: field, Op: OpIn, Values: make([]any, 0, len(list))}
			for _, item := range list {
				c.Values = append(c.Values, normalizeOperand(item))
			}
			conds = append(conds, c)
		case OpRegex:
			pattern, ok := regexSource(operand)
			if !ok {
				s, isString := operand.(string)
				if !isString {
					log.Debugf("ignoring non-string $regex on %s", field)
					continue
				}
				pattern = s
			}
			conds = append(conds, regexCondition(field, pattern))
		case OpGt, OpGte, OpLt, OpLte:
			bound, ok := dateBound(operand)
			conds = append(conds, Condition{Field: field, Op: Operator(op), Text: bound, Never: !ok})
		default:
			log.Debugf("ignoring unsupported operator %s on %s", op, field)
		}
	}
	return conds
}

func regexCondition(field, pattern string) Condition {
	return Condition{Field: field, Op: OpRegex, Text: asciiLower(pattern)}
}

// isOperatorMap reports whether a map is an operator object ({"$in": ...})
// rather than an embedded document compared by value.
func isOperatorMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func regexSource(v any) (string, bool) {
	switch t := v.(type) {
	case Regex:
		return t.Pattern, true
	case *Regex:
		return t.Pattern, t != nil
	case *regexp.Regexp:
		if t == nil {
			return "", false
		}
		return t.String(), true
	case primitive.Regex:
		return t.Pattern, true
	}
	return "", false
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case M:
		return t, true
	case map[string]any:
		return t, true
	case bson.M:
		return t, true
	case Document:
		return t, true
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

// asList accepts any slice or array, so typed operands like []int64 or
// []Document work. Byte slices are values, not lists.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case primitive.A:
		return t, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func normalizeOperand(v any) any {
	out, err := Normalize(v)
	if err != nil {
		log.Debugf("filter operand %v is not representable, comparing as text: %v", v, err)
		return Coerce(v)
	}
	return out
}

// dateBound renders a date comparison operand in TimeLayout. Numbers are
// taken as Unix milliseconds.
func dateBound(v any) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		return FormatTime(t), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return FormatTime(*t), true
	case primitive.DateTime:
		return FormatTime(t.Time()), true
	case string:
		if parsed, ok := parseTime(t); ok {
			return FormatTime(parsed), true
		}
		if ms, ok := dateMillis(t); ok {
			return FormatTime(time.UnixMilli(ms)), true
		}
	case int:
		return FormatTime(time.UnixMilli(int64(t))), true
	case int64:
		return FormatTime(time.UnixMilli(t)), true
	case float64:
		return FormatTime(time.UnixMilli(int64(t))), true
	}
	return "", false
}

// Coerce renders a normalized value as the text both backends compare
// equality, $ne and $in on. It mirrors what SQLite produces for
// CAST(data ->> path AS TEXT), with booleans spelled out.
func Coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(t)
	case float32:
		return formatNumber(float64(t))
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	}
	raw, err := marshalJSON(prepare(v))
	if err != nil {
		return ""
	}
	return string(raw)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// asciiLower lowercases ASCII letters only, as SQLite's LOWER() does.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// IsEmpty reports whether the filter selects every document: it has no
// conditions and either no $or or an $or with a branch that is itself empty.
func (f *Filter) IsEmpty() bool {
	if f == nil {
		return true
	}
	if len(f.Conditions) > 0 {
		return false
	}
	if len(f.Or) == 0 {
		return true
	}
	for _, branch := range f.Or {
		if branch.IsEmpty() {
			return true
		}
	}
	return false
}

// SeedFields returns the top-level equality fields of the filter. An upsert
// starts the new document from them, as MongoDB does.
func (f *Filter) SeedFields() Document {
	seed := Document{}
	if f == nil {
		return seed
	}
	for _, c := range f.Conditions {
		if c.Op != OpEq || c.Field == FieldID || c.Field == FieldCreatedAt || c.Field == FieldUpdatedAt || c.Value == nil {
			continue
		}
		seed[c.Field] = cloneValue(c.Value)
	}
	return seed
}

// IDLookup returns the identity pinned by a filter consisting of a single
// _id equality, letting backends take a direct lookup path.
func (f *Filter) IDLookup() (string, bool) {
	if f == nil || len(f.Or) > 0 || len(f.Conditions) != 1 {
		return "", false
	}
	c := f.Conditions[0]
	if c.Field != FieldID || c.Op != OpEq || c.Value == nil {
		return "", false
	}
	return Coerce(c.Value), true
}
