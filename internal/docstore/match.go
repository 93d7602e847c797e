package docstore

import (
	"strings"
	"time"
)

// Predicate compiles the filter into an in-memory predicate.
func (f *Filter) Predicate() func(Document) bool {
	return f.Match
}

// Match evaluates the filter against a stored (normalized) document.
func (f *Filter) Match(doc Document) bool {
	if f == nil {
		return true
	}
	for i := range f.Conditions {
		if !f.Conditions[i].match(doc) {
			return false
		}
	}
	if len(f.Or) == 0 {
		return true
	}
	for _, branch := range f.Or {
		if branch.Match(doc) {
			return true
		}
	}
	return false
}

func lookup(doc Document, field string) (any, bool) {
	v, ok := doc[field]
	if !ok || v == nil {
		return nil, false
	}
	if t, isTime := v.(time.Time); isTime {
		return FormatTime(t), true
	}
	return v, true
}

func (c *Condition) match(doc Document) bool {
	if c.Never {
		return false
	}
	v, present := lookup(doc, c.Field)
	switch c.Op {
	case OpEq:
		if c.Value == nil {
			return !present
		}
		return present && Coerce(v) == Coerce(c.Value)
	case OpNe:
		if c.Value == nil {
			return present
		}
		return !present || Coerce(v) != Coerce(c.Value)
	case OpIn:
		for _, want := range c.Values {
			if want == nil {
				if !present {
					return true
				}
				continue
			}
			if present && Coerce(v) == Coerce(want) {
				return true
			}
		}
		return false
	case OpRegex:
		return present && strings.Contains(asciiLower(Coerce(v)), c.Text)
	case OpGt, OpGte, OpLt, OpLte:
		s, ok := v.(string)
		if !present || !ok {
			return false
		}
		if _, system := systemColumn(c.Field); system {
			return compareOrdered(c.Op, s, c.Text)
		}
		at, ok := dateMillis(s)
		if !ok {
			return false
		}
		bound, _ := dateMillis(c.Text)
		return compareOrdered(c.Op, at, bound)
	}
	return true
}

// compareOrdered applies a range operator. System timestamp columns hold
// TimeLayout text and compare as strings; other fields compare as instants.
func compareOrdered[T int64 | string](op Operator, v, bound T) bool {
	switch op {
	case OpGt:
		return v > bound
	case OpGte:
		return v >= bound
	case OpLt:
		return v < bound
	default:
		return v <= bound
	}
}
