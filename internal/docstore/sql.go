package docstore

import (
	"strings"
)

// Columns of a collection table. The payload column holds the whole document
// as JSON, system fields included.
const (
	ColumnID        = "id"
	ColumnData      = "data"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// systemColumn maps fields that live in their own column.
func systemColumn(field string) (string, bool) {
	switch field {
	case FieldID:
		return ColumnID, true
	case FieldCreatedAt:
		return ColumnCreatedAt, true
	case FieldUpdatedAt:
		return ColumnUpdatedAt, true
	}
	return "", false
}

// JSONPath returns the SQLite JSON path addressing a top-level field.
func JSONPath(field string) string {
	return `$."` + field + `"`
}

// SQL compiles the filter into a SQLite WHERE clause over the data column
// with positional parameters. An empty filter yields an empty clause.
func (f *Filter) SQL() (string, []any) {
	if f.IsEmpty() {
		return "", nil
	}
	var b sqlBuilder
	b.filter(f)
	return b.sb.String(), b.args
}

type sqlBuilder struct {
	sb   strings.Builder
	args []any
}

func (b *sqlBuilder) write(s string, args ...any) {
	b.sb.WriteString(s)
	b.args = append(b.args, args...)
}

func (b *sqlBuilder) filter(f *Filter) {
	if f.IsEmpty() {
		b.write("1")
		return
	}
	for i := range f.Conditions {
		if i > 0 {
			b.write(" AND ")
		}
		b.condition(&f.Conditions[i])
	}
	if len(f.Or) == 0 {
		return
	}
	if len(f.Conditions) > 0 {
		b.write(" AND ")
	}
	b.write("(")
	for i, branch := range f.Or {
		if i > 0 {
			b.write(" OR ")
		}
		b.write("(")
		b.filter(branch)
		b.write(")")
	}
	b.write(")")
}

// text writes the string-coerced value of a field.
func (b *sqlBuilder) text(field string) {
	if col, ok := systemColumn(field); ok {
		b.write(col)
		return
	}
	p := JSONPath(field)
	b.write("(CASE json_type(data, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' ELSE CAST(data ->> ? AS TEXT) END)", p, p)
}

// isNull writes a test for a missing or null field.
func (b *sqlBuilder) isNull(field string) {
	if col, ok := systemColumn(field); ok {
		b.write(col + " IS NULL")
		return
	}
	b.write("data ->> ? IS NULL", JSONPath(field))
}

func (b *sqlBuilder) condition(c *Condition) {
	if c.Never {
		b.write("0")
		return
	}
	switch c.Op {
	case OpEq:
		if c.Value == nil {
			b.isNull(c.Field)
			return
		}
		b.text(c.Field)
		b.write(" = ?", Coerce(c.Value))
	case OpNe:
		if c.Value == nil {
			b.write("NOT (")
			b.isNull(c.Field)
			b.write(")")
			return
		}
		b.write("COALESCE(")
		b.text(c.Field)
		b.write(" <> ?, 1)", Coerce(c.Value))
	case OpIn:
		b.in(c)
	case OpRegex:
		b.write("LOWER(")
		b.text(c.Field)
		b.write(`) LIKE '%' || ? || '%' ESCAPE '\'`, escapeLike(c.Text))
	case OpGt, OpGte, OpLt, OpLte:
		op := map[Operator]string{OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<="}[c.Op]
		if col, ok := systemColumn(c.Field); ok {
			b.write(col+" "+op+" ?", c.Text)
			return
		}
		p := JSONPath(c.Field)
		b.write("(json_type(data, ?) = 'text' AND data ->> ? GLOB '[0-9][0-9][0-9][0-9]-*' AND julianday(data ->> ?) "+op+" julianday(?))", p, p, p, c.Text)
	default:
		b.write("1")
	}
}

func (b *sqlBuilder) in(c *Condition) {
	var values []any
	matchNull := false
	for _, v := range c.Values {
		if v == nil {
			matchNull = true
			continue
		}
		values = append(values, Coerce(v))
	}
	if len(values) == 0 && !matchNull {
		b.write("0")
		return
	}
	b.write("(")
	if matchNull {
		b.isNull(c.Field)
		if len(values) > 0 {
			b.write(" OR ")
		}
	}
	if len(values) > 0 {
		b.text(c.Field)
		b.write(" IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")")
		b.args = append(b.args, values...)
	}
	b.write(")")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// OrderSQL returns the ORDER BY expression for a sort key, with its
// parameters. Timestamps and _id sort on their columns, other fields on the
// raw JSON value (SQLite orders NULL, then numbers, then text).
func (s Sort) OrderSQL() (string, []any) {
	dir := "ASC"
	if s.Direction < 0 {
		dir = "DESC"
	}
	if col, ok := systemColumn(s.Field); ok {
		return col + " " + dir, nil
	}
	return "data ->> ? " + dir, []any{JSONPath(s.Field)}
}
