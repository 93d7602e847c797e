package docstore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BSON translates the filter for a MongoDB collection holding normalized
// documents. Regex conditions keep their substring meaning by quoting the
// source text; equality and $in are type-strict on the Mongo side.
func (f *Filter) BSON() bson.M {
	if f.IsEmpty() {
		return bson.M{}
	}
	var clauses bson.A
	for i := range f.Conditions {
		clauses = append(clauses, f.Conditions[i].bson())
	}
	if len(f.Or) > 0 {
		branches := make(bson.A, 0, len(f.Or))
		for _, b := range f.Or {
			branches = append(branches, b.BSON())
		}
		clauses = append(clauses, bson.M{"$or": branches})
	}
	if len(clauses) == 1 {
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

func (c *Condition) bson() bson.M {
	if c.Never {
		return bson.M{FieldID: bson.M{"$in": bson.A{}}}
	}
	switch c.Op {
	case OpEq:
		return bson.M{c.Field: mongoValue(c.Field, c.Value)}
	case OpNe:
		return bson.M{c.Field: bson.M{"$ne": mongoValue(c.Field, c.Value)}}
	case OpIn:
		values := make(bson.A, 0, len(c.Values))
		for _, v := range c.Values {
			values = append(values, mongoValue(c.Field, v))
		}
		return bson.M{c.Field: bson.M{"$in": values}}
	case OpRegex:
		return bson.M{c.Field: primitive.Regex{Pattern: regexp.QuoteMeta(c.Text), Options: "i"}}
	case OpGt, OpGte, OpLt, OpLte:
		return bson.M{c.Field: bson.M{string(c.Op): c.Text}}
	}
	return bson.M{}
}

// mongoValue converts a normalized operand; identities are always strings.
func mongoValue(field string, v any) any {
	if field == FieldID && v != nil {
		return Coerce(v)
	}
	return v
}

// FromBSON converts a decoded Mongo document into the normalized form the
// other backends store.
func FromBSON(raw bson.M) (Document, error) {
	return NormalizeDocument(map[string]any(raw))
}
