package docstore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterBSON(t *testing.T) {
	require.Equal(t, bson.M{}, ParseFilter(M{}).BSON())

	require.Equal(t, bson.M{"_id": "42"}, ParseFilter(M{"id": 42}).BSON())

	require.Equal(t,
		bson.M{"title": primitive.Regex{Pattern: `c\+\+`, Options: "i"}},
		ParseFilter(M{"title": Regex{Pattern: "C++"}}).BSON())

	require.Equal(t,
		bson.M{"created_at": bson.M{"$gte": "2026-01-01T00:00:00.000000000Z"}},
		ParseFilter(M{"created_at": M{"$gte": "2026-01-01"}}).BSON())

	got := ParseFilter(M{"status": "active", "$or": []any{M{"a": 1}, M{"b": M{"$in": []any{"x"}}}}}).BSON()
	and, ok := got["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	require.Contains(t, and, bson.M{"status": "active"})
	require.Contains(t, and, bson.M{"$or": bson.A{bson.M{"a": float64(1)}, bson.M{"b": bson.M{"$in": bson.A{"x"}}}}})

	require.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{}}}, ParseFilter(M{"d": M{"$gt": "never"}}).BSON())
	require.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{}}}, ParseFilter(M{"salary": M{"$in": 5000}}).BSON())
	require.Equal(t, bson.M{"salary": bson.M{"$in": bson.A{float64(5000)}}}, ParseFilter(M{"salary": M{"$in": []int64{5000}}}).BSON())
}

func TestFromBSON(t *testing.T) {
	d, err := FromBSON(bson.M{"_id": "1", "n": int32(3), "tags": primitive.A{"a"}, "sub": bson.M{"k": int64(2)}})
	require.NoError(t, err)
	require.Equal(t, Document{"_id": "1", "n": float64(3), "tags": []any{"a"}, "sub": map[string]any{"k": float64(2)}}, d)
}
