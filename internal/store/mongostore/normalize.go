package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hanpama/fieldguide/internal/store"
)

// normalizeDocument turns a decoded BSON document into plain Go values:
// nested documents become map[string]any, arrays []any, ObjectIDs their hex
// string, datetimes time.Time and 32-bit integers int.
func normalizeDocument(doc bson.M) store.Record {
	out := make(store.Record, len(doc))
	for k, v := range doc {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case bson.M:
		return normalizeDocument(x)
	case map[string]any:
		return normalizeDocument(bson.M(x))
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		return normalizeSlice(x)
	case []any:
		return normalizeSlice(x)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return int64(x.T)
	case primitive.Decimal128:
		return x.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case int32:
		return int(x)
	}
	return v
}

func normalizeSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = normalize(v)
	}
	return out
}
