package documents

import (
	"encoding/json"
	"maps"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NormalizeFilter returns a copy of filter in which a string _id holding valid
// ObjectID hex is replaced by the ObjectID. Any other _id is left as is.
func NormalizeFilter(filter map[string]any) map[string]any {
	out := maps.Clone(filter)
	if out == nil {
		return map[string]any{}
	}

	if raw, ok := out["_id"].(string); ok {
		if oid, err := bson.ObjectIDFromHex(raw); err == nil {
			out["_id"] = oid
		}
	}

	return out
}

// SortDocument converts sort keys into an ordered BSON document.
func SortDocument(keys []SortKey) bson.D {
	sort := make(bson.D, 0, len(keys))
	for _, k := range keys {
		sort = append(sort, bson.E{Key: k.Field, Value: k.Direction})
	}
	return sort
}

// normalizeNumbers turns json.Number values into int64 when integral, float64 otherwise,
// so integers in requests are stored as BSON integers rather than doubles.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}

func normalizeDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return normalizeNumbers(doc).(map[string]any)
}
