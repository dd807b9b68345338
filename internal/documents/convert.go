package documents

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ToJSON converts a decoded BSON document into values encoding/json can render:
// ObjectIDs become hex, datetimes RFC 3339, decimals strings and binary base64.
func ToJSON(doc bson.D) map[string]any {
	out := make(map[string]any, len(doc))
	for _, e := range doc {
		out[e.Key] = jsonValue(e.Value)
	}
	return out
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int32, int64, int:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return val
	case bson.D:
		return ToJSON(val)
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	case bson.A:
		return jsonSlice(val)
	case []any:
		return jsonSlice(val)
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return val.String()
	case bson.Binary:
		return base64.StdEncoding.EncodeToString(val.Data)
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case bson.Timestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", val.T, val.I)
	case bson.Regex:
		return fmt.Sprintf("/%s/%s", val.Pattern, val.Options)
	default:
		return fmt.Sprint(val)
	}
}

func jsonSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = jsonValue(item)
	}
	return out
}

// IDString renders an inserted id.
func IDString(id any) string {
	switch val := id.(type) {
	case bson.ObjectID:
		return val.Hex()
	case string:
		return val
	default:
		return fmt.Sprint(jsonValue(val))
	}
}
