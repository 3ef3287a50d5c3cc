package subdoc

import (
	"reflect"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Diff returns the subset of partial whose values differ from current.
// A nil current means the item is not known yet and every field is kept.
func Diff(current Item, partial map[string]any) map[string]any {
	set := make(map[string]any, len(partial))
	for field, value := range partial {
		if current == nil {
			set[field] = value
			continue
		}
		if !Equal(current[field], value) {
			set[field] = value
		}
	}
	return set
}

// Equal compares two stored or submitted values structurally. Numbers are
// compared by value regardless of width, identifiers by hex and timestamps
// at the millisecond precision documents keep.
func Equal(a, b any) bool {
	return cmp.Equal(canonical(a), canonical(b))
}

func canonical(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case time.Time:
		return x.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
	case primitive.DateTime:
		return x.Time().UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
	case primitive.D:
		return canonicalMap(x.Map())
	case bson.M:
		return canonicalMap(x)
	case Item:
		return canonicalMap(x)
	case map[string]any:
		return canonicalMap(x)
	case primitive.A:
		return canonicalSlice(x)
	case []any:
		return canonicalSlice(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return canonical(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonical(iter.Value().Interface())
		}
		return out
	case reflect.Struct:
		// typed values are compared through their document form
		item, err := Encode(v)
		if err != nil {
			return v
		}
		return canonicalMap(item)
	}
	return v
}

func canonicalMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = canonical(v)
	}
	return out
}

func canonicalSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = canonical(v)
	}
	return out
}
