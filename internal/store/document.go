package store

import "time"

// Document is a snapshot of one stored record. Fields holds the dynamic
// field bag; the typed accessors below tolerate missing or differently
// typed values so adapters can map to fixed record types at the boundary.
type Document struct {
	ID     string
	Fields map[string]any
}

func (d Document) Str(key string) string {
	v, _ := d.Fields[key].(string)
	return v
}

func (d Document) Bool(key string) bool {
	v, _ := d.Fields[key].(bool)
	return v
}

func (d Document) Int(key string) int64 {
	return toInt64(d.Fields[key])
}

func (d Document) Time(key string) (time.Time, bool) {
	v, ok := d.Fields[key].(time.Time)
	return v, ok
}

func (d Document) StrSlice(key string) []string {
	switch v := d.Fields[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (d Document) Map(key string) map[string]any {
	v, _ := d.Fields[key].(map[string]any)
	return v
}

func (d Document) StrMap(key string) map[string]string {
	out := map[string]string{}
	for k, e := range d.Map(key) {
		if s, ok := e.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (d Document) IntMap(key string) map[string]int64 {
	out := map[string]int64{}
	for k, e := range d.Map(key) {
		out[k] = toInt64(e)
	}
	return out
}

func (d Document) TimeMap(key string) map[string]time.Time {
	out := map[string]time.Time{}
	for k, e := range d.Map(key) {
		if ts, ok := e.(time.Time); ok {
			out[k] = ts
		}
	}
	return out
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
