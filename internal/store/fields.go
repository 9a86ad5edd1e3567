package store

import (
	"strings"
	"time"
)

// Field-bag helpers shared by Store implementations.

// Matches reports whether a field bag satisfies every filter.
func Matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v := LookupDotted(fields, f.Field)
		switch f.Op {
		case "==":
			if !equalValue(v, f.Value) {
				return false
			}
		case "array-contains":
			found := false
			switch arr := v.(type) {
			case []string:
				for _, e := range arr {
					if equalValue(e, f.Value) {
						found = true
					}
				}
			case []any:
				for _, e := range arr {
					if equalValue(e, f.Value) {
						found = true
					}
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// Less orders two field values for OrderBy evaluation.
func Less(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Before(bv)
	case string:
		bv, _ := b.(string)
		return av < bv
	case int64:
		return av < toInt64(b)
	case int:
		return int64(av) < toInt64(b)
	case float64:
		bv, _ := b.(float64)
		return av < bv
	default:
		// Missing fields sort first.
		return a == nil && b != nil
	}
}

// ResolveSentinels replaces write sentinels (server timestamp, increment)
// with concrete values against the existing field bag.
func ResolveSentinels(fields map[string]any, existing map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch sv := v.(type) {
		case serverTimestamp:
			out[k] = now
		case increment:
			out[k] = toInt64(LookupDotted(existing, k)) + sv.by
		case map[string]any:
			var nested map[string]any
			if e, ok := existing[k].(map[string]any); ok {
				nested = e
			}
			out[k] = ResolveSentinels(sv, nested, now)
		default:
			out[k] = v
		}
	}
	return out
}

func LookupDotted(fields map[string]any, path string) any {
	parts := strings.Split(path, ".")
	cur := any(fields)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// MergeFields merges src into dst, map values merge key-wise.
func MergeFields(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				MergeFields(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// ApplyDotted applies update fields, honoring dotted paths.
func ApplyDotted(dst map[string]any, fields map[string]any) {
	for k, v := range fields {
		parts := strings.Split(k, ".")
		cur := dst
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
}

// DeepCopy clones a field bag including nested maps and slices.
func DeepCopy(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = DeepCopy(tv)
		case []string:
			out[k] = append([]string(nil), tv...)
		case []any:
			out[k] = append([]any(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}
