// Package normalize maps raw records of any known source shape to the canonical
// display records. Nothing in this package returns an error for a bad record:
// missing or ill-typed attributes fall back to their defaults.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"restaurant-site/internal/models"
)

// Rule lists the candidate paths for one logical attribute. Paths are dotted
// (e.g. "authorAttribution.displayName") and tried in order; the first value that
// is present, non-null and accepted by Convert wins, otherwise Default is used.
type Rule[T any] struct {
	Paths   []string
	Default T
	Convert func(v interface{}) (T, bool)
}

// Resolve returns the first matching candidate or the rule default.
func (r Rule[T]) Resolve(raw models.RawRecord) T {
	return r.ResolveOr(raw, r.Default)
}

// ResolveOr is Resolve with a caller supplied default.
func (r Rule[T]) ResolveOr(raw models.RawRecord, def T) T {
	if v, ok := r.Lookup(raw); ok {
		return v
	}
	return def
}

// Lookup reports the first matching candidate, if any.
func (r Rule[T]) Lookup(raw models.RawRecord) (T, bool) {
	for _, path := range r.Paths {
		v, ok := lookupPath(raw, path)
		if !ok || v == nil {
			continue
		}
		if out, ok := r.Convert(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

func lookupPath(raw models.RawRecord, path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(raw)
	for _, seg := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case models.RawRecord:
		return m, true
	default:
		return nil, false
	}
}

// --- converters ---

func toString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		if f, ok := toNumber(v); ok {
			return f != 0, true
		}
		return false, false
	}
}

// toTime accepts RFC 3339 strings and unix timestamps in seconds.
func toTime(v interface{}) (time.Time, bool) {
	if s, ok := v.(string); ok {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if f, ok := toNumber(v); ok && f > 0 {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
	return time.Time{}, false
}

// toID formats numeric ids in base 10 and keeps string ids as they are.
func toID(v interface{}) (models.ItemID, bool) {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", false
		}
		return models.ItemID(id), true
	case json.Number:
		return models.ItemID(id.String()), true
	}
	f, ok := toNumber(v)
	if !ok {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return models.ItemID(strconv.FormatInt(int64(f), 10)), true
	}
	return models.ItemID(strconv.FormatFloat(f, 'f', -1, 64)), true
}

// present accepts anything non-null; used for prices, which ParsePrice interprets.
func present(v interface{}) (interface{}, bool) {
	return v, v != nil
}

func stringRule(def string, paths ...string) Rule[string] {
	return Rule[string]{Paths: paths, Default: def, Convert: toString}
}
