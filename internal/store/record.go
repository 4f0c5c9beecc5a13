package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Record is one row of a collection, keyed by column name.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns a text column, or "" when absent or null.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// UUID returns a uuid column. The second result is false when absent, null or unparseable.
func (r Record) UUID(key string) (uuid.UUID, bool) {
	switch v := r[key].(type) {
	case uuid.UUID:
		return v, true
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return *v, true
	case [16]byte:
		return uuid.UUID(v), true
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	default:
		return uuid.Nil, false
	}
}

// UUIDPtr is UUID returning nil for a missing value.
func (r Record) UUIDPtr(key string) *uuid.UUID {
	id, ok := r.UUID(key)
	if !ok {
		return nil
	}
	return &id
}

// Time returns a timestamp column. Strings are parsed as RFC 3339.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Int64 returns an integer column, or 0.
func (r Record) Int64(key string) int64 {
	n, _ := toInt64(r[key])
	return n
}

// Bool returns a boolean column, or false.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Strings returns a text array column.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
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

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// normalize maps equivalent representations onto one comparable value:
// uuids become strings and integral numbers become int64.
func normalize(v any) any {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return x.String()
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x.UTC()
	}
	if n, ok := toInt64(v); ok {
		return n
	}
	return v
}

// Matches reports whether rec satisfies every condition of f.
func (f Filter) Matches(rec Record) bool {
	for _, c := range f {
		v, present := rec[c.Column]
		switch c.Op {
		case OpIsNull:
			if present && normalize(v) != nil {
				return false
			}
		default:
			if !present || !valuesEqual(v, c.Value) {
				return false
			}
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	defer func() { recover() }() // uncomparable dynamic types are never equal
	return na == nb
}

// compareValues orders two column values; nil sorts first.
func compareValues(a, b any) int {
	na, nb := normalize(a), normalize(b)
	switch {
	case na == nil && nb == nil:
		return 0
	case na == nil:
		return -1
	case nb == nil:
		return 1
	}
	switch x := na.(type) {
	case time.Time:
		if y, ok := nb.(time.Time); ok {
			return x.Compare(y)
		}
	case int64:
		if y, ok := nb.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := nb.(float64); ok {
			return cmp.Compare(x, y)
		}
	case string:
		if y, ok := nb.(string); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := nb.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(na), fmt.Sprint(nb))
}
