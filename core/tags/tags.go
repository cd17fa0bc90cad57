// Package tags normalizes the loosely typed tag-like fields (tags, interests, resources,
// facilities) into one canonical representation at the data boundary.
package tags

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// List is the canonical form: trimmed, non-empty, without duplicates (case-insensitive),
// in first-seen order. A nil List and an empty List are equivalent.
type List []string

// Normalize accepts a []string, a []interface{}, a JSON-encoded array, a JSON-encoded
// string, a comma separated string or nil, and returns the canonical List.
func Normalize(v interface{}) List {
	switch val := v.(type) {
	case nil:
		return List{}
	case List:
		return clean(val)
	case []string:
		return clean(val)
	case []interface{}:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				strs = append(strs, s)
			}
		}
		return clean(strs)
	case string:
		return Parse(val)
	case []byte:
		return Parse(string(val))
	default:
		return List{}
	}
}

// Parse decodes a raw stored value: a JSON array, a JSON string (itself holding any of
// the supported forms) or a comma separated list.
func Parse(raw string) List {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return List{}
	}
	switch raw[0] {
	case '[':
		var items []interface{}
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return Normalize(items)
		}
		raw = strings.Trim(raw, "[]")
	case '"':
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			return Parse(inner)
		}
	}
	return clean(strings.Split(raw, ","))
}

func clean(items []string) List {
	out := make(List, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), `"'`))
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Contains reports whether tag is in l, case-insensitively.
func (l List) Contains(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range l {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Intersect returns the tags present in both lists, in l's order.
func (l List) Intersect(other List) List {
	out := List{}
	for _, t := range l {
		if other.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// MatchFold reports whether any tag contains substr, case-insensitively.
func (l List) MatchFold(substr string) bool {
	substr = strings.ToLower(substr)
	for _, t := range l {
		if strings.Contains(strings.ToLower(t), substr) {
			return true
		}
	}
	return false
}

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = List{}
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "decoding tags")
	}
	*l = Normalize(v)
	return nil
}

// Value stores the list as a JSON array.
func (l List) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan accepts every stored form (see Parse).
func (l *List) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = List{}
	case string:
		*l = Parse(v)
	case []byte:
		*l = Parse(string(v))
	default:
		return errors.Errorf("tags: cannot scan %T", src)
	}
	return nil
}
