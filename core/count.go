package core

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Count is a non-negative counter (likes, comments, registrations, members).
// It is lenient when decoded: numbers, numeric strings and null are accepted and
// anything that is not a valid non-negative number becomes 0.
type Count int

// CountOf coerces v into a Count, defaulting to 0.
func CountOf(v interface{}) Count {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return Count(n).clamp()
	case int32:
		return Count(n).clamp()
	case int64:
		return Count(n).clamp()
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return Count(int64(n)).clamp()
	case Count:
		return n.clamp()
	case string:
		return parseCount([]byte(n))
	case []byte:
		return parseCount(n)
	default:
		return 0
	}
}

func parseCount(b []byte) Count {
	s := string(bytes.TrimSpace(b))
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Count(i).clamp()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return CountOf(f)
	}
	return 0
}

func (c Count) clamp() Count {
	if c < 0 {
		return 0
	}
	return c
}

// Inc returns c+1.
func (c Count) Inc() Count { return c.clamp() + 1 }

// Dec returns c-1, never going below zero.
func (c Count) Dec() Count {
	if c <= 0 {
		return 0
	}
	return c - 1
}

func (c Count) Int() int { return int(c.clamp()) }

func (c *Count) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		*c = 0
		return nil
	}
	*c = CountOf(v)
	return nil
}

func (c Count) Value() (driver.Value, error) {
	return int64(c.clamp()), nil
}

func (c *Count) Scan(src interface{}) error {
	switch src.(type) {
	case nil, int64, float64, string, []byte:
		*c = CountOf(src)
		return nil
	default:
		return errors.Errorf("core.Count: cannot scan %T", src)
	}
}
