// Package status holds the lifecycle statuses shared by every module (events, budget
// requests, clubs, users, conflicts) and their presentation badges.
package status

import (
	"database/sql/driver"
	"strings"

	"github.com/pkg/errors"
)

type Status uint8

const (
	Unknown Status = iota
	Pending
	Approved
	Rejected
	Cancelled
	Active
	Inactive
	Open
	Resolved
)

var ErrInvalid = errors.New("invalid status")

var names = [...]string{
	Unknown:   "unknown",
	Pending:   "pending",
	Approved:  "approved",
	Rejected:  "rejected",
	Cancelled: "cancelled",
	Active:    "active",
	Inactive:  "inactive",
	Open:      "open",
	Resolved:  "resolved",
}

// All returns every known status except Unknown.
func All() []Status {
	all := make([]Status, 0, len(names)-1)
	for s := Pending; int(s) < len(names); s++ {
		all = append(all, s)
	}
	return all
}

func (s Status) String() string {
	if int(s) < len(names) {
		return names[s]
	}
	return names[Unknown]
}

func (s Status) IsValid() bool {
	return s != Unknown && int(s) < len(names)
}

// Parse maps a (case-insensitive) status name to its Status.
func Parse(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if i > 0 && n == name {
			return Status(i), nil
		}
	}
	return Unknown, errors.Wrapf(ErrInvalid, "%q", name)
}

// transitions lists the allowed lifecycle moves. Anything else is refused.
// Pending clubs move to active or inactive, everything else pending is reviewed.
var transitions = map[Status][]Status{
	Pending:  {Approved, Rejected, Cancelled, Active, Inactive},
	Approved: {Cancelled},
	Rejected: {Pending},
	Active:   {Inactive},
	Inactive: {Active},
	Open:     {Resolved},
	Resolved: {Open},
}

// Allowed reports whether a record may move from one status to another.
func Allowed(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	if name := strings.ToLower(strings.TrimSpace(string(text))); name == "" || name == names[Unknown] {
		*s = Unknown
		return nil
	}
	st, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		*s = Unknown
		return nil
	default:
		return errors.Errorf("status: cannot scan %T", src)
	}
}
