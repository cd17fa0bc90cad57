// Package conflict finds scheduling clashes between events sharing a venue, a resource
// or an organizing club.
package conflict

import (
	"sort"
	"strings"
	"time"

	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
)

type Kind string

const (
	KindVenue    Kind = "venue"
	KindResource Kind = "resource"
	KindClub     Kind = "club"
)

type Severity uint8

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

var severityNames = map[Severity]string{
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for sev, n := range severityNames {
		if n == name {
			*s = sev
			return nil
		}
	}
	*s = 0
	return nil
}

// SeverityOf maps a conflict kind to its severity.
func SeverityOf(k Kind) Severity {
	switch k {
	case KindVenue:
		return SeverityHigh
	case KindResource:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

type Conflict struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Severity Severity  `json:"severity"`
	EventA   string    `json:"event_a"`
	EventB   string    `json:"event_b"`
	TitleA   string    `json:"title_a"`
	TitleB   string    `json:"title_b"`
	Subject  string    `json:"subject"` // venue id, shared resources or club id
	Start    time.Time `json:"start"`   // overlap window
	End      time.Time `json:"end"`

	Status     status.Status `json:"status"`
	Note       string        `json:"note"`
	ResolvedBy string        `json:"resolved_by"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

func (c Conflict) Key() string { return c.ID }

// ConflictID is "kind:a:b" with a < b.
func ConflictID(k Kind, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return string(k) + ":" + a + ":" + b
}

// Detect returns the conflicts between pending and approved events whose [start, end)
// intervals overlap: same venue (high), shared resource (medium), same club (low).
// Results are sorted by severity, then overlap start, then id.
func Detect(events []event.Event) []Conflict {
	candidates := make([]event.Event, 0, len(events))
	for _, e := range events {
		if (e.Status == status.Pending || e.Status == status.Approved) && e.EndsAt.After(e.StartsAt) {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].StartsAt.Equal(candidates[j].StartsAt) {
			return candidates[i].StartsAt.Before(candidates[j].StartsAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	conflicts := make([]Conflict, 0)
	active := make([]event.Event, 0)
	for _, e := range candidates {
		// drop what ended before e starts
		kept := active[:0]
		for _, a := range active {
			if a.EndsAt.After(e.StartsAt) {
				kept = append(kept, a)
			}
		}
		active = kept

		for _, a := range active {
			conflicts = append(conflicts, pair(a, e)...)
		}
		active = append(active, e)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		ci, cj := conflicts[i], conflicts[j]
		if ci.Severity != cj.Severity {
			return ci.Severity > cj.Severity
		}
		if !ci.Start.Equal(cj.Start) {
			return ci.Start.Before(cj.Start)
		}
		return ci.ID < cj.ID
	})
	return conflicts
}

// pair lists the conflicts between two overlapping events, a starting first.
func pair(a, b event.Event) []Conflict {
	end := a.EndsAt
	if b.EndsAt.Before(end) {
		end = b.EndsAt
	}
	newConflict := func(k Kind, subject string) Conflict {
		c := Conflict{
			ID:       ConflictID(k, a.ID, b.ID),
			Kind:     k,
			Severity: SeverityOf(k),
			EventA:   a.ID,
			EventB:   b.ID,
			TitleA:   a.Title,
			TitleB:   b.Title,
			Subject:  subject,
			Start:    b.StartsAt,
			End:      end,
			Status:   status.Open,
		}
		if b.ID < a.ID {
			c.EventA, c.EventB = b.ID, a.ID
			c.TitleA, c.TitleB = b.Title, a.Title
		}
		return c
	}

	var out []Conflict
	if a.VenueID != "" && a.VenueID == b.VenueID {
		out = append(out, newConflict(KindVenue, a.VenueID))
	}
	if shared := a.Resources.Intersect(b.Resources); len(shared) > 0 {
		out = append(out, newConflict(KindResource, strings.Join(shared, ", ")))
	}
	if a.ClubID != "" && a.ClubID == b.ClubID {
		out = append(out, newConflict(KindClub, a.ClubID))
	}
	return out
}
