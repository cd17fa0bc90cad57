package event

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
)

// Review decisions
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type Event struct {
	ID              string        `json:"id"`
	ClubID          string        `json:"club_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	VenueID         string        `json:"venue_id"`
	StartsAt        time.Time     `json:"starts_at"`
	EndsAt          time.Time     `json:"ends_at"`
	Capacity        int           `json:"capacity"` // 0: unlimited
	RegisteredCount core.Count    `json:"registered_count"`
	Resources       tags.List     `json:"resources"`
	Tags            tags.List     `json:"tags"`
	Status          status.Status `json:"status"`
	CreatedBy       string        `json:"created_by"`
	ReviewedBy      string        `json:"reviewed_by"`
	ReviewNote      string        `json:"review_note"`
	Registered      bool          `json:"registered"` // viewer is registered
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (e Event) Key() string { return e.ID }

// Full reports whether no seat is left.
func (e Event) Full() bool {
	return e.Capacity > 0 && e.RegisteredCount.Int() >= e.Capacity
}

// Overlaps reports whether the event intersects the half-open window [from, to).
// A zero bound is unbounded.
func (e Event) Overlaps(from, to time.Time) bool {
	if !to.IsZero() && !e.StartsAt.Before(to) {
		return false
	}
	if !from.IsZero() && !e.EndsAt.After(from) {
		return false
	}
	return true
}

type NewEvent struct {
	ClubID      string    `json:"club_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=8000"`
	VenueID     string    `json:"venue_id"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" validate:"min=0"`
	Resources   tags.List `json:"resources"`
	Tags        tags.List `json:"tags"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.ClubID = core.CleanString(ne.ClubID)
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.VenueID = core.CleanString(ne.VenueID)
	ne.Resources = tags.Normalize(ne.Resources)
	ne.Tags = tags.Normalize(ne.Tags)
	ne.StartsAt = ne.StartsAt.UTC()
	ne.EndsAt = ne.EndsAt.UTC()
	return validate.Struct(ne)
}

// UpdateEvent replaces the editable fields of a pending event.
type UpdateEvent = NewEvent

type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=2000"`
}

func (rr *ReviewRequest) Validate(validate *validator.Validate) error {
	rr.Decision = core.CleanString(rr.Decision, true /* lower */)
	rr.Note = core.CleanString(rr.Note)
	return validate.Struct(rr)
}

// Registration is keyed by its event: a user registers at most once per event.
type Registration struct {
	EventID    string            `json:"event_id"`
	UserID     string            `json:"user_id"`
	UserName   string            `json:"user_name,omitempty"`
	EventTitle string            `json:"event_title"`
	ClubID     string            `json:"club_id"`
	VenueID    string            `json:"venue_id"`
	StartsAt   time.Time         `json:"starts_at"`
	EndsAt     time.Time         `json:"ends_at"`
	Status     status.Status     `json:"status"`
	Answers    map[string]string `json:"answers"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (r Registration) Key() string { return r.EventID }

// RegistrationForm is the payload submitted when registering.
type RegistrationForm struct {
	Answers map[string]string `json:"answers"`
}

func (rf *RegistrationForm) Clean() {
	answers := make(map[string]string, len(rf.Answers))
	for k, v := range rf.Answers {
		if k = strings.TrimSpace(k); k != "" {
			answers[k] = strings.TrimSpace(v)
		}
	}
	rf.Answers = answers
}

type QueryFilter struct {
	ClubID   string
	VenueID  string
	Statuses []status.Status
	From     time.Time
	To       time.Time
	Search   string
	Tag      string
	// RegisteredOnly keeps the events the viewer registered to.
	RegisteredOnly bool
}

func (qf *QueryFilter) Clean() {
	qf.ClubID = core.CleanString(qf.ClubID)
	qf.VenueID = core.CleanString(qf.VenueID)
	qf.Search = core.CleanString(qf.Search)
	qf.Tag = core.CleanString(qf.Tag)
}

// Match is the client-side form of QueryFilter.
func Match(e Event, qf QueryFilter) bool {
	if qf.ClubID != "" && e.ClubID != qf.ClubID {
		return false
	}
	if qf.VenueID != "" && e.VenueID != qf.VenueID {
		return false
	}
	if len(qf.Statuses) > 0 {
		var found bool
		for _, st := range qf.Statuses {
			if e.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !e.Overlaps(qf.From, qf.To) {
		return false
	}
	if qf.Search != "" && !(core.ContainsFold(e.Title, qf.Search) || core.ContainsFold(e.Description, qf.Search) || e.Tags.MatchFold(qf.Search)) {
		return false
	}
	if qf.Tag != "" && !e.Tags.Contains(qf.Tag) {
		return false
	}
	return !qf.RegisteredOnly || e.Registered
}

var AllowedOrderings = []string{"title", "starts_at", "ends_at", "status", "capacity", "registered_count", "created_at"}
