package budget

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
)

// Request categories
const (
	CategoryEquipment = "equipment"
	CategoryEvents    = "events"
	CategoryTravel    = "travel"
	CategoryMarketing = "marketing"
	CategoryOther     = "other"
)

// Decisions
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Request is a spending request of a club. Amounts are in cents.
type Request struct {
	ID          string        `json:"id"`
	ClubID      string        `json:"club_id"`
	ClubName    string        `json:"club_name"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Amount      int64         `json:"amount"`
	Status      status.Status `json:"status"`
	RequestedBy string        `json:"requested_by"`
	ReviewedBy  string        `json:"reviewed_by"`
	ReviewNote  string        `json:"review_note"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (r Request) Key() string { return r.ID }

type NewRequest struct {
	ClubID      string `json:"club_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Category    string `json:"category" validate:"required,oneof=equipment events travel marketing other"`
	Amount      int64  `json:"amount" validate:"gt=0"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.ClubID = core.CleanString(nr.ClubID)
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Category = core.CleanString(nr.Category, true /* lower */)
	if nr.Category == "" {
		nr.Category = CategoryOther
	}
	return validate.Struct(nr)
}

type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=2000"`
}

func (rr *ReviewRequest) Validate(validate *validator.Validate) error {
	rr.Decision = core.CleanString(rr.Decision, true /* lower */)
	rr.Note = core.CleanString(rr.Note)
	return validate.Struct(rr)
}

// Allocation is the budget granted to a club, in cents.
type Allocation struct {
	ClubID    string    `json:"club_id"`
	Allocated int64     `json:"allocated"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Allocation) Key() string { return a.ClubID }

type SetAllocation struct {
	Allocated int64 `json:"allocated" validate:"min=0"`
}

type Summary struct {
	ClubID      string  `json:"club_id,omitempty"`
	Allocated   int64   `json:"allocated"`
	Approved    int64   `json:"approved"`
	Pending     int64   `json:"pending"`
	Rejected    int64   `json:"rejected"`
	Remaining   int64   `json:"remaining"`
	Utilization float64 `json:"utilization"` // percent of allocated already approved
}

// Summarize aggregates requests against what was allocated.
// Utilization is 0 when nothing is allocated. Cancelled requests are ignored.
func Summarize(allocated int64, requests []Request) Summary {
	s := Summary{Allocated: allocated}
	for _, r := range requests {
		switch r.Status {
		case status.Approved:
			s.Approved += r.Amount
		case status.Pending:
			s.Pending += r.Amount
		case status.Rejected:
			s.Rejected += r.Amount
		}
	}
	s.Remaining = s.Allocated - s.Approved
	if s.Allocated > 0 {
		s.Utilization = float64(s.Approved) * 100 / float64(s.Allocated)
	}
	return s
}

type QueryFilter struct {
	ClubID   string
	Statuses []status.Status
	Category string
	Search   string
}

func (qf *QueryFilter) Clean() {
	qf.ClubID = core.CleanString(qf.ClubID)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

// Match is the client-side form of QueryFilter.
func Match(r Request, qf QueryFilter) bool {
	if qf.ClubID != "" && r.ClubID != qf.ClubID {
		return false
	}
	if len(qf.Statuses) > 0 {
		var found bool
		for _, st := range qf.Statuses {
			if st == r.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Category != "" && r.Category != qf.Category {
		return false
	}
	return qf.Search == "" || core.ContainsFold(r.Title, qf.Search) ||
		core.ContainsFold(r.Description, qf.Search) || core.ContainsFold(r.ClubName, qf.Search)
}

var AllowedOrderings = []string{"title", "amount", "status", "category", "created_at"}
