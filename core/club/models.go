package club

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
)

// Categories
const (
	CategoryTechnical = "Technical"
	CategoryCultural  = "Cultural"
	CategorySports    = "Sports"
	CategoryLiterary  = "Literary"
	CategorySocial    = "Social"
	CategoryAcademic  = "Academic"
)

var Categories = []string{
	CategoryTechnical, CategoryCultural, CategorySports,
	CategoryLiterary, CategorySocial, CategoryAcademic,
}

// CanonicalCategory returns the category spelled as in Categories, or "" if unknown.
func CanonicalCategory(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return ""
}

type Club struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Tags        tags.List     `json:"tags"`
	Status      status.Status `json:"status"`
	LeadID      string        `json:"lead_id"`
	MemberCount core.Count    `json:"member_count"`
	Joined      bool          `json:"joined"` // viewer is a member
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (c Club) Key() string { return c.ID }

type Member struct {
	ClubID   string    `json:"club_id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

type NewClub struct {
	Name        string    `json:"name" validate:"required,max=120"`
	Category    string    `json:"category" validate:"required,category"`
	Description string    `json:"description" validate:"max=4000"`
	Tags        tags.List `json:"tags"`
	LeadID      string    `json:"lead_id"`
}

func (nc *NewClub) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Category = core.CleanString(nc.Category)
	if c := CanonicalCategory(nc.Category); c != "" {
		nc.Category = c
	}
	nc.Description = core.CleanString(nc.Description)
	nc.Tags = tags.Normalize(nc.Tags)
	nc.LeadID = core.CleanString(nc.LeadID)
	return validate.Struct(nc)
}

type UpdateClub struct {
	Name        string    `json:"name" validate:"omitempty,max=120"`
	Category    string    `json:"category" validate:"omitempty,category"`
	Description *string   `json:"description" validate:"omitempty,max=4000"`
	Tags        tags.List `json:"tags"`
	LeadID      string    `json:"lead_id"`
}

func (uc *UpdateClub) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	if uc.Category != "" {
		if c := CanonicalCategory(uc.Category); c != "" {
			uc.Category = c
		}
	}
	if uc.Tags != nil {
		uc.Tags = tags.Normalize(uc.Tags)
	}
	uc.LeadID = core.CleanString(uc.LeadID)
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search   string
	Category string
	Tag      string
	Status   status.Status
	// MemberID restricts to the clubs the user joined.
	MemberID string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	qf.Tag = core.CleanString(qf.Tag)
}

// Match is the client-side filter: search matches the name, description or a tag,
// case-insensitively; category is an exact, case-insensitive match.
func Match(c Club, qf QueryFilter) bool {
	if qf.Category != "" && !strings.EqualFold(c.Category, strings.TrimSpace(qf.Category)) {
		return false
	}
	if search := strings.TrimSpace(qf.Search); search != "" &&
		!(core.ContainsFold(c.Name, search) || core.ContainsFold(c.Description, search) || c.Tags.MatchFold(search)) {
		return false
	}
	if qf.Tag != "" && !c.Tags.Contains(qf.Tag) {
		return false
	}
	if qf.Status != status.Unknown && c.Status != qf.Status {
		return false
	}
	if qf.MemberID != "" && !c.Joined {
		return false
	}
	return true
}

var AllowedOrderings = []string{"name", "category", "status", "member_count", "created_at", "updated_at"}
