package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/tags"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Club lead
	RoleLead = "lead:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner}
	LeadRoles    = []string{RoleLead}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Leads: 20 - 11
		RoleLead: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Club Lead", Value: RoleLead},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, LeadRoles...)
	all = append(all, StudentRoles...)
	return all
}

// IsRole reports whether role is a known role.
func IsRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	Interests    tags.List `json:"interests"`
	Department   string    `json:"department"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u User) Key() string { return u.ID }

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsLead() bool {
	return u.RoleStartsWith(RoleLead)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// IsManager reports whether the user can manage clubs: admins and club leads.
func (u *User) IsManager() bool {
	return u.IsAdmin() || u.IsLead()
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string    `json:"name" validate:"required"`
	Username        string    `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string  `json:"roles" validate:"omitempty,allroles"`
	Interests       tags.List `json:"interests"`
	Department      string    `json:"department"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Department = core.CleanString(nu.Department)
	nu.Interests = tags.Normalize(nu.Interests)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string    `json:"name"`
	Username        string    `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string    `json:"email" validate:"omitempty,email"`
	IsActive        *bool     `json:"is_active"`
	Roles           []string  `json:"roles" validate:"omitempty,allroles"`
	Interests       tags.List `json:"interests"`
	Department      *string   `json:"department"`
	Password        string    `json:"password" validate:"omitempty"`
	PasswordConfirm string    `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr.ID)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// GetFilter selects a single user. The first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Search      string
	Roles       []string
	IsActive    *bool
	Department  string
	Interest    string
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.Department == "" &&
		qf.Interest == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Interest = core.CleanString(qf.Interest)
}

// Match is the client-side form of QueryFilter, applied to an already loaded collection.
// Search matches the name, username or email, case-insensitively.
func Match(u User, qf QueryFilter) bool {
	if qf.Search != "" && !(core.ContainsFold(u.Name, qf.Search) ||
		core.ContainsFold(u.Username, qf.Search) || core.ContainsFold(u.Email, qf.Search)) {
		return false
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, role := range qf.Roles {
			if u.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.IsActive != nil && u.IsActive != *qf.IsActive {
		return false
	}
	if qf.Department != "" && !strings.EqualFold(u.Department, qf.Department) {
		return false
	}
	if qf.Interest != "" && !u.Interests.Contains(qf.Interest) {
		return false
	}
	if !qf.CreatedFrom.IsZero() && u.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && u.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

// AllowedOrderings are the fields users can be ordered by.
var AllowedOrderings = []string{"name", "username", "email", "is_active", "department", "created_at", "updated_at", "last_login"}
