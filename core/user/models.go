package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

type User struct {
	ID        int                   `json:"id" db:"id"`
	Name      string                `json:"name" db:"name"`
	Username  string                `json:"username" db:"username"`
	Email     string                `json:"email" db:"email"`
	IsActive  bool                  `json:"is_active" db:"is_active"`
	Roles     []string              `json:"roles" db:"-"`
	Avatar    *media.AssetReference `json:"avatar" db:"-"`
	CreatedAt time.Time             `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time             `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.RoleStartsWith(RoleTeacher) }
func (u *User) IsStudent() bool { return u.RoleStartsWith(RoleStudent) }

// NewUser contains information needed to create a new User.
// Credentials are handled by the sign-in service.
type NewUser struct {
	Name     string                `json:"name" validate:"required"`
	Username string                `json:"username" validate:"required,min=4,alphanum_"`
	Email    string                `json:"email" validate:"omitempty,email"`
	Roles    []string              `json:"roles" validate:"omitempty,allroles"`
	Avatar   *media.AssetReference `json:"avatar"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

type QueryFilter struct {
	Search string   `query:"search"`
	Roles  []string `query:"role"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Matches applies an AND on the filter fields.
// Search does a case-insensitive match on one of Name, Username or Email.
func (qf *QueryFilter) Matches(usr User) bool {
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Username), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		for _, want := range qf.Roles {
			for _, role := range usr.Roles {
				if role == want {
					return true
				}
			}
		}
		return false
	}
	return true
}
