package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/sigcolegio/backend/core"
)

// Roles
const (
	RoleRector      = "rector"
	RoleCoordinator = "coordinator"
	RoleSecretary   = "secretary"
	RoleTeacher     = "teacher"
	RoleParent      = "parent"
	RoleStudent     = "student"
)

// Identification types
const (
	IDCitizenship          = "CC" // cédula de ciudadanía
	IDIdentityCard         = "TI" // tarjeta de identidad
	IDForeignerCitizenship = "CE" // cédula de extranjería
	IDPassport             = "PP"
)

var (
	StaffRoles = []string{RoleRector, RoleCoordinator, RoleSecretary, RoleTeacher}
	AllRoles   = []string{RoleRector, RoleCoordinator, RoleSecretary, RoleTeacher, RoleParent, RoleStudent}
	IDTypes    = []string{IDCitizenship, IDIdentityCard, IDForeignerCitizenship, IDPassport}

	rolePriorities = map[string]int{
		RoleRector:      30,
		RoleCoordinator: 25,
		RoleSecretary:   20,
		RoleTeacher:     15,
		RoleParent:      5,
		RoleStudent:     1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Secretary", Value: RoleSecretary},
		{Name: "Coordinator", Value: RoleCoordinator},
		{Name: "Rector", Value: RoleRector},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                   string      `json:"id"`
	IdentificationType   string      `json:"identification_type"`
	IdentificationNumber string      `json:"identification_number"`
	FirstName            string      `json:"first_name"`
	LastName             string      `json:"last_name"`
	Email                string      `json:"email,omitempty"`
	Role                 string      `json:"role"`
	SchoolID             null.String `json:"school_id"`
	IsActive             bool        `json:"is_active"`
	PasswordHash         []byte      `json:"-"`
	CreatedAt            time.Time   `json:"created_at"` // UTC
	UpdatedAt            time.Time   `json:"updated_at"` // UTC
	LastLogin            time.Time   `json:"last_login"` // UTC
}

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

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

func (u *User) IsStaff() bool {
	return u.HasAnyRole(StaffRoles...)
}

// Summary is the public part of a User returned on registration.
type Summary struct {
	ID                   string `json:"id"`
	FirstName            string `json:"first_name"`
	Role                 string `json:"role"`
	IdentificationNumber string `json:"identification_number"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:                   u.ID,
		FirstName:            u.FirstName,
		Role:                 u.Role,
		IdentificationNumber: u.IdentificationNumber,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	IdentificationType   string      `json:"identification_type" validate:"required,oneof=CC TI CE PP"`
	IdentificationNumber string      `json:"identification_number" validate:"required,min=5,max=32,numeric"`
	FirstName            string      `json:"first_name" validate:"required,max=128"`
	LastName             string      `json:"last_name" validate:"required,max=128"`
	Email                string      `json:"email" validate:"omitempty,email"`
	Password             string      `json:"password" validate:"required"`
	PasswordConfirm      string      `json:"password_confirm" validate:"required,eqfield=Password"`
	Role                 string      `json:"role" validate:"required,userrole"`
	SchoolID             null.String `json:"school_id" validate:"omitempty,ref"`
}

func (nu *NewUser) Clean() {
	nu.IdentificationType = strings.ToUpper(core.CleanString(nu.IdentificationType))
	nu.IdentificationNumber = core.CleanString(nu.IdentificationNumber)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName       string      `json:"first_name" validate:"max=128"`
	LastName        string      `json:"last_name" validate:"max=128"`
	Email           string      `json:"email" validate:"omitempty,email"`
	IsActive        *bool       `json:"is_active"`
	Role            string      `json:"role" validate:"omitempty,userrole"`
	SchoolID        null.String `json:"school_id" validate:"omitempty,ref"`
	Password        string      `json:"password" validate:"omitempty"`
	PasswordConfirm string      `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	// set from the original user during validation; used by the password policy
	identificationNumber string
}

// Validate fills blank fields from origUsr before validating.
func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.FirstName); name != "" {
		uu.FirstName = name
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if name := core.CleanString(uu.LastName); name != "" {
		uu.LastName = name
	} else {
		uu.LastName = origUsr.LastName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}
	if !uu.SchoolID.Valid {
		uu.SchoolID = origUsr.SchoolID
	}
	uu.identificationNumber = origUsr.IdentificationNumber
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	SchoolID string   `query:"school_id"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolID = core.CleanString(qf.SchoolID)
}

// GetFilter selects a single user. The first non-empty field wins.
type GetFilter struct {
	ID                   string
	IdentificationNumber string
	Email                string
}
