package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/akili/shulenet/core"
)

// Roles
const (
	RoleSuperAdmin  = core.RoleSuperAdmin
	RoleSchoolAdmin = "school_admin"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
)

var AllRoles = []string{RoleSuperAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent}

// Statuses of an approved user.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	SchoolID     int       `json:"school_id" db:"school_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	Role         string    `json:"role" db:"role"`
	Photo        string    `json:"photo,omitempty" db:"photo"`
	Approved     bool      `json:"approved" db:"approved"`
	Status       string    `json:"status" db:"status"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
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

func (u User) IsAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u User) IsSchoolAdmin() bool {
	return u.Role == RoleSchoolAdmin
}

func (u User) IsPending() bool   { return !u.Approved }
func (u User) IsSuspended() bool { return u.Approved && u.Status == StatusSuspended }

// Details is the payload of the get_user_details action.
type Details struct {
	User
	SchoolName       string `json:"school_name" db:"school_name"`
	PostsCount       int    `json:"posts_count" db:"posts_count"`
	ConnectionsCount int    `json:"connections_count" db:"connections_count"`
}

// NewUser contains information needed to create a new User from the portal.
// The password is not part of the form: admin-created users get the fixed
// default credential.
type NewUser struct {
	SchoolID int    `json:"school_id" form:"school_id" validate:"required,gt=0"`
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" form:"role" validate:"required,oneof=school_admin teacher student"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email" validate:"omitempty,email"`
	Phone string `json:"phone" form:"phone" validate:"omitempty,phone"`
	Role  string `json:"role" form:"role" validate:"omitempty,oneof=school_admin teacher student"`
	Photo string `json:"photo" form:"photo"`
}

func (uu *UpdateUser) Validate(orig User, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if phone := core.CleanString(uu.Phone); phone != "" {
		uu.Phone = phone
	} else {
		uu.Phone = orig.Phone
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = orig.Role
	}
	if uu.Photo == "" {
		uu.Photo = orig.Photo
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(uu.Email, orig)
}
