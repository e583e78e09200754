package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akili/shulenet/core"
)

// Statuses of an approved school. A pending school has Approved=false and
// keeps StatusActive so approval never has to touch the status column.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type School struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Location     string    `json:"location" db:"location"`
	ContactEmail string    `json:"contact_email" db:"contact_email"`
	Phone        string    `json:"phone" db:"phone"`
	Logo         string    `json:"logo,omitempty" db:"logo"`
	Approved     bool      `json:"approved" db:"approved"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

func (s School) IsPending() bool   { return !s.Approved }
func (s School) IsSuspended() bool { return s.Approved && s.Status == StatusSuspended }

// Details is the payload of the get_school_details action: the full row plus
// derived counts.
type Details struct {
	School
	UserCount  int `json:"user_count" db:"user_count"`
	AdminCount int `json:"admin_count" db:"admin_count"`
}

// NewSchool contains information needed to register a new School.
type NewSchool struct {
	Name         string `json:"name" form:"name" validate:"required"`
	Location     string `json:"location" form:"location" validate:"required"`
	ContactEmail string `json:"contact_email" form:"contact_email" validate:"required,email"`
	Phone        string `json:"phone" form:"phone" validate:"omitempty,phone"`
	Logo         string `json:"logo" form:"logo"`
}

func (ns *NewSchool) Validate(validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Location = core.CleanString(ns.Location)
	ns.ContactEmail = core.CleanString(ns.ContactEmail, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Name, ns.ContactEmail)
}

// UpdateSchool defines what information may be provided to modify an existing School.
// Empty fields keep their current value.
type UpdateSchool struct {
	Name         string `json:"name" form:"name"`
	Location     string `json:"location" form:"location"`
	ContactEmail string `json:"contact_email" form:"contact_email" validate:"omitempty,email"`
	Phone        string `json:"phone" form:"phone" validate:"omitempty,phone"`
	Logo         string `json:"logo" form:"logo"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if loc := core.CleanString(us.Location); loc != "" {
		us.Location = loc
	} else {
		us.Location = orig.Location
	}
	if email := core.CleanString(us.ContactEmail, true /* lower */); email != "" {
		us.ContactEmail = email
	} else {
		us.ContactEmail = orig.ContactEmail
	}
	if phone := core.CleanString(us.Phone); phone != "" {
		us.Phone = phone
	} else {
		us.Phone = orig.Phone
	}
	if us.Logo == "" {
		us.Logo = orig.Logo
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(us.Name, us.ContactEmail, orig)
}
