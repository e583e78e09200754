package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserDetails(ctx context.Context, id int) (Details, error)
		// FilterUsers applies the status predicate, ANDs in role and school
		// equality filters, and searches name/email/phone. Newest first; the count
		// and the page share identical predicates.
		FilterUsers(ctx context.Context, params core.ListParams, pageSize int) ([]User, core.Page, error)
		ApproveUser(ctx context.Context, id int) error
		SetUserStatus(ctx context.Context, id int, status string) error
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id int) error
		// RejectUser refuses approved users and otherwise deletes the pending
		// user with whatever rows already hang off them.
		RejectUser(ctx context.Context, id int) error
		// DeleteUser removes the user and every dependent row (posts with their
		// likes and comments, event RSVPs, opportunity interests, and connections
		// where the user is either endpoint) in one transaction.
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewConflictError(ErrEmailExists.Error())
		}
		return err
	}
	return nil
}

// DefaultPassword is the fixed credential assigned to admin-created users.
func (svc *Service) DefaultPassword() string {
	return svc.conf.DefaultUserPassword
}

// Create adds a pre-approved user with the default credential and mails the
// credential to them.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		SchoolID:  nu.SchoolID,
		Name:      nu.Name,
		Email:     nu.Email,
		Phone:     nu.Phone,
		Role:      nu.Role,
		Approved:  true,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(svc.DefaultPassword()); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Details(ctx context.Context, id int) (Details, error) {
	return svc.repo.GetUserDetails(ctx, id)
}

func (svc *Service) List(ctx context.Context, params core.ListParams) ([]User, core.Page, error) {
	params.Clean()
	return svc.repo.FilterUsers(ctx, params, svc.conf.PageSize)
}

func (svc *Service) Approve(ctx context.Context, id int) error {
	return svc.repo.ApproveUser(ctx, id)
}

// Reject deletes a pending user. Approved users must be suspended or deleted
// instead.
func (svc *Service) Reject(ctx context.Context, id int) error {
	return svc.repo.RejectUser(ctx, id)
}

func (svc *Service) Suspend(ctx context.Context, id int) error {
	return svc.repo.SetUserStatus(ctx, id, StatusSuspended)
}

func (svc *Service) Activate(ctx context.Context, id int) error {
	return svc.repo.SetUserStatus(ctx, id, StatusActive)
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:    id,
		Name:  uu.Name,
		Email: uu.Email,
		Phone: uu.Phone,
		Role:  uu.Role,
		Photo: uu.Photo,
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) error {
	return svc.repo.SetLastLogin(ctx, usr.ID)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *Service) sendWelcomeEmail(usr User) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Your account is ready",
		BodyStr: fmt.Sprintf(
			"Hello %s,\n\nAn account has been created for you on %s.\nSign in at %s with this temporary password: %s\n",
			usr.Name, svc.conf.AppName, svc.conf.FrontendBaseURL, svc.DefaultPassword(),
		),
	})
}
