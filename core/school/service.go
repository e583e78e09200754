package school

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
	ErrNotFound     = errors.New("school not found")
	ErrSchoolExists = errors.New("a school with this name or contact email already exists")
)

type (
	Repository interface {
		CheckSchoolUniqueness(ctx context.Context, name, contactEmail string, excludedSchools ...School) error
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id int) (School, error)
		GetSchoolDetails(ctx context.Context, id int) (Details, error)
		// FilterSchools applies the status predicate and ANDs in a free-text search
		// over name, location, contact_email and phone. Rows come back newest first.
		// The count and the page share identical predicates.
		FilterSchools(ctx context.Context, params core.ListParams, pageSize int) ([]School, core.Page, error)
		// ApproveSchool marks the school approved and approves its still-pending
		// school_admin users in the same transaction.
		ApproveSchool(ctx context.Context, id int) error
		SetSchoolStatus(ctx context.Context, id int, status string) error
		UpdateSchool(ctx context.Context, sch School) (School, error)
		// RejectSchool deletes the not-yet-approved school_admin users then the
		// school row, all in one transaction.
		RejectSchool(ctx context.Context, id int) error
		// DeleteSchool removes the school and everything hanging off it (users and
		// their content, events, opportunities) as one atomic unit.
		DeleteSchool(ctx context.Context, id int) error
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

func (svc *Service) checkUniqueness(name, email string, exclSchools ...School) error {
	if err := svc.repo.CheckSchoolUniqueness(context.Background(), name, email, exclSchools...); err != nil {
		if errors.Cause(err) == ErrSchoolExists {
			return core.NewConflictError(ErrSchoolExists.Error())
		}
		return err
	}
	return nil
}

// Create registers a school from the admin portal. Admin-created schools skip
// the approval gate.
func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	sch := School{
		Name:         ns.Name,
		Location:     ns.Location,
		ContactEmail: ns.ContactEmail,
		Phone:        ns.Phone,
		Logo:         ns.Logo,
		Approved:     true,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	return svc.repo.CreateSchool(ctx, sch)
}

func (svc *Service) GetByID(ctx context.Context, id int) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) Details(ctx context.Context, id int) (Details, error) {
	return svc.repo.GetSchoolDetails(ctx, id)
}

func (svc *Service) List(ctx context.Context, params core.ListParams) ([]School, core.Page, error) {
	params.Clean()
	return svc.repo.FilterSchools(ctx, params, svc.conf.PageSize)
}

// Approve moves a pending school to active and approves its pending
// school_admin users. Retrying is a no-op.
func (svc *Service) Approve(ctx context.Context, id int) error {
	sch, err := svc.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.ApproveSchool(ctx, id); err != nil {
		return errors.Wrap(err, "approving school")
	}
	svc.sendApprovalEmail(sch)
	return nil
}

// Reject deletes a pending school along with its not-yet-approved admins.
func (svc *Service) Reject(ctx context.Context, id int) error {
	return svc.repo.RejectSchool(ctx, id)
}

func (svc *Service) Suspend(ctx context.Context, id int) error {
	return svc.repo.SetSchoolStatus(ctx, id, StatusSuspended)
}

func (svc *Service) Activate(ctx context.Context, id int) error {
	return svc.repo.SetSchoolStatus(ctx, id, StatusActive)
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateSchool) (School, error) {
	sch := School{
		ID:           id,
		Name:         us.Name,
		Location:     us.Location,
		ContactEmail: us.ContactEmail,
		Phone:        us.Phone,
		Logo:         us.Logo,
	}
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSchool(ctx, id)
}

func (svc *Service) sendApprovalEmail(sch School) {
	if svc.mailSvc == nil || sch.ContactEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: sch.Name, Address: sch.ContactEmail}},
		Subject: "Your school has been approved",
		BodyStr: fmt.Sprintf(
			"Hello %s,\n\nYour school is now active on %s. Your administrators can sign in at %s.\n",
			sch.Name, svc.conf.AppName, svc.conf.FrontendBaseURL,
		),
	})
}
