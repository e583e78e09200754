package user

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// Action is the closed set of admin operations on users.
type Action int

const (
	ActionApprove Action = iota + 1
	ActionReject
	ActionSuspend
	ActionActivate
	ActionAdd
	ActionUpdate
	ActionDelete
	ActionDetails
)

var actionNames = map[string]Action{
	"approve_user":     ActionApprove,
	"reject_user":      ActionReject,
	"suspend_user":     ActionSuspend,
	"activate_user":    ActionActivate,
	"add_user":         ActionAdd,
	"update_user":      ActionUpdate,
	"delete_user":      ActionDelete,
	"get_user_details": ActionDetails,
}

func ParseAction(name string) (Action, bool) {
	act, ok := actionNames[name]
	return act, ok
}

type Command struct {
	Action Action
	ID     int
	New    NewUser
	Update UpdateUser
}

type Dispatcher struct {
	svc        *Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func NewDispatcher(svc *Service, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, validate: validate, translator: translator, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, auth core.AuthContext, cmd Command) (core.ActionResult, error) {
	if !auth.CanAdminister() {
		return core.ActionResult{}, core.ErrActionForbidden
	}

	switch cmd.Action {
	case ActionApprove:
		if err := d.svc.Approve(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("user approved"), nil

	case ActionReject:
		if err := d.svc.Reject(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("user rejected"), nil

	case ActionSuspend:
		if err := d.svc.Suspend(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("user suspended"), nil

	case ActionActivate:
		if err := d.svc.Activate(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("user activated"), nil

	case ActionAdd:
		data := cmd.New
		if err := data.Validate(d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		usr, err := d.svc.Create(ctx, data)
		if err != nil {
			return d.failure(err), nil
		}
		// The default credential is relayed in clear text on purpose; the admin
		// passes it on to the new user.
		msg := fmt.Sprintf("user %q added; temporary password: %s", usr.Name, d.svc.DefaultPassword())
		return core.ActionOKData(msg, usr), nil

	case ActionUpdate:
		orig, err := d.svc.GetByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		data := cmd.Update
		if err := data.Validate(orig, d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		usr, err := d.svc.Update(ctx, cmd.ID, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("user updated", usr), nil

	case ActionDelete:
		if err := d.svc.Delete(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("user deleted"), nil

	case ActionDetails:
		details, err := d.svc.Details(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("", details), nil

	default:
		return core.ActionFail(core.MsgInvalidAction), nil
	}
}

func (d *Dispatcher) failure(err error) core.ActionResult {
	if errors.Cause(err) == ErrNotFound {
		return core.ActionFail(ErrNotFound.Error())
	}
	return core.ActionFailure(err, d.translator, d.logger)
}
