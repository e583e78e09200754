package school

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// Action is the closed set of admin operations on schools. Dispatch switches
// exhaustively over it; adding an action is a compile-time-checked change.
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
	"approve_school":     ActionApprove,
	"reject_school":      ActionReject,
	"suspend_school":     ActionSuspend,
	"activate_school":    ActionActivate,
	"add_school":         ActionAdd,
	"update_school":      ActionUpdate,
	"delete_school":      ActionDelete,
	"get_school_details": ActionDetails,
}

// ParseAction resolves a wire action name. Unknown names report ok=false and
// never reach the store.
func ParseAction(name string) (Action, bool) {
	act, ok := actionNames[name]
	return act, ok
}

// Command is one admin action with its payload.
type Command struct {
	Action Action
	ID     int
	New    NewSchool
	Update UpdateSchool
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

// Dispatch runs one command on behalf of auth. A caller without an admin role
// is refused before any validation or store access.
func (d *Dispatcher) Dispatch(ctx context.Context, auth core.AuthContext, cmd Command) (core.ActionResult, error) {
	if !auth.CanAdminister() {
		return core.ActionResult{}, core.ErrActionForbidden
	}

	switch cmd.Action {
	case ActionApprove:
		if err := d.svc.Approve(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("school approved"), nil

	case ActionReject:
		if err := d.svc.Reject(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("school rejected"), nil

	case ActionSuspend:
		if err := d.svc.Suspend(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("school suspended"), nil

	case ActionActivate:
		if err := d.svc.Activate(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("school activated"), nil

	case ActionAdd:
		data := cmd.New
		if err := data.Validate(d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		sch, err := d.svc.Create(ctx, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData(fmt.Sprintf("school %q added", sch.Name), sch), nil

	case ActionUpdate:
		orig, err := d.svc.GetByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		data := cmd.Update
		if err := data.Validate(orig, d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		sch, err := d.svc.Update(ctx, cmd.ID, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("school updated", sch), nil

	case ActionDelete:
		if err := d.svc.Delete(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("school deleted"), nil

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
