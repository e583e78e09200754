package core

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Portal roles allowed to invoke admin actions.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

var (
	ErrActionForbidden = errors.New("permission denied")

	// messages shared by all dispatchers
	MsgInvalidAction = "invalid action"
	MsgStoreError    = "a database error occurred"
)

// AuthContext identifies the admin invoking an action. It is passed explicitly
// into every dispatcher; no ambient session state is consulted.
type AuthContext struct {
	UserID int
	Role   string
}

func (a AuthContext) CanAdminister() bool {
	return a.Role == RoleSuperAdmin || a.Role == RoleAdmin
}

// ActionResult is the uniform envelope returned by every admin action.
// Application-level failures still travel in this shape with Success=false.
type ActionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ActionOK(msg string) ActionResult {
	return ActionResult{Success: true, Message: msg}
}

func ActionOKData(msg string, data interface{}) ActionResult {
	return ActionResult{Success: true, Message: msg, Data: data}
}

func ActionFail(msg string) ActionResult {
	return ActionResult{Success: false, Message: msg}
}

// ActionFailure converts an action error into a failed ActionResult.
// Validation and conflict errors surface their own messages; anything else is
// a store error: it is logged with detail and reported generically.
func ActionFailure(err error, translator ut.Translator, logger Logger) ActionResult {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, 0, len(origErr))
		for _, vErr := range origErr {
			msgs = append(msgs, vErr.Field()+": "+vErr.Translate(translator))
		}
		return ActionFail(strings.Join(msgs, "; "))
	case *ValidationError:
		if len(origErr.Fields) > 0 {
			msgs := make([]string, 0, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				msgs = append(msgs, fErr.Field+": "+fErr.Error)
			}
			return ActionFail(strings.Join(msgs, "; "))
		}
		return ActionFail(origErr.Error())
	case *ConflictError:
		return ActionFail(origErr.Error())
	default:
		logger.Error(MsgStoreError, err)
		return ActionFail(MsgStoreError)
	}
}
