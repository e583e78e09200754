package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/school"
)

type schoolApi struct {
	svc    *school.Service
	disp   *school.Dispatcher
	logger core.Logger
}

func registerSchoolAPI(g *echo.Group, deps ServerDeps) {
	api := schoolApi{
		svc:    deps.SchoolSvc,
		disp:   school.NewDispatcher(deps.SchoolSvc, deps.Validate, deps.Translator, deps.Logger),
		logger: deps.Logger,
	}

	sg := g.Group("/schools")
	sg.GET("", api.list)
	sg.POST("/actions", api.action)
}

func (api *schoolApi) list(ctx echo.Context) error {
	params := bindListParams(ctx, "")
	schools, page, err := api.svc.List(ctx.Request().Context(), params)
	if schools == nil {
		schools = []school.School{}
	}
	return listJSON(ctx, api.logger, schools, page, err)
}

// action runs one named admin action. The action name travels in the fixed
// `action` form field; payload fields ride alongside it in the same form.
func (api *schoolApi) action(ctx echo.Context) error {
	auth, err := getAuthContext(ctx)
	if err != nil {
		return errors.Wrap(err, "getting auth context")
	}

	act, ok := school.ParseAction(ctx.FormValue("action"))
	if !ok {
		return dispatchJSON(ctx, core.ActionFail(core.MsgInvalidAction), nil)
	}

	cmd := school.Command{Action: act, ID: core.AtoiOr(ctx.FormValue("id"), 0)}
	switch act {
	case school.ActionAdd:
		if err := ctx.Bind(&cmd.New); err != nil {
			return errors.Wrap(err, "binding to NewSchool")
		}
	case school.ActionUpdate:
		if err := ctx.Bind(&cmd.Update); err != nil {
			return errors.Wrap(err, "binding to UpdateSchool")
		}
	}

	res, err := api.disp.Dispatch(ctx.Request().Context(), auth, cmd)
	return dispatchJSON(ctx, res, err)
}
