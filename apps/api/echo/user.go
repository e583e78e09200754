package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/user"
)

type userApi struct {
	svc    *user.Service
	disp   *user.Dispatcher
	logger core.Logger
}

func registerUserAPI(g *echo.Group, deps ServerDeps) {
	api := userApi{
		svc:    deps.UserSvc,
		disp:   user.NewDispatcher(deps.UserSvc, deps.Validate, deps.Translator, deps.Logger),
		logger: deps.Logger,
	}

	ug := g.Group("/users")
	ug.GET("", api.list)
	ug.POST("/actions", api.action)
}

func (api *userApi) list(ctx echo.Context) error {
	params := bindListParams(ctx, "school_id")
	users, page, err := api.svc.List(ctx.Request().Context(), params)
	if users == nil {
		users = []user.User{}
	}
	return listJSON(ctx, api.logger, users, page, err)
}

func (api *userApi) action(ctx echo.Context) error {
	auth, err := getAuthContext(ctx)
	if err != nil {
		return errors.Wrap(err, "getting auth context")
	}

	act, ok := user.ParseAction(ctx.FormValue("action"))
	if !ok {
		return dispatchJSON(ctx, core.ActionFail(core.MsgInvalidAction), nil)
	}

	cmd := user.Command{Action: act, ID: core.AtoiOr(ctx.FormValue("id"), 0)}
	switch act {
	case user.ActionAdd:
		if err := ctx.Bind(&cmd.New); err != nil {
			return errors.Wrap(err, "binding to NewUser")
		}
	case user.ActionUpdate:
		if err := ctx.Bind(&cmd.Update); err != nil {
			return errors.Wrap(err, "binding to UpdateUser")
		}
	}

	res, err := api.disp.Dispatch(ctx.Request().Context(), auth, cmd)
	return dispatchJSON(ctx, res, err)
}
