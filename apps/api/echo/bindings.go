package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// ListResponse is the envelope of every admin list view.
type ListResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
	Meta    core.Page   `json:"meta"`
}

// bindListParams binds filter/search/role/page from the query string. The
// parent filter is bound separately per resource (school_id, category_id,
// brand_id), so it never comes from an untrusted generic field.
func bindListParams(ctx echo.Context, parentParam string) core.ListParams {
	var params core.ListParams
	_ = ctx.Bind(&params)
	if parentParam != "" {
		params.ParentID = core.AtoiOr(ctx.QueryParam(parentParam), 0)
	}
	return params
}

// listJSON renders a list result. Store failures are logged with detail and
// reported generically, still as HTTP 200.
func listJSON(ctx echo.Context, logger core.Logger, data interface{}, page core.Page, err error) error {
	if err != nil {
		logger.Error(core.MsgStoreError, err)
		return ctx.JSON(http.StatusOK, ListResponse{Success: false, Message: core.MsgStoreError, Data: []struct{}{}})
	}
	return ctx.JSON(http.StatusOK, ListResponse{Success: true, Data: data, Meta: page})
}

// dispatchJSON renders an action result. Application failures travel in the
// envelope as HTTP 200; only authorization terminates the request.
func dispatchJSON(ctx echo.Context, res core.ActionResult, err error) error {
	if err != nil {
		if errors.Cause(err) == core.ErrActionForbidden {
			return errHttpForbidden
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
