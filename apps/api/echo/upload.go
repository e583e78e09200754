package echoapi

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

type uploadApi struct {
	deps ServerDeps
}

func registerUploadAPI(g *echo.Group, deps ServerDeps) {
	api := uploadApi{deps: deps}
	g.POST("/uploads", api.upload)
	g.GET("/uploads/:name", api.serve)
}

// upload stores a logo/photo/image file and returns the stored name; the
// caller then submits that name in the matching add_/update_ action form.
func (api *uploadApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusOK, core.ActionFail("no file uploaded"))
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	name, err := api.deps.FileStore.Save(fh.Filename, src)
	if err != nil {
		api.deps.Logger.Error(core.MsgStoreError, err)
		return ctx.JSON(http.StatusOK, core.ActionFail(core.MsgStoreError))
	}
	return ctx.JSON(http.StatusOK, core.ActionOKData("file uploaded", echo.Map{"filename": name}))
}

// serve streams a stored file; an unknown name falls back to the placeholder.
func (api *uploadApi) serve(ctx echo.Context) error {
	path := api.deps.FileStore.Path(ctx.Param("name"))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = api.deps.FileStore.Path("")
	}
	return ctx.File(path)
}
