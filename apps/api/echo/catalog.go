package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
)

type catalogApi struct {
	svc    *catalog.Service
	disp   *catalog.Dispatcher
	logger core.Logger
}

// registerCatalogAPI wires the three catalog resources onto one dispatcher;
// the action name itself says which resource is addressed.
func registerCatalogAPI(g *echo.Group, deps ServerDeps) {
	api := catalogApi{
		svc:    deps.CatalogSvc,
		disp:   catalog.NewDispatcher(deps.CatalogSvc, deps.Validate, deps.Translator, deps.Logger),
		logger: deps.Logger,
	}

	g.GET("/categories", api.listCategories)
	g.POST("/categories/actions", api.action)

	g.GET("/brands", api.listBrands)
	g.POST("/brands/actions", api.action)

	g.GET("/products", api.listProducts)
	g.POST("/products/actions", api.action)
}

func (api *catalogApi) listCategories(ctx echo.Context) error {
	params := bindListParams(ctx, "")
	cats, page, err := api.svc.ListCategories(ctx.Request().Context(), params)
	if cats == nil {
		cats = []catalog.Category{}
	}
	return listJSON(ctx, api.logger, cats, page, err)
}

func (api *catalogApi) listBrands(ctx echo.Context) error {
	params := bindListParams(ctx, "category_id")
	brands, page, err := api.svc.ListBrands(ctx.Request().Context(), params)
	if brands == nil {
		brands = []catalog.Brand{}
	}
	return listJSON(ctx, api.logger, brands, page, err)
}

func (api *catalogApi) listProducts(ctx echo.Context) error {
	params := bindListParams(ctx, "brand_id")
	products, page, err := api.svc.ListProducts(ctx.Request().Context(), params)
	if products == nil {
		products = []catalog.Product{}
	}
	return listJSON(ctx, api.logger, products, page, err)
}

func (api *catalogApi) action(ctx echo.Context) error {
	auth, err := getAuthContext(ctx)
	if err != nil {
		return errors.Wrap(err, "getting auth context")
	}

	act, ok := catalog.ParseAction(ctx.FormValue("action"))
	if !ok {
		return dispatchJSON(ctx, core.ActionFail(core.MsgInvalidAction), nil)
	}

	cmd := catalog.Command{Action: act, ID: core.AtoiOr(ctx.FormValue("id"), 0)}
	switch act {
	case catalog.ActionAddCategory:
		if err := ctx.Bind(&cmd.NewCategory); err != nil {
			return errors.Wrap(err, "binding to NewCategory")
		}
	case catalog.ActionUpdateCategory:
		if err := ctx.Bind(&cmd.UpdateCategory); err != nil {
			return errors.Wrap(err, "binding to UpdateCategory")
		}
	case catalog.ActionAddBrand:
		if err := ctx.Bind(&cmd.NewBrand); err != nil {
			return errors.Wrap(err, "binding to NewBrand")
		}
	case catalog.ActionUpdateBrand:
		if err := ctx.Bind(&cmd.UpdateBrand); err != nil {
			return errors.Wrap(err, "binding to UpdateBrand")
		}
	case catalog.ActionAddProduct:
		if err := ctx.Bind(&cmd.NewProduct); err != nil {
			return errors.Wrap(err, "binding to NewProduct")
		}
	case catalog.ActionUpdateProduct:
		if err := ctx.Bind(&cmd.UpdateProduct); err != nil {
			return errors.Wrap(err, "binding to UpdateProduct")
		}
	}

	res, err := api.disp.Dispatch(ctx.Request().Context(), auth, cmd)
	return dispatchJSON(ctx, res, err)
}
