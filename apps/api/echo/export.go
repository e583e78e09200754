package echoapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// Export columns are a fixed allow-list per resource; nothing outside them
// ever reaches the CSV, whatever the query string says.
var exportHeaders = map[string][]string{
	"schools":    {"ID", "Name", "Location", "Contact Email", "Phone", "Approved", "Status", "Created At"},
	"users":      {"ID", "School ID", "Name", "Email", "Phone", "Role", "Approved", "Status", "Created At"},
	"categories": {"ID", "Name", "Description", "Created At"},
	"brands":     {"ID", "Category", "Name", "Created At"},
	"products":   {"ID", "Brand", "Category", "Name", "Price", "Created At"},
}

type exportApi struct {
	deps ServerDeps
}

func registerExportAPI(g *echo.Group, deps ServerDeps) {
	api := exportApi{deps: deps}
	g.GET("/export", api.export)
}

func (api *exportApi) export(ctx echo.Context) error {
	resource := ctx.QueryParam("type")
	header, ok := exportHeaders[resource]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown export type")
	}

	params := bindListParams(ctx, "")

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s-%s.csv", resource, time.Now().UTC().Format("20060102")))
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	var err error
	switch resource {
	case "schools":
		err = api.exportSchools(ctx, w, params)
	case "users":
		err = api.exportUsers(ctx, w, params)
	case "categories":
		err = api.exportCategories(ctx, w, params)
	case "brands":
		err = api.exportBrands(ctx, w, params)
	case "products":
		err = api.exportProducts(ctx, w, params)
	}
	if err != nil {
		return errors.Wrap(err, "exporting "+resource)
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flushing CSV")
}

// forEachPage walks every page of a filtered list, flushing between pages so
// large exports stream instead of buffering.
func forEachPage(w *csv.Writer, params core.ListParams, fetch func(core.ListParams) (core.Page, error)) error {
	params.Page = 1
	for {
		page, err := fetch(params)
		if err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if params.Page >= page.NumPages {
			return nil
		}
		params.Page++
	}
}

func (api *exportApi) exportSchools(ctx echo.Context, w *csv.Writer, params core.ListParams) error {
	return forEachPage(w, params, func(p core.ListParams) (core.Page, error) {
		schools, page, err := api.deps.SchoolSvc.List(ctx.Request().Context(), p)
		if err != nil {
			return page, err
		}
		for _, sch := range schools {
			err = w.Write([]string{
				strconv.Itoa(sch.ID), sch.Name, sch.Location, sch.ContactEmail, sch.Phone,
				strconv.FormatBool(sch.Approved), sch.Status, sch.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return page, err
			}
		}
		return page, nil
	})
}

func (api *exportApi) exportUsers(ctx echo.Context, w *csv.Writer, params core.ListParams) error {
	return forEachPage(w, params, func(p core.ListParams) (core.Page, error) {
		users, page, err := api.deps.UserSvc.List(ctx.Request().Context(), p)
		if err != nil {
			return page, err
		}
		for _, usr := range users {
			err = w.Write([]string{
				strconv.Itoa(usr.ID), strconv.Itoa(usr.SchoolID), usr.Name, usr.Email, usr.Phone,
				usr.Role, strconv.FormatBool(usr.Approved), usr.Status, usr.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return page, err
			}
		}
		return page, nil
	})
}

func (api *exportApi) exportCategories(ctx echo.Context, w *csv.Writer, params core.ListParams) error {
	return forEachPage(w, params, func(p core.ListParams) (core.Page, error) {
		cats, page, err := api.deps.CatalogSvc.ListCategories(ctx.Request().Context(), p)
		if err != nil {
			return page, err
		}
		for _, cat := range cats {
			err = w.Write([]string{
				strconv.Itoa(cat.ID), cat.Name, cat.Description, cat.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return page, err
			}
		}
		return page, nil
	})
}

func (api *exportApi) exportBrands(ctx echo.Context, w *csv.Writer, params core.ListParams) error {
	return forEachPage(w, params, func(p core.ListParams) (core.Page, error) {
		brands, page, err := api.deps.CatalogSvc.ListBrands(ctx.Request().Context(), p)
		if err != nil {
			return page, err
		}
		for _, b := range brands {
			err = w.Write([]string{
				strconv.Itoa(b.ID), b.CategoryName, b.Name, b.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return page, err
			}
		}
		return page, nil
	})
}

func (api *exportApi) exportProducts(ctx echo.Context, w *csv.Writer, params core.ListParams) error {
	return forEachPage(w, params, func(p core.ListParams) (core.Page, error) {
		products, page, err := api.deps.CatalogSvc.ListProducts(ctx.Request().Context(), p)
		if err != nil {
			return page, err
		}
		for _, prd := range products {
			err = w.Write([]string{
				strconv.Itoa(prd.ID), prd.BrandName, prd.CategoryName, prd.Name,
				strconv.FormatFloat(prd.Price, 'f', 2, 64), prd.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return page, err
			}
		}
		return page, nil
	})
}
