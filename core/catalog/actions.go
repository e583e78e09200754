package catalog

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// Action is the closed set of admin operations on the catalog resources.
type Action int

const (
	ActionAddCategory Action = iota + 1
	ActionUpdateCategory
	ActionDeleteCategory
	ActionCategoryDetails

	ActionAddBrand
	ActionUpdateBrand
	ActionDeleteBrand
	ActionBrandDetails

	ActionAddProduct
	ActionUpdateProduct
	ActionDeleteProduct
	ActionProductDetails
)

var actionNames = map[string]Action{
	"add_category":         ActionAddCategory,
	"update_category":      ActionUpdateCategory,
	"delete_category":      ActionDeleteCategory,
	"get_category_details": ActionCategoryDetails,

	"add_brand":         ActionAddBrand,
	"update_brand":      ActionUpdateBrand,
	"delete_brand":      ActionDeleteBrand,
	"get_brand_details": ActionBrandDetails,

	"add_product":         ActionAddProduct,
	"update_product":      ActionUpdateProduct,
	"delete_product":      ActionDeleteProduct,
	"get_product_details": ActionProductDetails,
}

func ParseAction(name string) (Action, bool) {
	act, ok := actionNames[name]
	return act, ok
}

type Command struct {
	Action Action
	ID     int

	NewCategory    NewCategory
	UpdateCategory UpdateCategory
	NewBrand       NewBrand
	UpdateBrand    UpdateBrand
	NewProduct     NewProduct
	UpdateProduct  UpdateProduct
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
	case ActionAddCategory:
		data := cmd.NewCategory
		if err := data.Validate(d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		cat, err := d.svc.CreateCategory(ctx, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData(fmt.Sprintf("category %q added", cat.Name), cat), nil

	case ActionUpdateCategory:
		orig, err := d.svc.GetCategoryByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		data := cmd.UpdateCategory
		if err := data.Validate(orig, d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		cat, err := d.svc.UpdateCategory(ctx, cmd.ID, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("category updated", cat), nil

	case ActionDeleteCategory:
		if err := d.svc.DeleteCategory(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("category deleted"), nil

	case ActionCategoryDetails:
		details, err := d.svc.CategoryDetails(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("", details), nil

	case ActionAddBrand:
		data := cmd.NewBrand
		if err := data.Validate(d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		b, err := d.svc.CreateBrand(ctx, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData(fmt.Sprintf("brand %q added", b.Name), b), nil

	case ActionUpdateBrand:
		orig, err := d.svc.GetBrandByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		data := cmd.UpdateBrand
		if err := data.Validate(orig, d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		b, err := d.svc.UpdateBrand(ctx, cmd.ID, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("brand updated", b), nil

	case ActionDeleteBrand:
		if err := d.svc.DeleteBrand(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("brand deleted"), nil

	case ActionBrandDetails:
		details, err := d.svc.BrandDetails(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("", details), nil

	case ActionAddProduct:
		data := cmd.NewProduct
		if err := data.Validate(d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		p, err := d.svc.CreateProduct(ctx, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData(fmt.Sprintf("product %q added", p.Name), p), nil

	case ActionUpdateProduct:
		orig, err := d.svc.GetProductByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		data := cmd.UpdateProduct
		if err := data.Validate(orig, d.validate, d.svc); err != nil {
			return d.failure(err), nil
		}
		p, err := d.svc.UpdateProduct(ctx, cmd.ID, data)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("product updated", p), nil

	case ActionDeleteProduct:
		if err := d.svc.DeleteProduct(ctx, cmd.ID); err != nil {
			return d.failure(err), nil
		}
		return core.ActionOK("product deleted"), nil

	case ActionProductDetails:
		p, err := d.svc.GetProductByID(ctx, cmd.ID)
		if err != nil {
			return d.failure(err), nil
		}
		return core.ActionOKData("", p), nil

	default:
		return core.ActionFail(core.MsgInvalidAction), nil
	}
}

func (d *Dispatcher) failure(err error) core.ActionResult {
	switch errors.Cause(err) {
	case ErrCategoryNotFound, ErrBrandNotFound, ErrProductNotFound:
		return core.ActionFail(errors.Cause(err).Error())
	}
	return core.ActionFailure(err, d.translator, d.logger)
}
