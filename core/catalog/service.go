package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

var (
	// errors
	ErrCategoryNotFound = errors.New("category not found")
	ErrBrandNotFound    = errors.New("brand not found")
	ErrProductNotFound  = errors.New("product not found")

	ErrCategoryExists = errors.New("a category with this name already exists")
	ErrBrandExists    = errors.New("a brand with this name already exists in this category")
	ErrProductExists  = errors.New("a product with this name already exists for this brand")

	// A category holding brands (or a brand holding products) is never
	// cascade-deleted; the client disables the action and the server refuses it.
	ErrCategoryInUse = errors.New("cannot delete a category that still has brands")
	ErrBrandInUse    = errors.New("cannot delete a brand that still has products")
)

type (
	Repository interface {
		// categories
		CheckCategoryUniqueness(ctx context.Context, name string, excluded ...Category) error
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		GetCategoryByID(ctx context.Context, id int) (Category, error)
		GetCategoryDetails(ctx context.Context, id int) (CategoryDetails, error)
		FilterCategories(ctx context.Context, params core.ListParams, pageSize int) ([]Category, core.Page, error)
		UpdateCategory(ctx context.Context, cat Category) (Category, error)
		DeleteCategory(ctx context.Context, id int) error
		CountBrands(ctx context.Context, categoryID int) (int, error)

		// brands
		CheckBrandUniqueness(ctx context.Context, categoryID int, name string, excluded ...Brand) error
		CreateBrand(ctx context.Context, b Brand) (Brand, error)
		GetBrandByID(ctx context.Context, id int) (Brand, error)
		GetBrandDetails(ctx context.Context, id int) (BrandDetails, error)
		// FilterBrands joins the parent category name for display; ParentID
		// filters by category.
		FilterBrands(ctx context.Context, params core.ListParams, pageSize int) ([]Brand, core.Page, error)
		UpdateBrand(ctx context.Context, b Brand) (Brand, error)
		DeleteBrand(ctx context.Context, id int) error
		CountProducts(ctx context.Context, brandID int) (int, error)

		// products
		CheckProductUniqueness(ctx context.Context, brandID int, name string, excluded ...Product) error
		CreateProduct(ctx context.Context, p Product) (Product, error)
		GetProductByID(ctx context.Context, id int) (Product, error)
		// FilterProducts joins brand and category names; ParentID filters by brand.
		FilterProducts(ctx context.Context, params core.ListParams, pageSize int) ([]Product, core.Page, error)
		UpdateProduct(ctx context.Context, p Product) (Product, error)
		DeleteProduct(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) checkCategoryUniqueness(name string, excl ...Category) error {
	if err := svc.repo.CheckCategoryUniqueness(context.Background(), name, excl...); err != nil {
		if errors.Cause(err) == ErrCategoryExists {
			return core.NewConflictError(ErrCategoryExists.Error())
		}
		return err
	}
	return nil
}

func (svc *Service) checkBrandUniqueness(categoryID int, name string, excl ...Brand) error {
	if err := svc.repo.CheckBrandUniqueness(context.Background(), categoryID, name, excl...); err != nil {
		if errors.Cause(err) == ErrBrandExists {
			return core.NewConflictError(ErrBrandExists.Error())
		}
		return err
	}
	return nil
}

func (svc *Service) checkProductUniqueness(brandID int, name string, excl ...Product) error {
	if err := svc.repo.CheckProductUniqueness(context.Background(), brandID, name, excl...); err != nil {
		if errors.Cause(err) == ErrProductExists {
			return core.NewConflictError(ErrProductExists.Error())
		}
		return err
	}
	return nil
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	cat := Category{
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateCategory(ctx, cat)
}

func (svc *Service) GetCategoryByID(ctx context.Context, id int) (Category, error) {
	return svc.repo.GetCategoryByID(ctx, id)
}

func (svc *Service) CategoryDetails(ctx context.Context, id int) (CategoryDetails, error) {
	return svc.repo.GetCategoryDetails(ctx, id)
}

func (svc *Service) ListCategories(ctx context.Context, params core.ListParams) ([]Category, core.Page, error) {
	params.Clean()
	return svc.repo.FilterCategories(ctx, params, svc.conf.PageSize)
}

func (svc *Service) UpdateCategory(ctx context.Context, id int, uc UpdateCategory) (Category, error) {
	return svc.repo.UpdateCategory(ctx, Category{ID: id, Name: uc.Name, Description: uc.Description})
}

// DeleteCategory refuses to delete a category that still has brands.
func (svc *Service) DeleteCategory(ctx context.Context, id int) error {
	cnt, err := svc.repo.CountBrands(ctx, id)
	if err != nil {
		return err
	}
	if cnt > 0 {
		return core.NewValidationError(ErrCategoryInUse)
	}
	return svc.repo.DeleteCategory(ctx, id)
}

// Brands

func (svc *Service) CreateBrand(ctx context.Context, nb NewBrand) (Brand, error) {
	if _, err := svc.repo.GetCategoryByID(ctx, nb.CategoryID); err != nil {
		return Brand{}, err
	}
	b := Brand{
		CategoryID: nb.CategoryID,
		Name:       nb.Name,
		Logo:       nb.Logo,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateBrand(ctx, b)
}

func (svc *Service) GetBrandByID(ctx context.Context, id int) (Brand, error) {
	return svc.repo.GetBrandByID(ctx, id)
}

func (svc *Service) BrandDetails(ctx context.Context, id int) (BrandDetails, error) {
	return svc.repo.GetBrandDetails(ctx, id)
}

func (svc *Service) ListBrands(ctx context.Context, params core.ListParams) ([]Brand, core.Page, error) {
	params.Clean()
	return svc.repo.FilterBrands(ctx, params, svc.conf.PageSize)
}

func (svc *Service) UpdateBrand(ctx context.Context, id int, ub UpdateBrand) (Brand, error) {
	return svc.repo.UpdateBrand(ctx, Brand{ID: id, Name: ub.Name, Logo: ub.Logo})
}

// DeleteBrand refuses to delete a brand that still has products.
func (svc *Service) DeleteBrand(ctx context.Context, id int) error {
	cnt, err := svc.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if cnt > 0 {
		return core.NewValidationError(ErrBrandInUse)
	}
	return svc.repo.DeleteBrand(ctx, id)
}

// Products

func (svc *Service) CreateProduct(ctx context.Context, np NewProduct) (Product, error) {
	if _, err := svc.repo.GetBrandByID(ctx, np.BrandID); err != nil {
		return Product{}, err
	}
	p := Product{
		BrandID:     np.BrandID,
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Image:       np.Image,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateProduct(ctx, p)
}

func (svc *Service) GetProductByID(ctx context.Context, id int) (Product, error) {
	return svc.repo.GetProductByID(ctx, id)
}

func (svc *Service) ListProducts(ctx context.Context, params core.ListParams) ([]Product, core.Page, error) {
	params.Clean()
	return svc.repo.FilterProducts(ctx, params, svc.conf.PageSize)
}

func (svc *Service) UpdateProduct(ctx context.Context, id int, up UpdateProduct) (Product, error) {
	p := Product{ID: id, Name: up.Name, Description: up.Description, Image: up.Image}
	if up.Price != nil {
		p.Price = *up.Price
	}
	return svc.repo.UpdateProduct(ctx, p)
}

func (svc *Service) DeleteProduct(ctx context.Context, id int) error {
	return svc.repo.DeleteProduct(ctx, id)
}
