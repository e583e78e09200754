package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akili/shulenet/core"
)

type Category struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type Brand struct {
	ID         int       `json:"id" db:"id"`
	CategoryID int       `json:"category_id" db:"category_id"`
	Name       string    `json:"name" db:"name"`
	Logo       string    `json:"logo,omitempty" db:"logo"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC

	// joined for display
	CategoryName string `json:"category_name,omitempty" db:"category_name"`
}

type Product struct {
	ID          int       `json:"id" db:"id"`
	BrandID     int       `json:"brand_id" db:"brand_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Image       string    `json:"image,omitempty" db:"image"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC

	// joined for display
	BrandName    string `json:"brand_name,omitempty" db:"brand_name"`
	CategoryName string `json:"category_name,omitempty" db:"category_name"`
}

type CategoryDetails struct {
	Category
	BrandCount int `json:"brand_count" db:"brand_count"`
}

type BrandDetails struct {
	Brand
	ProductCount int `json:"product_count" db:"product_count"`
}

// NewCategory contains information needed to create a new Category.
type NewCategory struct {
	Name        string `json:"name" form:"name" validate:"required"`
	Description string `json:"description" form:"description"`
}

func (nc *NewCategory) Validate(validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.checkCategoryUniqueness(nc.Name)
}

type UpdateCategory struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

func (uc *UpdateCategory) Validate(orig Category, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.checkCategoryUniqueness(uc.Name, orig)
}

// NewBrand contains information needed to create a new Brand under a Category.
type NewBrand struct {
	CategoryID int    `json:"category_id" form:"category_id" validate:"required,gt=0"`
	Name       string `json:"name" form:"name" validate:"required"`
	Logo       string `json:"logo" form:"logo"`
}

func (nb *NewBrand) Validate(validate *validator.Validate, svc *Service) error {
	nb.Name = core.CleanString(nb.Name)

	if err := validate.Struct(nb); err != nil {
		return err
	}
	return svc.checkBrandUniqueness(nb.CategoryID, nb.Name)
}

type UpdateBrand struct {
	Name string `json:"name" form:"name"`
	Logo string `json:"logo" form:"logo"`
}

func (ub *UpdateBrand) Validate(orig Brand, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(ub.Name); name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if ub.Logo == "" {
		ub.Logo = orig.Logo
	}

	if err := validate.Struct(ub); err != nil {
		return err
	}
	return svc.checkBrandUniqueness(orig.CategoryID, ub.Name, orig)
}

// NewProduct contains information needed to create a new Product under a Brand.
type NewProduct struct {
	BrandID     int     `json:"brand_id" form:"brand_id" validate:"required,gt=0"`
	Name        string  `json:"name" form:"name" validate:"required"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price" validate:"gte=0"`
	Image       string  `json:"image" form:"image"`
}

func (np *NewProduct) Validate(validate *validator.Validate, svc *Service) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return svc.checkProductUniqueness(np.BrandID, np.Name)
}

type UpdateProduct struct {
	Name        string   `json:"name" form:"name"`
	Description string   `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price" validate:"omitempty,gte=0"`
	Image       string   `json:"image" form:"image"`
}

func (up *UpdateProduct) Validate(orig Product, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if desc := core.CleanString(up.Description); desc != "" {
		up.Description = desc
	} else {
		up.Description = orig.Description
	}
	if up.Price == nil {
		price := orig.Price
		up.Price = &price
	}
	if up.Image == "" {
		up.Image = orig.Image
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	return svc.checkProductUniqueness(orig.BrandID, up.Name, orig)
}
