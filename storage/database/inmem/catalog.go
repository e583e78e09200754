package inmemdb

import (
	"context"
	"sort"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// caller must hold a lock
func (repo *catalogRepository) categoryName(id int) string {
	if cat, ok := repo.db.categories[id]; ok {
		return cat.Name
	}
	return ""
}

// caller must hold a lock
func (repo *catalogRepository) brandEntity(b catalog.Brand) catalog.Brand {
	b.CategoryName = repo.categoryName(b.CategoryID)
	return b
}

// caller must hold a lock
func (repo *catalogRepository) productEntity(p catalog.Product) catalog.Product {
	if b, ok := repo.db.brands[p.BrandID]; ok {
		p.BrandName = b.Name
		p.CategoryName = repo.categoryName(b.CategoryID)
	}
	return p
}

// Categories

func (repo *catalogRepository) CheckCategoryUniqueness(ctx context.Context, name string, excluded ...catalog.Category) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excl := make(map[int]bool, len(excluded))
	for _, cat := range excluded {
		excl[cat.ID] = true
	}
	for _, cat := range repo.db.categories {
		if cat.Name == name && !excl[cat.ID] {
			return catalog.ErrCategoryExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cat.ID = repo.db.nextPK()
	repo.db.categories[cat.ID] = &cat
	return cat, nil
}

func (repo *catalogRepository) GetCategoryByID(ctx context.Context, id int) (catalog.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cat, ok := repo.db.categories[id]; ok {
		return *cat, nil
	}
	return catalog.Category{}, catalog.ErrCategoryNotFound
}

func (repo *catalogRepository) GetCategoryDetails(ctx context.Context, id int) (catalog.CategoryDetails, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cat, ok := repo.db.categories[id]
	if !ok {
		return catalog.CategoryDetails{}, catalog.ErrCategoryNotFound
	}
	var brandCount int
	for _, b := range repo.db.brands {
		if b.CategoryID == id {
			brandCount++
		}
	}
	return catalog.CategoryDetails{Category: *cat, BrandCount: brandCount}, nil
}

func (repo *catalogRepository) FilterCategories(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Category, core.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []catalog.Category
	for _, cat := range repo.db.categories {
		if !matchSearch(params.Search, cat.Name, cat.Description) {
			continue
		}
		matched = append(matched, *cat)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	page, start, end := paginate(len(matched), params.Page, pageSize)
	return matched[start:end], page, nil
}

func (repo *catalogRepository) UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.categories[cat.ID]
	if !ok {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	orig.Name = cat.Name
	orig.Description = cat.Description
	return *orig, nil
}

func (repo *catalogRepository) DeleteCategory(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.categories[id]; !ok {
		return catalog.ErrCategoryNotFound
	}
	delete(repo.db.categories, id)
	return nil
}

func (repo *catalogRepository) CountBrands(ctx context.Context, categoryID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cnt int
	for _, b := range repo.db.brands {
		if b.CategoryID == categoryID {
			cnt++
		}
	}
	return cnt, nil
}

// Brands

func (repo *catalogRepository) CheckBrandUniqueness(ctx context.Context, categoryID int, name string, excluded ...catalog.Brand) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excl := make(map[int]bool, len(excluded))
	for _, b := range excluded {
		excl[b.ID] = true
	}
	for _, b := range repo.db.brands {
		if b.CategoryID == categoryID && b.Name == name && !excl[b.ID] {
			return catalog.ErrBrandExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateBrand(ctx context.Context, b catalog.Brand) (catalog.Brand, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	b.ID = repo.db.nextPK()
	repo.db.brands[b.ID] = &b
	return repo.brandEntity(b), nil
}

func (repo *catalogRepository) GetBrandByID(ctx context.Context, id int) (catalog.Brand, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.brands[id]; ok {
		return repo.brandEntity(*b), nil
	}
	return catalog.Brand{}, catalog.ErrBrandNotFound
}

func (repo *catalogRepository) GetBrandDetails(ctx context.Context, id int) (catalog.BrandDetails, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	b, ok := repo.db.brands[id]
	if !ok {
		return catalog.BrandDetails{}, catalog.ErrBrandNotFound
	}
	var productCount int
	for _, p := range repo.db.products {
		if p.BrandID == id {
			productCount++
		}
	}
	return catalog.BrandDetails{Brand: repo.brandEntity(*b), ProductCount: productCount}, nil
}

func (repo *catalogRepository) FilterBrands(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Brand, core.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []catalog.Brand
	for _, b := range repo.db.brands {
		if params.ParentID > 0 && b.CategoryID != params.ParentID {
			continue
		}
		ent := repo.brandEntity(*b)
		if !matchSearch(params.Search, ent.Name, ent.CategoryName) {
			continue
		}
		matched = append(matched, ent)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	page, start, end := paginate(len(matched), params.Page, pageSize)
	return matched[start:end], page, nil
}

func (repo *catalogRepository) UpdateBrand(ctx context.Context, b catalog.Brand) (catalog.Brand, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.brands[b.ID]
	if !ok {
		return catalog.Brand{}, catalog.ErrBrandNotFound
	}
	orig.Name = b.Name
	orig.Logo = b.Logo
	return repo.brandEntity(*orig), nil
}

func (repo *catalogRepository) DeleteBrand(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.brands[id]; !ok {
		return catalog.ErrBrandNotFound
	}
	delete(repo.db.brands, id)
	return nil
}

func (repo *catalogRepository) CountProducts(ctx context.Context, brandID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cnt int
	for _, p := range repo.db.products {
		if p.BrandID == brandID {
			cnt++
		}
	}
	return cnt, nil
}

// Products

func (repo *catalogRepository) CheckProductUniqueness(ctx context.Context, brandID int, name string, excluded ...catalog.Product) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excl := make(map[int]bool, len(excluded))
	for _, p := range excluded {
		excl[p.ID] = true
	}
	for _, p := range repo.db.products {
		if p.BrandID == brandID && p.Name == name && !excl[p.ID] {
			return catalog.ErrProductExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = repo.db.nextPK()
	repo.db.products[p.ID] = &p
	return repo.productEntity(p), nil
}

func (repo *catalogRepository) GetProductByID(ctx context.Context, id int) (catalog.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.products[id]; ok {
		return repo.productEntity(*p), nil
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (repo *catalogRepository) FilterProducts(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Product, core.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []catalog.Product
	for _, p := range repo.db.products {
		if params.ParentID > 0 && p.BrandID != params.ParentID {
			continue
		}
		ent := repo.productEntity(*p)
		if !matchSearch(params.Search, ent.Name, ent.Description, ent.BrandName) {
			continue
		}
		matched = append(matched, ent)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	page, start, end := paginate(len(matched), params.Page, pageSize)
	return matched[start:end], page, nil
}

func (repo *catalogRepository) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.products[p.ID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	orig.Name = p.Name
	orig.Description = p.Description
	orig.Price = p.Price
	orig.Image = p.Image
	return repo.productEntity(*orig), nil
}

func (repo *catalogRepository) DeleteProduct(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(repo.db.products, id)
	return nil
}
