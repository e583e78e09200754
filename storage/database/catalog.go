package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
)

const (
	categoryColumns = "category.id, category.name, category.description, category.created_at"
	brandColumns    = "brand.id, brand.category_id, brand.name, brand.logo, brand.created_at"
	productColumns  = "product.id, product.brand_id, product.name, product.description, product.price, product.image, product.created_at"
)

var (
	categorySearchColumns = []string{"category.name", "category.description"}
	brandSearchColumns    = []string{"brand.name", "category.name"}
	productSearchColumns  = []string{"product.name", "product.description", "brand.name"}
)

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

type categoryRow struct {
	ID          int         `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r categoryRow) entity() catalog.Category {
	return catalog.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
	}
}

type brandRow struct {
	ID           int         `db:"id"`
	CategoryID   int         `db:"category_id"`
	Name         string      `db:"name"`
	Logo         null.String `db:"logo"`
	CreatedAt    time.Time   `db:"created_at"`
	CategoryName null.String `db:"category_name"`
}

func (r brandRow) entity() catalog.Brand {
	return catalog.Brand{
		ID:           r.ID,
		CategoryID:   r.CategoryID,
		Name:         r.Name,
		Logo:         r.Logo.String,
		CreatedAt:    r.CreatedAt,
		CategoryName: r.CategoryName.String,
	}
}

type productRow struct {
	ID           int         `db:"id"`
	BrandID      int         `db:"brand_id"`
	Name         string      `db:"name"`
	Description  null.String `db:"description"`
	Price        float64     `db:"price"`
	Image        null.String `db:"image"`
	CreatedAt    time.Time   `db:"created_at"`
	BrandName    null.String `db:"brand_name"`
	CategoryName null.String `db:"category_name"`
}

func (r productRow) entity() catalog.Product {
	return catalog.Product{
		ID:           r.ID,
		BrandID:      r.BrandID,
		Name:         r.Name,
		Description:  r.Description.String,
		Price:        r.Price,
		Image:        r.Image.String,
		CreatedAt:    r.CreatedAt,
		BrandName:    r.BrandName.String,
		CategoryName: r.CategoryName.String,
	}
}

func trapCatalogNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// exclusionClause returns an " AND id NOT IN (?..)" fragment for the given IDs.
func exclusionClause(ids []int) (string, []interface{}, error) {
	if len(ids) == 0 {
		return "", nil, nil
	}
	return sqlx.In(" AND id NOT IN (?)", ids)
}

// Categories

func (repo catalogRepository) CheckCategoryUniqueness(ctx context.Context, name string, excluded ...catalog.Category) error {
	query := "SELECT EXISTS (SELECT 1 FROM category WHERE name = ?"
	args := []interface{}{name}
	ids := make([]int, 0, len(excluded))
	for _, cat := range excluded {
		ids = append(ids, cat.ID)
	}
	inQuery, inArgs, err := exclusionClause(ids)
	if err != nil {
		return errors.Wrap(err, "checking category uniqueness")
	}
	query += inQuery + ")"
	args = append(args, inArgs...)

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking category uniqueness")
	}
	if exists {
		return catalog.ErrCategoryExists
	}
	return nil
}

func (repo catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	query := repo.db.Rebind(
		"INSERT INTO category (name, description, created_at) VALUES (?, ?, ?) RETURNING id")
	err := repo.db.QueryRowContext(ctx, query, cat.Name, cat.Description, cat.CreatedAt.UTC()).Scan(&cat.ID)
	if err != nil {
		return catalog.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo catalogRepository) GetCategoryByID(ctx context.Context, id int) (catalog.Category, error) {
	var row categoryRow
	query := repo.db.Rebind("SELECT " + categoryColumns + " FROM category WHERE category.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return catalog.Category{}, trapCatalogNoRowsErr(err, catalog.ErrCategoryNotFound, "finding category by ID")
	}
	return row.entity(), nil
}

func (repo catalogRepository) GetCategoryDetails(ctx context.Context, id int) (catalog.CategoryDetails, error) {
	var row struct {
		categoryRow
		BrandCount int `db:"brand_count"`
	}
	query := repo.db.Rebind("SELECT " + categoryColumns + ", " +
		"(SELECT COUNT(*) FROM brand WHERE brand.category_id = category.id) AS brand_count " +
		"FROM category WHERE category.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return catalog.CategoryDetails{}, trapCatalogNoRowsErr(err, catalog.ErrCategoryNotFound, "finding category details")
	}
	return catalog.CategoryDetails{Category: row.entity(), BrandCount: row.BrandCount}, nil
}

func (repo catalogRepository) FilterCategories(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Category, core.Page, error) {
	q := NewListQuery("category", categoryColumns).
		OrderBy(core.DBOrdering{Field: "category.name", Ascending: true}).
		Search(params.Search, categorySearchColumns...)

	countQuery, countArgs := q.CountQuery()
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "counting categories")
	}

	page := core.NewPage(total, params.Page, pageSize)
	pageQuery, pageArgs := q.PageQuery(page)
	var rows []categoryRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "querying categories")
	}

	cats := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.entity())
	}
	return cats, page, nil
}

func (repo catalogRepository) UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	query := repo.db.Rebind("UPDATE category SET name = ?, description = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, query, cat.Name, cat.Description, cat.ID)
	if err != nil {
		return catalog.Category{}, errors.Wrap(err, "updating category")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.Category{}, catalog.ErrCategoryNotFound
	}
	return repo.GetCategoryByID(ctx, cat.ID)
}

func (repo catalogRepository) DeleteCategory(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM category WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting category")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

func (repo catalogRepository) CountBrands(ctx context.Context, categoryID int) (int, error) {
	var cnt int
	query := repo.db.Rebind("SELECT COUNT(*) FROM brand WHERE category_id = ?")
	if err := repo.db.GetContext(ctx, &cnt, query, categoryID); err != nil {
		return 0, errors.Wrap(err, "counting brands")
	}
	return cnt, nil
}

// Brands

func (repo catalogRepository) CheckBrandUniqueness(ctx context.Context, categoryID int, name string, excluded ...catalog.Brand) error {
	query := "SELECT EXISTS (SELECT 1 FROM brand WHERE category_id = ? AND name = ?"
	args := []interface{}{categoryID, name}
	ids := make([]int, 0, len(excluded))
	for _, b := range excluded {
		ids = append(ids, b.ID)
	}
	inQuery, inArgs, err := exclusionClause(ids)
	if err != nil {
		return errors.Wrap(err, "checking brand uniqueness")
	}
	query += inQuery + ")"
	args = append(args, inArgs...)

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking brand uniqueness")
	}
	if exists {
		return catalog.ErrBrandExists
	}
	return nil
}

func (repo catalogRepository) CreateBrand(ctx context.Context, b catalog.Brand) (catalog.Brand, error) {
	query := repo.db.Rebind(
		"INSERT INTO brand (category_id, name, logo, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	err := repo.db.QueryRowContext(ctx, query, b.CategoryID, b.Name, b.Logo, b.CreatedAt.UTC()).Scan(&b.ID)
	if err != nil {
		return catalog.Brand{}, errors.Wrap(err, "inserting brand")
	}
	return b, nil
}

func (repo catalogRepository) GetBrandByID(ctx context.Context, id int) (catalog.Brand, error) {
	var row brandRow
	query := repo.db.Rebind("SELECT " + brandColumns + ", category.name AS category_name " +
		"FROM brand LEFT JOIN category ON category.id = brand.category_id WHERE brand.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return catalog.Brand{}, trapCatalogNoRowsErr(err, catalog.ErrBrandNotFound, "finding brand by ID")
	}
	return row.entity(), nil
}

func (repo catalogRepository) GetBrandDetails(ctx context.Context, id int) (catalog.BrandDetails, error) {
	var row struct {
		brandRow
		ProductCount int `db:"product_count"`
	}
	query := repo.db.Rebind("SELECT " + brandColumns + ", category.name AS category_name, " +
		"(SELECT COUNT(*) FROM product WHERE product.brand_id = brand.id) AS product_count " +
		"FROM brand LEFT JOIN category ON category.id = brand.category_id WHERE brand.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return catalog.BrandDetails{}, trapCatalogNoRowsErr(err, catalog.ErrBrandNotFound, "finding brand details")
	}
	return catalog.BrandDetails{Brand: row.entity(), ProductCount: row.ProductCount}, nil
}

func (repo catalogRepository) FilterBrands(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Brand, core.Page, error) {
	q := NewListQuery("brand", brandColumns+", category.name AS category_name").
		Join("LEFT JOIN category ON category.id = brand.category_id").
		OrderBy(core.DBOrdering{Field: "brand.name", Ascending: true})
	if params.ParentID > 0 {
		q.Where("brand.category_id = ?", params.ParentID)
	}
	q.Search(params.Search, brandSearchColumns...)

	countQuery, countArgs := q.CountQuery()
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "counting brands")
	}

	page := core.NewPage(total, params.Page, pageSize)
	pageQuery, pageArgs := q.PageQuery(page)
	var rows []brandRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "querying brands")
	}

	brands := make([]catalog.Brand, 0, len(rows))
	for _, row := range rows {
		brands = append(brands, row.entity())
	}
	return brands, page, nil
}

func (repo catalogRepository) UpdateBrand(ctx context.Context, b catalog.Brand) (catalog.Brand, error) {
	query := repo.db.Rebind("UPDATE brand SET name = ?, logo = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, query, b.Name, b.Logo, b.ID)
	if err != nil {
		return catalog.Brand{}, errors.Wrap(err, "updating brand")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.Brand{}, catalog.ErrBrandNotFound
	}
	return repo.GetBrandByID(ctx, b.ID)
}

func (repo catalogRepository) DeleteBrand(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM brand WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting brand")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.ErrBrandNotFound
	}
	return nil
}

func (repo catalogRepository) CountProducts(ctx context.Context, brandID int) (int, error) {
	var cnt int
	query := repo.db.Rebind("SELECT COUNT(*) FROM product WHERE brand_id = ?")
	if err := repo.db.GetContext(ctx, &cnt, query, brandID); err != nil {
		return 0, errors.Wrap(err, "counting products")
	}
	return cnt, nil
}

// Products

func (repo catalogRepository) CheckProductUniqueness(ctx context.Context, brandID int, name string, excluded ...catalog.Product) error {
	query := "SELECT EXISTS (SELECT 1 FROM product WHERE brand_id = ? AND name = ?"
	args := []interface{}{brandID, name}
	ids := make([]int, 0, len(excluded))
	for _, p := range excluded {
		ids = append(ids, p.ID)
	}
	inQuery, inArgs, err := exclusionClause(ids)
	if err != nil {
		return errors.Wrap(err, "checking product uniqueness")
	}
	query += inQuery + ")"
	args = append(args, inArgs...)

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking product uniqueness")
	}
	if exists {
		return catalog.ErrProductExists
	}
	return nil
}

func (repo catalogRepository) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	query := repo.db.Rebind(
		"INSERT INTO product (brand_id, name, description, price, image, created_at) " +
			"VALUES (?, ?, ?, ?, ?, ?) RETURNING id")
	err := repo.db.QueryRowContext(ctx, query,
		p.BrandID, p.Name, p.Description, p.Price, p.Image, p.CreatedAt.UTC()).Scan(&p.ID)
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "inserting product")
	}
	return p, nil
}

func (repo catalogRepository) GetProductByID(ctx context.Context, id int) (catalog.Product, error) {
	var row productRow
	query := repo.db.Rebind("SELECT " + productColumns + ", brand.name AS brand_name, category.name AS category_name " +
		"FROM product LEFT JOIN brand ON brand.id = product.brand_id " +
		"LEFT JOIN category ON category.id = brand.category_id WHERE product.id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return catalog.Product{}, trapCatalogNoRowsErr(err, catalog.ErrProductNotFound, "finding product by ID")
	}
	return row.entity(), nil
}

func (repo catalogRepository) FilterProducts(ctx context.Context, params core.ListParams, pageSize int) ([]catalog.Product, core.Page, error) {
	q := NewListQuery("product", productColumns+", brand.name AS brand_name, category.name AS category_name").
		Join("LEFT JOIN brand ON brand.id = product.brand_id").
		Join("LEFT JOIN category ON category.id = brand.category_id").
		OrderBy(core.DBOrdering{Field: "product.name", Ascending: true})
	if params.ParentID > 0 {
		q.Where("product.brand_id = ?", params.ParentID)
	}
	q.Search(params.Search, productSearchColumns...)

	countQuery, countArgs := q.CountQuery()
	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "counting products")
	}

	page := core.NewPage(total, params.Page, pageSize)
	pageQuery, pageArgs := q.PageQuery(page)
	var rows []productRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, core.Page{}, errors.Wrap(err, "querying products")
	}

	products := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.entity())
	}
	return products, page, nil
}

func (repo catalogRepository) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	query := repo.db.Rebind("UPDATE product SET name = ?, description = ?, price = ?, image = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, query, p.Name, p.Description, p.Price, p.Image, p.ID)
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "updating product")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return repo.GetProductByID(ctx, p.ID)
}

func (repo catalogRepository) DeleteProduct(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM product WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting product")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}
