package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
	inmemdb "github.com/akili/shulenet/storage/database/inmem"
)

var testConf = &core.Config{AppName: "Shulenet", PageSize: 20, TestMode: true}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(db *inmemdb.DB) *catalog.Service {
	return catalog.NewService(inmemdb.NewCatalogRepository(db), testConf)
}

func newTestDispatcher(svc *catalog.Service) *catalog.Dispatcher {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	return catalog.NewDispatcher(svc, validate, translator, nopLogger{})
}

func seedCategory(t *testing.T, svc *catalog.Service, name string) catalog.Category {
	t.Helper()
	cat, err := svc.CreateCategory(context.Background(), catalog.NewCategory{Name: name})
	assert.NoError(t, err)
	return cat
}

func seedBrand(t *testing.T, svc *catalog.Service, categoryID int, name string) catalog.Brand {
	t.Helper()
	b, err := svc.CreateBrand(context.Background(), catalog.NewBrand{CategoryID: categoryID, Name: name})
	assert.NoError(t, err)
	return b
}

func seedProduct(t *testing.T, svc *catalog.Service, brandID int, name string, price float64) catalog.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), catalog.NewProduct{BrandID: brandID, Name: name, Price: price})
	assert.NoError(t, err)
	return p
}

func Test_Service_DeleteCategory_refusedWhileBrandsRemain(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	cat := seedCategory(t, svc, "Stationery")
	b := seedBrand(t, svc, cat.ID, "Kampala Pens")

	err := svc.DeleteCategory(ctx, cat.ID)
	assert.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, err)
	assert.Equal(t, catalog.ErrCategoryInUse.Error(), err.Error())

	// still there
	_, err = svc.GetCategoryByID(ctx, cat.ID)
	assert.NoError(t, err)

	// removing the last brand unblocks the delete
	assert.NoError(t, svc.DeleteBrand(ctx, b.ID))
	assert.NoError(t, svc.DeleteCategory(ctx, cat.ID))
	_, err = svc.GetCategoryByID(ctx, cat.ID)
	assert.Equal(t, catalog.ErrCategoryNotFound, err)
}

func Test_Service_DeleteBrand_refusedWhileProductsRemain(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	cat := seedCategory(t, svc, "Stationery")
	b := seedBrand(t, svc, cat.ID, "Kampala Pens")
	p := seedProduct(t, svc, b.ID, "Ballpoint Blue", 0.5)

	err := svc.DeleteBrand(ctx, b.ID)
	assert.Error(t, err)
	assert.Equal(t, catalog.ErrBrandInUse.Error(), err.Error())

	assert.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.NoError(t, svc.DeleteBrand(ctx, b.ID))
}

func Test_Service_brandNamesUniquePerCategory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())
	disp := newTestDispatcher(svc)
	auth := core.AuthContext{UserID: 1, Role: core.RoleSuperAdmin}

	stationery := seedCategory(t, svc, "Stationery")
	uniforms := seedCategory(t, svc, "Uniforms")
	seedBrand(t, svc, stationery.ID, "Kampala Pens")

	// same name in another category is fine
	res, err := disp.Dispatch(ctx, auth, catalog.Command{
		Action:   catalog.ActionAddBrand,
		NewBrand: catalog.NewBrand{CategoryID: uniforms.ID, Name: "Kampala Pens"},
	})
	assert.NoError(t, err)
	assert.True(t, res.Success)

	// a duplicate within the category is refused
	res, err = disp.Dispatch(ctx, auth, catalog.Command{
		Action:   catalog.ActionAddBrand,
		NewBrand: catalog.NewBrand{CategoryID: stationery.ID, Name: "Kampala Pens"},
	})
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, catalog.ErrBrandExists.Error(), res.Message)
}

func Test_Service_CreateBrand_requiresExistingCategory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	_, err := svc.CreateBrand(ctx, catalog.NewBrand{CategoryID: 404, Name: "Kampala Pens"})
	assert.Equal(t, catalog.ErrCategoryNotFound, err)
}

func Test_Service_ListBrands_joinsCategoryAndFiltersByParent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	stationery := seedCategory(t, svc, "Stationery")
	uniforms := seedCategory(t, svc, "Uniforms")
	seedBrand(t, svc, stationery.ID, "Kampala Pens")
	seedBrand(t, svc, stationery.ID, "Arusha Books")
	seedBrand(t, svc, uniforms.ID, "Moshi Textiles")

	brands, page, err := svc.ListBrands(ctx, core.ListParams{ParentID: stationery.ID})
	assert.NoError(t, err)
	assert.Len(t, brands, 2)
	assert.Equal(t, 2, page.Total)
	// name ascending, with the parent name joined in
	assert.Equal(t, "Arusha Books", brands[0].Name)
	assert.Equal(t, "Stationery", brands[0].CategoryName)
	assert.Equal(t, "Kampala Pens", brands[1].Name)
}

func Test_Service_ListProducts_joinsLineage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	cat := seedCategory(t, svc, "Stationery")
	b := seedBrand(t, svc, cat.ID, "Kampala Pens")
	seedProduct(t, svc, b.ID, "Ballpoint Blue", 0.5)

	products, _, err := svc.ListProducts(ctx, core.ListParams{ParentID: b.ID})
	assert.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "Kampala Pens", products[0].BrandName)
	assert.Equal(t, "Stationery", products[0].CategoryName)
}

func Test_Dispatcher_updateProduct_zeroPriceSticks(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())
	disp := newTestDispatcher(svc)
	auth := core.AuthContext{UserID: 1, Role: core.RoleSuperAdmin}

	cat := seedCategory(t, svc, "Stationery")
	b := seedBrand(t, svc, cat.ID, "Kampala Pens")
	p := seedProduct(t, svc, b.ID, "Ballpoint Blue", 0.5)

	// an explicit zero price is a real update, not an unset field
	zero := 0.0
	res, err := disp.Dispatch(ctx, auth, catalog.Command{
		Action:        catalog.ActionUpdateProduct,
		ID:            p.ID,
		UpdateProduct: catalog.UpdateProduct{Price: &zero},
	})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	got, _ := svc.GetProductByID(ctx, p.ID)
	assert.Equal(t, 0.0, got.Price)
	assert.Equal(t, "Ballpoint Blue", got.Name)

	// an absent price keeps the current one
	res, err = disp.Dispatch(ctx, auth, catalog.Command{
		Action:        catalog.ActionUpdateProduct,
		ID:            p.ID,
		UpdateProduct: catalog.UpdateProduct{Name: "Ballpoint Black"},
	})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	got, _ = svc.GetProductByID(ctx, p.ID)
	assert.Equal(t, 0.0, got.Price)
	assert.Equal(t, "Ballpoint Black", got.Name)
}

func Test_Service_ListCategories_paginatesByName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(inmemdb.Open())

	for i := 0; i < 23; i++ {
		seedCategory(t, svc, fmt.Sprintf("Category %02d", i))
	}

	cats, page, err := svc.ListCategories(ctx, core.ListParams{Page: 2})
	assert.NoError(t, err)
	assert.Len(t, cats, 3)
	assert.Equal(t, core.Page{Total: 23, NumPages: 2, Number: 2, Size: 20}, page)
	assert.Equal(t, "Category 20", cats[0].Name)
}

func Test_ParseAction_catalog(t *testing.T) {
	tests := []struct {
		name   string
		want   catalog.Action
		wantOK bool
	}{
		{"add_category", catalog.ActionAddCategory, true},
		{"delete_brand", catalog.ActionDeleteBrand, true},
		{"get_product_details", catalog.ActionProductDetails, true},
		{"add_school", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		act, ok := catalog.ParseAction(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, act, tt.name)
	}
}
