package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testdb"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestCategory_CRUD(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	cat := &models.Category{Name: "Books"}
	require.NoError(t, r.CreateCategory(ctx, cat))
	assert.NotEqual(t, uuid.Nil, cat.ID)

	err := r.CreateCategory(ctx, &models.Category{Name: "Books"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := r.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Name)

	cats, err := r.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	_, err = r.GetCategory(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCategory_Cascades(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := testdb.User(t, r.DB, false)
	testdb.Cart(t, r.DB, u.ID)

	p := testdb.Product(t, r.DB, "3.00", 5)
	keep := testdb.Product(t, r.DB, "4.00", 5)
	_, err := r.AddItem(ctx, u.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = r.AddItem(ctx, u.ID, keep.ID, 1)
	require.NoError(t, err)

	removed, err := r.DeleteCategory(ctx, p.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, removed)

	_, err = r.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	items, err := r.ListItems(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ProductID)

	_, err = r.DeleteCategory(ctx, p.CategoryID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateProduct_RequiresCategory(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	err := r.CreateProduct(ctx, &models.Product{
		Name: "Lamp", Price: decimal.NewFromInt(10), Stock: 1, CategoryID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, testdb.Count(t, r.DB, &models.Product{}))
}

func TestGetProducts_Paginates(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for range 5 {
		testdb.Product(t, r.DB, "1.00", 1)
	}

	total, page, err := r.GetProducts(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	first := testdb.Product(t, r.DB, "1.00", 1)
	total, page, err = r.GetProducts(ctx, &first.CategoryID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestPatchProduct(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, "1.00", 1)

	name := "Renamed"
	price := decimal.RequireFromString("2.50")
	stock := 9
	got, err := r.PatchProduct(ctx, transport.PatchProductRequest{Name: &name, Price: &price, Stock: &stock}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, 9, testdb.Stock(t, r.DB, p.ID))
	assert.Equal(t, p.Description, got.Description)

	missing := uuid.New()
	_, err = r.PatchProduct(ctx, transport.PatchProductRequest{CategoryID: &missing}, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.PatchProduct(ctx, transport.PatchProductRequest{Name: &name}, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProduct_DropsCartLines(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := testdb.User(t, r.DB, false)
	testdb.Cart(t, r.DB, u.ID)
	p := testdb.Product(t, r.DB, "1.00", 3)
	_, err := r.AddItem(ctx, u.ID, p.ID, 2)
	require.NoError(t, err)

	require.NoError(t, r.DeleteProduct(ctx, p.ID))
	assert.Zero(t, testdb.Count(t, r.DB, &models.CartItem{}))
	assert.ErrorIs(t, r.DeleteProduct(ctx, p.ID), domain.ErrNotFound)
}

func TestSearchProducts_Fallback(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := testdb.Product(t, r.DB, "1.00", 3)
	require.NoError(t, r.DB.Model(p).Update("name", "Blue Teapot").Error)
	testdb.Product(t, r.DB, "1.00", 3)

	total, items, err := r.SearchProducts(ctx, "teapot", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ID)
}

func TestGetProductsByIDs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := testdb.Product(t, r.DB, "1.00", 3)
	testdb.Product(t, r.DB, "1.00", 3)

	got, err := r.GetProductsByIDs(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = r.GetProductsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
