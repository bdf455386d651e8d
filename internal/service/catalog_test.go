package service

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

func newCatalog(t *testing.T, search Searcher) (*CatalogService, *recorder) {
	t.Helper()
	rec := &recorder{}
	return &CatalogService{Repo: newTestRepo(t), Events: rec, Search: search}, rec
}

func TestCatalog_AdminOnly(t *testing.T) {
	s, rec := newCatalog(t, nil)
	ctx := context.Background()
	cat := testdb.Category(t, s.Repo.DB)
	p := testdb.Product(t, s.Repo.DB, "5.00", 1)

	_, err := s.CreateCategory(ctx, guest, "books")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, s.DeleteCategory(ctx, guest, cat.ID), domain.ErrForbidden)
	_, err = s.CreateProduct(ctx, guest, transport.CreateProductRequest{Name: "lamp", Price: decimal.NewFromInt(1), CategoryID: cat.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	name := "renamed"
	_, err = s.PatchProduct(ctx, guest, transport.PatchProductRequest{Name: &name}, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, s.DeleteProduct(ctx, guest, p.ID), domain.ErrForbidden)

	assert.Empty(t, rec.types())
	assert.EqualValues(t, 1, testdb.Count(t, s.Repo.DB, &models.Product{}))
}

func TestCatalog_ProductLifecycle(t *testing.T) {
	search := newFakeSearch()
	s, rec := newCatalog(t, search)
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, admin, "  lamps ")
	require.NoError(t, err)
	assert.Equal(t, "lamps", cat.Name)
	_, err = s.CreateCategory(ctx, admin, "lamps")
	assert.ErrorIs(t, err, domain.ErrConflict)

	p, err := s.CreateProduct(ctx, admin, transport.CreateProductRequest{
		Name: "desk lamp", Description: "warm light", Price: decimal.RequireFromString("19.99"), Stock: 4, CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Contains(t, search.docs, p.ID)

	price := decimal.RequireFromString("17.50")
	stock := 9
	patched, err := s.PatchProduct(ctx, admin, transport.PatchProductRequest{Price: &price, Stock: &stock}, p.ID)
	require.NoError(t, err)
	assert.True(t, price.Equal(patched.Price))
	assert.Equal(t, 9, patched.Stock)
	assert.Equal(t, "desk lamp", patched.Name)
	assert.True(t, price.Equal(search.docs[p.ID].Price))

	require.NoError(t, s.DeleteProduct(ctx, admin, p.ID))
	assert.NotContains(t, search.docs, p.ID)
	_, err = s.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{"product_created", "product_updated", "product_deleted"}, rec.types())
}

func TestCatalog_Validation(t *testing.T) {
	s, _ := newCatalog(t, nil)
	ctx := context.Background()
	cat := testdb.Category(t, s.Repo.DB)
	p := testdb.Product(t, s.Repo.DB, "5.00", 1)

	cases := []transport.CreateProductRequest{
		{Name: "ab", Price: decimal.NewFromInt(1), CategoryID: cat.ID},
		{Name: "valid name", Price: decimal.Zero, CategoryID: cat.ID},
		{Name: "valid name", Price: decimal.NewFromInt(1), Stock: -1, CategoryID: cat.ID},
		{Name: "valid name", Price: decimal.RequireFromString("0.001"), CategoryID: cat.ID},
		{Name: "valid name", Price: decimal.RequireFromString("10000000000"), CategoryID: cat.ID},
	}
	for _, req := range cases {
		_, err := s.CreateProduct(ctx, admin, req)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", req)
	}

	_, err := s.CreateProduct(ctx, admin, transport.CreateProductRequest{Name: "orphan", Price: decimal.NewFromInt(1), CategoryID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	neg := decimal.NewFromInt(-3)
	_, err = s.PatchProduct(ctx, admin, transport.PatchProductRequest{Price: &neg}, p.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
	fine := decimal.RequireFromString("4.999")
	_, err = s.PatchProduct(ctx, admin, transport.PatchProductRequest{Price: &fine}, p.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.CreateCategory(ctx, admin, "x")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalog_DeleteCategoryUnindexesProducts(t *testing.T) {
	search := newFakeSearch()
	s, rec := newCatalog(t, search)
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, admin, "garden")
	require.NoError(t, err)
	for _, name := range []string{"hose", "rake"} {
		_, err := s.CreateProduct(ctx, admin, transport.CreateProductRequest{Name: name + " pro", Price: decimal.NewFromInt(3), CategoryID: cat.ID})
		require.NoError(t, err)
	}
	require.Len(t, search.docs, 2)

	require.NoError(t, s.DeleteCategory(ctx, admin, cat.ID))
	assert.Empty(t, search.docs)
	assert.EqualValues(t, 0, testdb.Count(t, s.Repo.DB, &models.Product{}))
	assert.Equal(t, []string{"product_created", "product_created", "product_deleted", "product_deleted"}, rec.types())
}

func TestSearchProducts(t *testing.T) {
	search := newFakeSearch()
	s, _ := newCatalog(t, search)
	ctx := context.Background()

	a := testdb.Product(t, s.Repo.DB, "1.00", 1)
	b := testdb.Product(t, s.Repo.DB, "2.00", 1)
	search.hits = []uuid.UUID{b.ID, uuid.New(), a.ID}

	total, items, err := s.SearchProducts(ctx, "anything", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID, "index order is kept")
	assert.Equal(t, a.ID, items[1].ID)

	search.failing = true
	total, items, err = s.SearchProducts(ctx, a.Name, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	_, items, err = s.SearchProducts(ctx, "   ", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalog_IndexFailureIsNotFatal(t *testing.T) {
	search := newFakeSearch()
	search.failing = true
	s, _ := newCatalog(t, search)
	cat := testdb.Category(t, s.Repo.DB)

	_, err := s.CreateProduct(context.Background(), admin, transport.CreateProductRequest{Name: "sturdy chair", Price: decimal.NewFromInt(40), CategoryID: cat.ID})
	require.NoError(t, err)
}
