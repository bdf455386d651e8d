// Package testdb opens migrated in-memory databases for tests.
package testdb

import (
	"context"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// Open returns a private in-memory database on a single connection, so
// concurrent transactions queue instead of interleaving.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenDialector(context.Background(), sqlite.Open("file::memory:"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, models.All()...))
	return gdb
}

func Category(t testing.TB, gdb *gorm.DB) *models.Category {
	t.Helper()
	c := &models.Category{Name: "cat-" + gofakeit.LetterN(12)}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func Product(t testing.TB, gdb *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	cat := Category(t, gdb)
	p := &models.Product{
		Name:        gofakeit.LetterN(10),
		Description: gofakeit.ProductDescription(),
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		CategoryID:  cat.ID,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

// User stores a user whose password is "password1".
func User(t testing.TB, gdb *gorm.DB, admin bool) *models.User {
	t.Helper()
	pw, err := hash.HashPassword("password1")
	require.NoError(t, err)
	u := &models.User{
		Username:     gofakeit.LetterN(10),
		Email:        strings.ToLower(gofakeit.LetterN(10)) + "@example.com",
		PasswordHash: pw,
		Role:         tokens.RoleOf(admin),
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func Cart(t testing.TB, gdb *gorm.DB, userID uuid.UUID) *models.Cart {
	t.Helper()
	c := &models.Cart{UserID: userID}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func Stock(t testing.TB, gdb *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, gdb.Where("id = ?", productID).First(&p).Error)
	return p.Stock
}

func Count(t testing.TB, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}
