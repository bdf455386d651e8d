package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

func lockProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := tx.Clauses(forUpdate()).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err, "product")
	}
	return &p, nil
}

func checkDelta(delta int) error {
	if delta < 0 {
		return fmt.Errorf("stock delta %d is negative: %w", delta, domain.ErrValidation)
	}
	return nil
}

// reserveStock takes delta units from the locked product row. The guarded
// UPDATE keeps stock non-negative even where the dialect ignores FOR UPDATE.
func reserveStock(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	if err := checkDelta(delta); err != nil {
		return 0, err
	}
	p, err := lockProduct(tx, id)
	if err != nil {
		return 0, err
	}
	if p.Stock < delta {
		return p.Stock, fmt.Errorf("product %s has %d, want %d: %w", id, p.Stock, delta, domain.ErrInsufficientStock)
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, delta).
		Update("stock", gorm.Expr("stock - ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return p.Stock, fmt.Errorf("product %s: %w", id, domain.ErrInsufficientStock)
	}
	return p.Stock - delta, nil
}

func releaseStock(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	if err := checkDelta(delta); err != nil {
		return 0, err
	}
	p, err := lockProduct(tx, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta)).Error; err != nil {
		return 0, err
	}
	return p.Stock + delta, nil
}

func (r *GormRepo) ReserveStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stock, err = reserveStock(tx, productID, delta)
		return err
	})
	return stock, err
}

func (r *GormRepo) ReleaseStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stock, err = releaseStock(tx, productID, delta)
		return err
	})
	return stock, err
}
