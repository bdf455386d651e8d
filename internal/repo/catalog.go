package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return translate(r.DB.WithContext(ctx).Create(cat).Error, "category")
}

func (r *GormRepo) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&cat).Error; err != nil {
		return nil, translate(err, "category")
	}
	return &cat, nil
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// DeleteCategory removes the category with its products and every cart line
// that references them. It returns the ids of the removed products.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var productIDs []uuid.UUID
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.Clauses(forUpdate()).Where("id = ?", id).First(&cat).Error; err != nil {
			return translate(err, "category")
		}
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return err
		}
		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&cat).Error
	})
	if err != nil {
		return nil, err
	}
	return productIDs, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Category{}).Where("id = ?", prod.CategoryID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("category %s: %w", prod.CategoryID, domain.ErrNotFound)
		}
		return translate(tx.Create(prod).Error, "product")
	})
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&prod).Error; err != nil {
		return nil, translate(err, "product")
	}
	return &prod, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, categoryID *uuid.UUID, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := q.Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	items := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	var prod *models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prod, err = lockProduct(tx, id)
		if err != nil {
			return err
		}

		if req.CategoryID != nil && *req.CategoryID != prod.CategoryID {
			var n int64
			if err := tx.Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("category %s: %w", *req.CategoryID, domain.ErrNotFound)
			}
			prod.CategoryID = *req.CategoryID
		}
		if req.Name != nil {
			prod.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			prod.Description = *req.Description
		}
		if req.Price != nil {
			prod.Price = *req.Price
		}
		if req.Stock != nil {
			prod.Stock = *req.Stock
		}
		return tx.Save(prod).Error
	})
	if err != nil {
		return nil, err
	}
	return prod, nil
}

// DeleteProduct removes the product and the cart lines holding it.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProduct(tx, id); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Product{}).Error
	})
}

// SearchProducts is the database fallback used when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := "%" + strings.ToLower(q) + "%"
	where := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Session(&gorm.Session{})

	var total int64
	if err := where.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := where.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
