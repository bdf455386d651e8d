package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

// lockCart serializes every mutation of one user's cart: cart row first,
// then the line, then the product.
func lockCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Clauses(forUpdate()).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, translate(err, "cart")
	}
	return &cart, nil
}

func lockItem(tx *gorm.DB, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := tx.Clauses(forUpdate()).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, translate(err, "cart item")
	}
	return &item, nil
}

func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, translate(err, "cart")
	}
	return &cart, nil
}

func (r *GormRepo) CreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID, Items: []models.CartItem{}}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("cart already exists: %w", domain.ErrConflict)
		}
		return translate(tx.Create(&cart).Error, "cart")
	})
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveCart deletes the cart and its lines, giving every reserved unit back
// to its product. Lines whose product is already gone have nothing to release.
func (r *GormRepo) RemoveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart *models.Cart
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = lockCart(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Clauses(forUpdate()).Where("cart_id = ?", cart.ID).Order("id ASC").Find(&cart.Items).Error; err != nil {
			return err
		}
		for _, it := range cart.Items {
			if _, err := releaseStock(tx, it.ProductID, it.Quantity); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(cart).Error
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *GormRepo) ListItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := r.DB.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem reserves quantity units of the product and records them as a new line.
func (r *GormRepo) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return err
		}
		if _, err := reserveStock(tx, productID, quantity); err != nil {
			return err
		}
		item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem moves the line to newQuantity, allowed while stock+old >= new.
func (r *GormRepo) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, newQuantity int) (*models.CartItem, error) {
	var item *models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return translateCartLookup(err)
		}
		item, err = lockItem(tx, cart.ID, itemID)
		if err != nil {
			return err
		}
		p, err := lockProduct(tx, item.ProductID)
		if err != nil {
			return err
		}
		if p.Stock+item.Quantity < newQuantity {
			return fmt.Errorf("product %s has %d+%d, want %d: %w",
				p.ID, p.Stock, item.Quantity, newQuantity, domain.ErrInsufficientStock)
		}

		delta := item.Quantity - newQuantity
		if delta != 0 {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock + ? >= 0", p.ID, delta).
				Update("stock", gorm.Expr("stock + ?", delta))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %s: %w", p.ID, domain.ErrInsufficientStock)
			}
		}

		item.Quantity = newQuantity
		return tx.Model(item).Update("quantity", newQuantity).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem releases the line's units and deletes it in one transaction, so a
// failed delete also rolls the release back.
func (r *GormRepo) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item *models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return translateCartLookup(err)
		}
		item, err = lockItem(tx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if _, err := releaseStock(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// translateCartLookup reports a missing cart as a missing line, since the
// caller addressed a line id, not the cart.
func translateCartLookup(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("cart item: %w", domain.ErrNotFound)
	}
	return err
}
