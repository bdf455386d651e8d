package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

func orderItemsByID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

func findByIdempotencyKey(tx *gorm.DB, userID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Items", orderItemsByID).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Checkout turns the caller's cart into a PENDING order and deletes the cart.
// Stock is left alone: it was reserved when the lines were added. When key is
// set and an order was already placed with it, that order is returned with
// existed=true.
func (r *GormRepo) Checkout(ctx context.Context, userID uuid.UUID, key *string) (order *models.Order, existed bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != nil {
			prev, err := findByIdempotencyKey(tx, userID, *key)
			if err == nil {
				order, existed = prev, true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		cart, err := lockCart(tx, userID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// A concurrent checkout with the same key may have consumed the
			// cart while we waited on its lock.
			if key != nil {
				if prev, err := findByIdempotencyKey(tx, userID, *key); err == nil {
					order, existed = prev, true
					return nil
				}
			}
			return fmt.Errorf("no cart to check out: %w", domain.ErrInvalidState)
		}
		var lines []models.CartItem
		if err := tx.Clauses(forUpdate()).Where("cart_id = ?", cart.ID).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("cart is empty: %w", domain.ErrInvalidState)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			var p models.Product
			if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Where("id = ?", line.ProductID).First(&p).Error; err != nil {
				return translate(err, "product "+line.ProductID.String())
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   p.Price,
				LineTotal:   lineTotal,
			})
		}

		order = &models.Order{
			UserID:         userID,
			IdempotencyKey: key,
			Total:          total,
			Status:         domain.StatusPending,
			Items:          items,
		}
		if err := tx.Create(order).Error; err != nil {
			return translate(err, "order")
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(cart).Error
	})
	if err != nil {
		return nil, false, err
	}
	return order, existed, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items", orderItemsByID).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

// GetUserOrder reports another user's order as not found.
func (r *GormRepo) GetUserOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Preload("Items", orderItemsByID).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

type OrderFilter struct {
	UserID *uuid.UUID
	Status *domain.OrderStatus
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	if err := q.Preload("Items", orderItemsByID).
		Order("created_at DESC, id ASC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func transition(tx *gorm.DB, order *models.Order, to domain.OrderStatus) error {
	if !domain.CanTransition(order.Status, to) {
		return fmt.Errorf("%s -> %s: %w", order.Status, to, domain.ErrInvalidTransition)
	}
	if to == domain.StatusCancelled {
		for _, it := range order.Items {
			if _, err := releaseStock(tx, it.ProductID, it.Quantity); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
	}
	order.Status = to
	return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", to).Error
}

func lockOrder(tx *gorm.DB, where string, args ...any) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(forUpdate()).Where(where, args...).First(&order).Error; err != nil {
		return nil, translate(err, "order")
	}
	if err := tx.Where("order_id = ?", order.ID).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// AdvanceStatus moves an order along the status graph and reports the status
// it held under the lock. Cancelling gives the ordered units back to stock in
// the same transaction.
func (r *GormRepo) AdvanceStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*models.Order, domain.OrderStatus, error) {
	var (
		order *models.Order
		from  domain.OrderStatus
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, "id = ?", id)
		if err != nil {
			return err
		}
		from = order.Status
		return transition(tx, order, to)
	})
	if err != nil {
		return nil, "", err
	}
	return order, from, nil
}

// CancelOrder lets the owner cancel an order that has not shipped yet.
func (r *GormRepo) CancelOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, "id = ? AND user_id = ?", id, userID)
		if err != nil {
			return err
		}
		if order.Status != domain.StatusPending {
			return fmt.Errorf("order is %s: %w", order.Status, domain.ErrInvalidState)
		}
		return transition(tx, order, domain.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
