package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) AddRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error, "refresh token")
}

func usableRefresh(tx *gorm.DB, jti, tokenHash string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := tx.Clauses(forUpdate()).Where("jti = ?", jti).First(&rt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("refresh token unknown: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if rt.Token != tokenHash {
		return nil, fmt.Errorf("refresh token mismatch: %w", domain.ErrUnauthorized)
	}
	if rt.Revoked || rt.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("refresh token expired or revoked: %w", domain.ErrUnauthorized)
	}
	return &rt, nil
}

// RotateRefreshToken revokes the old token and stores its replacement atomically.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI, oldHash string, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := usableRefresh(tx, oldJTI, oldHash)
		if err != nil {
			return err
		}
		if old.UserID != next.UserID {
			return fmt.Errorf("refresh token owner mismatch: %w", domain.ErrUnauthorized)
		}
		if err := tx.Model(&models.RefreshToken{}).Where("id = ?", old.ID).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokenHash).
		Update("revoked", true).Error
}
