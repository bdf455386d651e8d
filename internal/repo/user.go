package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateUser fails with ErrConflict when the username or email is taken.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", u.Username, u.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("username or email already registered: %w", domain.ErrConflict)
		}
		return translate(tx.Create(u).Error, "user")
	})
}

// FindByLogin matches either the username or the email.
func (r *GormRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	login = strings.TrimSpace(login)
	if err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// EnsureAdmin creates u, or promotes the existing user with the same
// username to u.Role. It reports whether a row was created.
func (r *GormRepo) EnsureAdmin(ctx context.Context, u *models.User) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", u.Username).First(&existing).Error
		switch {
		case err == nil:
			role := u.Role
			*u = existing
			if existing.Role == role {
				return nil
			}
			u.Role = role
			return tx.Model(&models.User{}).Where("id = ?", existing.ID).Update("role", role).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return translate(tx.Create(u).Error, "user")
		default:
			return err
		}
	})
	return created, err
}
