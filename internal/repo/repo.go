package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/domain"
)

type GormRepo struct {
	DB *gorm.DB
}

func forUpdate() clause.Locking { return clause.Locking{Strength: "UPDATE"} }

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

// translate maps storage errors to domain kinds, leaving others untouched.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", what, domain.ErrConflict)
	}
	return err
}
