package domain

import (
	"fmt"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// RequireAdmin is the capability check every administrative operation starts with.
func RequireAdmin(id tokens.Identity) error {
	if !id.IsAdmin {
		return fmt.Errorf("admin access required: %w", ErrForbidden)
	}
	return nil
}
