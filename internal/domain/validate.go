package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	UsernameMin = 3
	UsernameMax = 22
	PasswordMin = 6
	PasswordMax = 64
	NameMin     = 3
	NameMax     = 32
)

func lengthBetween(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(v)
	if n < lo || n > hi {
		return fmt.Errorf("%s must be %d..%d characters: %w", field, lo, hi, ErrValidation)
	}
	return nil
}

func ValidateCredentials(username, email, password string) error {
	if err := lengthBetween("username", strings.TrimSpace(username), UsernameMin, UsernameMax); err != nil {
		return err
	}
	if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 {
		return fmt.Errorf("email is malformed: %w", ErrValidation)
	}
	return lengthBetween("password", password, PasswordMin, PasswordMax)
}

func ValidateName(field, name string) error {
	return lengthBetween(field, strings.TrimSpace(name), NameMin, NameMax)
}

// MaxPrice is the largest value a numeric(12,2) price column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

// ValidatePrice accepts positive prices with at most two decimal places that
// fit the price column, so what is stored is exactly what was sent.
func ValidatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return fmt.Errorf("price must be > 0: %w", ErrValidation)
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("price has more than 2 decimal places: %w", ErrValidation)
	}
	if p.GreaterThan(MaxPrice) {
		return fmt.Errorf("price must be <= %s: %w", MaxPrice, ErrValidation)
	}
	return nil
}

func ValidateStock(stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock must be >= 0: %w", ErrValidation)
	}
	return nil
}

func ValidateQuantity(q int) error {
	if q <= 0 {
		return fmt.Errorf("quantity must be > 0: %w", ErrValidation)
	}
	return nil
}
