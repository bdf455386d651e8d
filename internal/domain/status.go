package domain

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// ParseStatus accepts any letter case and rejects unknown values with ErrValidation.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q: %w", s, ErrValidation)
	}
	return st, nil
}
