package domain

import "errors"

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrUnauthorized      = errors.New("unauthorized")       // 401
	ErrForbidden         = errors.New("forbidden")          // 403
	ErrNotFound          = errors.New("not found")          // 404
	ErrConflict          = errors.New("conflict")           // 409
	ErrInsufficientStock = errors.New("insufficient stock") // 409
	ErrInvalidState      = errors.New("invalid state")      // 422
	ErrInvalidTransition = errors.New("invalid transition") // 422
)
