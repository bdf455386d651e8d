package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Searcher is the product search index. A nil Searcher falls back to the database.
type Searcher interface {
	Upsert(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

// IdempotencyStore caches which order a checkout idempotency key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, key string) (string, error)
	Remember(ctx context.Context, userID, key, orderID string) error
}
