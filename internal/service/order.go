package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const MaxIdempotencyKey = 128

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	// Idem is optional. Without it the database unique index alone dedups keys.
	Idem IdempotencyStore
}

// Checkout turns the caller's cart into a PENDING order. The bool result
// reports whether a previous order was returned for the same idempotency key.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, key string) (*models.Order, bool, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout")

	if len(key) > MaxIdempotencyKey {
		return nil, false, fmt.Errorf("idempotency key longer than %d: %w", MaxIdempotencyKey, domain.ErrValidation)
	}

	if key != "" && s.Idem != nil {
		if prev := s.cached(ctx, userID, key); prev != nil {
			l.Info("checkout_replayed", "order_id", prev.ID.String(), "source", "cache")
			return prev, true, nil
		}
	}

	var keyPtr *string
	if key != "" {
		keyPtr = &key
	}
	order, existed, err := s.Repo.Checkout(ctx, userID, keyPtr)
	if err != nil {
		return nil, false, err
	}

	if key != "" && s.Idem != nil {
		if err := s.Idem.Remember(ctx, userID.String(), key, order.ID.String()); err != nil {
			l.Warn("idempotency_cache_failed", "order_id", order.ID.String(), "error", err)
		}
	}
	if existed {
		l.Info("checkout_replayed", "order_id", order.ID.String(), "source", "database")
		return order, true, nil
	}

	lines := make([]map[string]any, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		})
	}
	s.Events.Publish(ctx, events.TopicOrders, order.ID.String(), "order_created", map[string]any{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.Total,
		"items":    lines,
	})
	l.Info("order_created", "order_id", order.ID.String(), "total", order.Total.StringFixed(2))
	return order, false, nil
}

func (s *OrderService) cached(ctx context.Context, userID uuid.UUID, key string) *models.Order {
	l := logging.FromContext(ctx).With("svc", "order.checkout")

	raw, err := s.Idem.Lookup(ctx, userID.String(), key)
	if err != nil {
		l.Warn("idempotency_lookup_failed", "error", err)
		return nil
	}
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		l.Warn("idempotency_lookup_failed", "reason", "malformed order id", "error", err)
		return nil
	}
	order, err := s.Repo.GetUserOrder(ctx, userID, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l.Warn("idempotency_lookup_failed", "order_id", raw, "error", err)
		}
		return nil
	}
	return order
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, repo.OrderFilter{UserID: &userID}, offset, limit)
}

func (s *OrderService) GetOrder(ctx context.Context, who tokens.Identity, id uuid.UUID) (*models.Order, error) {
	if who.IsAdmin {
		return s.Repo.GetOrder(ctx, id)
	}
	return s.Repo.GetUserOrder(ctx, who.UserID, id)
}

func (s *OrderService) CancelOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.CancelOrder(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, order, domain.StatusPending)
	return order, nil
}

// ListAllOrders is the admin view. An empty status lists every order.
func (s *OrderService) ListAllOrders(ctx context.Context, who tokens.Identity, status string, offset, limit int) (int64, []models.Order, error) {
	if err := domain.RequireAdmin(who); err != nil {
		return 0, nil, err
	}
	var f repo.OrderFilter
	if status != "" {
		st, err := domain.ParseStatus(status)
		if err != nil {
			return 0, nil, err
		}
		f.Status = &st
	}
	return s.Repo.ListOrders(ctx, f, offset, limit)
}

func (s *OrderService) AdvanceStatus(ctx context.Context, who tokens.Identity, id uuid.UUID, status string) (*models.Order, error) {
	if err := domain.RequireAdmin(who); err != nil {
		return nil, err
	}
	to, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	order, from, err := s.Repo.AdvanceStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, order, from)
	return order, nil
}

func (s *OrderService) statusChanged(ctx context.Context, order *models.Order, from domain.OrderStatus) {
	s.Events.Publish(ctx, events.TopicOrders, order.ID.String(), "order_status_changed", map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"from":     from,
		"to":       order.Status,
	})
	logging.FromContext(ctx).Info("order_status_changed", "svc", "order.status",
		"order_id", order.ID.String(), "from", string(from), "to", string(order.Status))
}
