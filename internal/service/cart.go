package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// GetOrNone returns the user's cart, or nil when there is none.
func (s *CartService) GetOrNone(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCart(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return cart, err
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) CreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.CreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.TopicCart, userID.String(), "cart_created", map[string]any{
		"cart_id": cart.ID,
		"user_id": userID,
	})
	return cart, nil
}

func (s *CartService) RemoveCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.Repo.RemoveCart(ctx, userID)
	if err != nil {
		return err
	}
	released := 0
	for _, it := range cart.Items {
		released += it.Quantity
	}
	s.Events.Publish(ctx, events.TopicCart, userID.String(), "cart_removed", map[string]any{
		"cart_id":        cart.ID,
		"user_id":        userID,
		"units_released": released,
	})
	logging.FromContext(ctx).Info("cart_removed", "svc", "cart.remove", "cart_id", cart.ID.String(), "units_released", released)
	return nil
}

func (s *CartService) ListItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.Repo.ListItems(ctx, userID)
}

func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req transport.AddItemRequest) (*models.CartItem, error) {
	if req.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product_id is required: %w", domain.ErrValidation)
	}
	if err := domain.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	item, err := s.Repo.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.TopicCart, userID.String(), "cart_item_added", map[string]any{
		"item_id":    item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
	return item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.Repo.UpdateItem(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.TopicCart, userID.String(), "cart_item_updated", map[string]any{
		"item_id":    item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.Repo.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	s.Events.Publish(ctx, events.TopicCart, userID.String(), "cart_item_removed", map[string]any{
		"item_id":    item.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
	return nil
}
