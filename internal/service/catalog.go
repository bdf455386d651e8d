package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Search Searcher
}

func (s *CatalogService) CreateCategory(ctx context.Context, who tokens.Identity, name string) (*models.Category, error) {
	if err := domain.RequireAdmin(who); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := domain.ValidateName("name", name); err != nil {
		return nil, err
	}
	cat := &models.Category{Name: name}
	if err := s.Repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("category_created", "svc", "catalog.create_category", "category_id", cat.ID.String())
	return cat, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.Repo.GetCategory(ctx, id)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, who tokens.Identity, id uuid.UUID) error {
	if err := domain.RequireAdmin(who); err != nil {
		return err
	}
	removed, err := s.Repo.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	for _, pid := range removed {
		s.productDeleted(ctx, pid)
	}
	logging.FromContext(ctx).Info("category_deleted", "svc", "catalog.delete_category",
		"category_id", id.String(), "products_removed", len(removed))
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, who tokens.Identity, req transport.CreateProductRequest) (*models.Product, error) {
	if err := domain.RequireAdmin(who); err != nil {
		return nil, err
	}
	prod := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}
	if err := validateProduct(prod); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, events.TopicProducts, prod.ID.String(), "product_created", map[string]any{
		"product_id": prod.ID,
		"name":       prod.Name,
		"price":      prod.Price,
		"stock":      prod.Stock,
	})
	s.index(ctx, *prod)
	return prod, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) GetProducts(ctx context.Context, categoryID *uuid.UUID, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, categoryID, offset, limit)
}

func (s *CatalogService) PatchProduct(ctx context.Context, who tokens.Identity, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	if err := domain.RequireAdmin(who); err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := domain.ValidateName("name", *req.Name); err != nil {
			return nil, err
		}
	}
	if req.Price != nil {
		if err := domain.ValidatePrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil {
		if err := domain.ValidateStock(*req.Stock); err != nil {
			return nil, err
		}
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, events.TopicProducts, prod.ID.String(), "product_updated", map[string]any{
		"product_id": prod.ID,
		"name":       prod.Name,
		"price":      prod.Price,
		"stock":      prod.Stock,
	})
	s.index(ctx, *prod)
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, who tokens.Identity, id uuid.UUID) error {
	if err := domain.RequireAdmin(who); err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.productDeleted(ctx, id)
	return nil
}

// SearchProducts queries the search index when one is configured and loads
// the hits from the database so stock and price are current.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, []models.Product{}, nil
	}
	if s.Search == nil {
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}

	l := logging.FromContext(ctx).With("svc", "catalog.search")
	total, ids, err := s.Search.Search(ctx, query, offset, limit)
	if err != nil {
		l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}

	found, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	items := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, p)
		}
	}
	return total, items, nil
}

func validateProduct(p *models.Product) error {
	if err := domain.ValidateName("name", p.Name); err != nil {
		return err
	}
	if err := domain.ValidatePrice(p.Price); err != nil {
		return err
	}
	return domain.ValidateStock(p.Stock)
}

func (s *CatalogService) index(ctx context.Context, p models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.Upsert(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID.String(), "error", err)
	}
}

func (s *CatalogService) productDeleted(ctx context.Context, id uuid.UUID) {
	s.Events.Publish(ctx, events.TopicProducts, id.String(), "product_deleted", map[string]any{
		"product_id": id,
	})
	if s.Search == nil {
		return
	}
	if err := s.Search.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("search_unindex_failed", "product_id", id.String(), "error", err)
	}
}
