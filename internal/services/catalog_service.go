package services

import (
	"context"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// CatalogService serves read queries over the persisted catalog
type CatalogService struct {
	repo repository.CatalogRepositoryInterface
}

// NewCatalogService creates a new catalog query service
func NewCatalogService(repo repository.CatalogRepositoryInterface) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListProducts returns every product with its SKUs in storage order
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProductView, 0, len(products))
	for i := range products {
		views = append(views, models.NewProductView(&products[i]))
	}
	return views, nil
}

// Ping reports whether the catalog store is reachable
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
