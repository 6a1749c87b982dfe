package item

import "context"

// CatalogReader abstracts repository operations for the service.
type CatalogReader interface {
	GetByID(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, limit int) ([]Item, error)
}

// Service exposes read-only catalog operations consumed when constructing
// claim requests.
type Service struct {
	repo CatalogReader
}

// NewService builds a Service using the provided repository.
func NewService(repo CatalogReader) *Service {
	return &Service{repo: repo}
}

// GetByID returns the item for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Item, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns up to limit catalog items.
func (s *Service) List(ctx context.Context, limit int) ([]Item, error) {
	return s.repo.List(ctx, limit)
}
