package ports

import (
	"context"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// SearchRepository persists completed searches.
type SearchRepository interface {
	Insert(ctx context.Context, rec *domain.SearchRecord) error
	ListRecent(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error)
	Count(ctx context.Context) (int, error)
}
