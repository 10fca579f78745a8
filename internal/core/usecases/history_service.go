package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

var _ ports.SearchRecorder = (*HistoryService)(nil)

// HistoryService stores completed searches and announces them on the event bus.
type HistoryService struct {
	searches ports.SearchRepository
	events   ports.EventPublisher
}

// NewHistoryService creates a HistoryService. Either dependency may be nil.
func NewHistoryService(searches ports.SearchRepository, events ports.EventPublisher) *HistoryService {
	return &HistoryService{searches: searches, events: events}
}

// Record persists rec and publishes it. Both are attempted even if one fails.
func (h *HistoryService) Record(ctx context.Context, rec domain.SearchRecord) error {
	var errs []error
	if h.searches != nil {
		if err := h.searches.Insert(ctx, &rec); err != nil {
			errs = append(errs, fmt.Errorf("insert search: %w", err))
		}
	}
	if h.events != nil {
		if err := h.events.PublishSearch(ctx, &rec); err != nil {
			errs = append(errs, fmt.Errorf("publish search: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Recent returns a page of the latest searches and the total count.
func (h *HistoryService) Recent(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
	if h.searches == nil {
		return []domain.SearchRecord{}, 0, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.searches.ListRecent(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := h.searches.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
