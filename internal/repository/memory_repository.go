package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/advfilter/internal/domain"

	"github.com/google/uuid"
)

// memoryFilterRepository is an in-memory FilterRepository used by tests and
// by deployments that run the console without a database.
type memoryFilterRepository struct {
	mu      sync.RWMutex
	filters map[uuid.UUID]domain.SavedFilter
}

// NewMemoryFilterRepository creates an empty in-memory repository.
func NewMemoryFilterRepository() FilterRepository {
	return &memoryFilterRepository{filters: make(map[uuid.UUID]domain.SavedFilter)}
}

func (r *memoryFilterRepository) Create(_ context.Context, filter domain.SavedFilter) (domain.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if filter.ID == uuid.Nil {
		filter.ID = uuid.New()
	}
	now := time.Now()
	filter.CreatedAt = now
	filter.UpdatedAt = now
	filter.Definition.ID = filter.ID.String()
	r.filters[filter.ID] = filter
	return filter, nil
}

func (r *memoryFilterRepository) GetByID(_ context.Context, id uuid.UUID) (domain.SavedFilter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter, ok := r.filters[id]
	if !ok {
		return domain.SavedFilter{}, ErrNotFound
	}
	return filter, nil
}

func (r *memoryFilterRepository) List(_ context.Context, entityType string) ([]domain.SavedFilter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filters []domain.SavedFilter
	for _, filter := range r.filters {
		if entityType == "" || filter.Definition.EntityType == entityType {
			filters = append(filters, filter)
		}
	}
	sort.Slice(filters, func(i, j int) bool {
		return filters[i].Definition.Name < filters[j].Definition.Name
	})
	return filters, nil
}

func (r *memoryFilterRepository) Update(_ context.Context, filter domain.SavedFilter) (domain.SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.filters[filter.ID]
	if !ok {
		return domain.SavedFilter{}, ErrNotFound
	}
	filter.CreatedAt = existing.CreatedAt
	filter.UsageCount = existing.UsageCount
	filter.UpdatedAt = time.Now()
	filter.Definition.ID = filter.ID.String()
	r.filters[filter.ID] = filter
	return filter, nil
}

func (r *memoryFilterRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.filters[id]; !ok {
		return ErrNotFound
	}
	delete(r.filters, id)
	return nil
}

func (r *memoryFilterRepository) IncrementUsage(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filter, ok := r.filters[id]
	if !ok {
		return ErrNotFound
	}
	filter.UsageCount++
	filter.UpdatedAt = time.Now()
	r.filters[id] = filter
	return nil
}

func (r *memoryFilterRepository) ListQuickFilters(_ context.Context, entityType string, limit int) ([]domain.SavedFilter, error) {
	if limit <= 0 {
		limit = 5
	}

	filters, err := r.List(context.Background(), entityType)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(filters, func(i, j int) bool {
		return filters[i].UsageCount > filters[j].UsageCount
	})
	if len(filters) > limit {
		filters = filters[:limit]
	}
	return filters, nil
}
