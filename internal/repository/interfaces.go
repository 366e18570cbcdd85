package repository

import (
	"context"
	"errors"

	"github.com/rpattn/advfilter/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no saved filter exists for the given id.
var ErrNotFound = errors.New("saved filter not found")

// FilterRepository persists named filter definitions for the console. The
// engine itself never touches storage; it only consumes definitions the
// repository hands back.
type FilterRepository interface {
	Create(ctx context.Context, filter domain.SavedFilter) (domain.SavedFilter, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.SavedFilter, error)
	List(ctx context.Context, entityType string) ([]domain.SavedFilter, error)
	Update(ctx context.Context, filter domain.SavedFilter) (domain.SavedFilter, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementUsage bumps the usage counter that drives the quick-filter bar.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	// ListQuickFilters returns the most used saved filters for an entity type.
	ListQuickFilters(ctx context.Context, entityType string, limit int) ([]domain.SavedFilter, error)
}
