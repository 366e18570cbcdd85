package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/rpattn/advfilter/internal/domain"

	"github.com/google/uuid"
)

func savedFilter(name, entityType string) domain.SavedFilter {
	return domain.SavedFilter{Definition: domain.NewFilter(name, entityType)}
}

func TestMemoryRepositoryCRUD(t *testing.T) {
	repo := NewMemoryFilterRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, savedFilter("completed forms", "form"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected an assigned id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if created.Definition.ID != created.ID.String() {
		t.Error("expected the definition id to track the stored id")
	}

	fetched, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Definition.Name != "completed forms" {
		t.Errorf("unexpected definition: %+v", fetched.Definition)
	}

	fetched.Definition.Name = "renamed"
	updated, err := repo.Update(ctx, fetched)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Definition.Name != "renamed" {
		t.Errorf("expected renamed, got %s", updated.Definition.Name)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("update must preserve the creation timestamp")
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryFilterRepository()
	ctx := context.Background()
	id := uuid.New()

	if _, err := repo.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Update(ctx, domain.SavedFilter{ID: id}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
	if err := repo.IncrementUsage(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("increment: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepositoryListFiltersByEntityType(t *testing.T) {
	repo := NewMemoryFilterRepository()
	ctx := context.Background()

	for _, spec := range []struct{ name, entityType string }{
		{"b filter", "form"},
		{"a filter", "form"},
		{"user filter", "user"},
	} {
		if _, err := repo.Create(ctx, savedFilter(spec.name, spec.entityType)); err != nil {
			t.Fatalf("create %s: %v", spec.name, err)
		}
	}

	filters, err := repo.List(ctx, "form")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("expected 2 form filters, got %d", len(filters))
	}
	if filters[0].Definition.Name != "a filter" {
		t.Errorf("expected name ordering, got %s first", filters[0].Definition.Name)
	}

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 filters with no entity filter, got %d", len(all))
	}
}

func TestMemoryRepositoryQuickFilters(t *testing.T) {
	repo := NewMemoryFilterRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, savedFilter("cold", "form")); err != nil {
		t.Fatalf("create: %v", err)
	}
	hot, err := repo.Create(ctx, savedFilter("hot", "form"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := repo.IncrementUsage(ctx, hot.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	quick, err := repo.ListQuickFilters(ctx, "form", 1)
	if err != nil {
		t.Fatalf("quick filters: %v", err)
	}
	if len(quick) != 1 || quick[0].ID != hot.ID {
		t.Fatalf("expected the most used filter, got %+v", quick)
	}
}
