package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rpattn/advfilter/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// filterRepository implements FilterRepository on Postgres. The definition is
// stored as opaque JSONB; name, entity type, shared flag and tags are lifted
// into columns purely for querying.
type filterRepository struct {
	pool *pgxpool.Pool
}

// NewFilterRepository creates a Postgres-backed saved filter repository.
func NewFilterRepository(pool *pgxpool.Pool) FilterRepository {
	return &filterRepository{pool: pool}
}

const savedFilterColumns = `id, name, description, entity_type, definition, is_shared, tags, usage_count, created_at, updated_at`

func (r *filterRepository) Create(ctx context.Context, filter domain.SavedFilter) (domain.SavedFilter, error) {
	if filter.ID == uuid.Nil {
		filter.ID = uuid.New()
	}

	definitionJSON, err := json.Marshal(filter.Definition)
	if err != nil {
		return domain.SavedFilter{}, fmt.Errorf("marshal filter definition: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO saved_filters (id, name, description, entity_type, definition, is_shared, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+savedFilterColumns,
		filter.ID,
		filter.Definition.Name,
		pgtype.Text{String: filter.Definition.Description, Valid: filter.Definition.Description != ""},
		filter.Definition.EntityType,
		definitionJSON,
		filter.Definition.IsShared,
		filter.Definition.Tags,
	)

	created, err := scanSavedFilter(row)
	if err != nil {
		return domain.SavedFilter{}, fmt.Errorf("create saved filter: %w", err)
	}
	return created, nil
}

func (r *filterRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.SavedFilter, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+savedFilterColumns+`
		FROM saved_filters
		WHERE id = $1`, id)

	filter, err := scanSavedFilter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SavedFilter{}, ErrNotFound
		}
		return domain.SavedFilter{}, fmt.Errorf("get saved filter: %w", err)
	}
	return filter, nil
}

func (r *filterRepository) List(ctx context.Context, entityType string) ([]domain.SavedFilter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+savedFilterColumns+`
		FROM saved_filters
		WHERE ($1 = '' OR entity_type = $1)
		ORDER BY name`, entityType)
	if err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}
	defer rows.Close()

	return collectSavedFilters(rows)
}

func (r *filterRepository) Update(ctx context.Context, filter domain.SavedFilter) (domain.SavedFilter, error) {
	definitionJSON, err := json.Marshal(filter.Definition)
	if err != nil {
		return domain.SavedFilter{}, fmt.Errorf("marshal filter definition: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE saved_filters
		SET name = $2,
		    description = $3,
		    entity_type = $4,
		    definition = $5,
		    is_shared = $6,
		    tags = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+savedFilterColumns,
		filter.ID,
		filter.Definition.Name,
		pgtype.Text{String: filter.Definition.Description, Valid: filter.Definition.Description != ""},
		filter.Definition.EntityType,
		definitionJSON,
		filter.Definition.IsShared,
		filter.Definition.Tags,
	)

	updated, err := scanSavedFilter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SavedFilter{}, ErrNotFound
		}
		return domain.SavedFilter{}, fmt.Errorf("update saved filter: %w", err)
	}
	return updated, nil
}

func (r *filterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM saved_filters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete saved filter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *filterRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE saved_filters
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment filter usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *filterRepository) ListQuickFilters(ctx context.Context, entityType string, limit int) ([]domain.SavedFilter, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+savedFilterColumns+`
		FROM saved_filters
		WHERE entity_type = $1
		ORDER BY usage_count DESC, name
		LIMIT $2`, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("list quick filters: %w", err)
	}
	defer rows.Close()

	return collectSavedFilters(rows)
}

func scanSavedFilter(row pgx.Row) (domain.SavedFilter, error) {
	var (
		filter         domain.SavedFilter
		name           string
		description    pgtype.Text
		entityType     string
		definitionJSON []byte
		isShared       bool
		tags           []string
	)

	err := row.Scan(
		&filter.ID,
		&name,
		&description,
		&entityType,
		&definitionJSON,
		&isShared,
		&tags,
		&filter.UsageCount,
		&filter.CreatedAt,
		&filter.UpdatedAt,
	)
	if err != nil {
		return domain.SavedFilter{}, err
	}

	if err := json.Unmarshal(definitionJSON, &filter.Definition); err != nil {
		return domain.SavedFilter{}, fmt.Errorf("unmarshal filter definition: %w", err)
	}
	// Columns win over whatever the stored blob says; they are what queries
	// and listings are built on.
	filter.Definition.ID = filter.ID.String()
	filter.Definition.Name = name
	filter.Definition.Description = description.String
	filter.Definition.EntityType = entityType
	filter.Definition.IsShared = isShared
	filter.Definition.Tags = tags

	return filter, nil
}

func collectSavedFilters(rows pgx.Rows) ([]domain.SavedFilter, error) {
	var filters []domain.SavedFilter
	for rows.Next() {
		filter, err := scanSavedFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved filters: %w", err)
	}
	return filters, nil
}
