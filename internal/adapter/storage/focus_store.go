// internal/adapter/storage/focus_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"feedcore/internal/domain/focus"
)

// FocusStore implements pgx-backed storage for focus areas and per-user
// active filter sets
type FocusStore struct {
	db *pgxpool.Pool
}

// NewFocusStore creates a new focus-area store
func NewFocusStore(db *pgxpool.Pool) *FocusStore {
	return &FocusStore{db: db}
}

var _ focus.Store = (*FocusStore)(nil)

// Save upserts a focus area
func (s *FocusStore) Save(ctx context.Context, a *focus.Area) error {
	query := `
		INSERT INTO focus_areas (
			id, user_id, name, description,
			topics, categories, keywords, source_types,
			priority, is_active, content_count, last_matched_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14
		)
		ON CONFLICT (id) DO UPDATE
		SET
			name = $3,
			description = $4,
			topics = $5,
			categories = $6,
			keywords = $7,
			source_types = $8,
			priority = $9,
			is_active = $10,
			content_count = $11,
			last_matched_at = $12,
			updated_at = $14
	`

	_, err := s.db.Exec(
		ctx,
		query,
		a.ID,
		a.UserID,
		a.Name,
		a.Description,
		a.Topics,
		a.Categories,
		a.Keywords,
		a.SourceTypes,
		string(a.Priority),
		a.IsActive,
		a.ContentCount,
		a.LastMatchedAt,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// Get retrieves one of the user's focus areas by id
func (s *FocusStore) Get(ctx context.Context, userID, id string) (*focus.Area, error) {
	query := `
		SELECT
			id, user_id, name, description,
			topics, categories, keywords, source_types,
			priority, is_active, content_count, last_matched_at,
			created_at, updated_at
		FROM focus_areas
		WHERE id = $1 AND user_id = $2
	`

	a, err := scanArea(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, focus.ErrNotFound
		}
		return nil, fmt.Errorf("error querying focus area: %w", err)
	}
	return a, nil
}

// ListByUser returns all of the user's focus areas
func (s *FocusStore) ListByUser(ctx context.Context, userID string) ([]focus.Area, error) {
	query := `
		SELECT
			id, user_id, name, description,
			topics, categories, keywords, source_types,
			priority, is_active, content_count, last_matched_at,
			created_at, updated_at
		FROM focus_areas
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var areas []focus.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning focus area: %w", err)
		}
		areas = append(areas, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus areas: %w", err)
	}

	return areas, nil
}

// Delete removes one of the user's focus areas
func (s *FocusStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM focus_areas WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return focus.ErrNotFound
	}
	return nil
}

// SetActiveSet replaces the user's active filter id set
func (s *FocusStore) SetActiveSet(ctx context.Context, userID string, ids []string) error {
	query := `
		INSERT INTO focus_active_filters (user_id, area_ids, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET area_ids = $2, updated_at = NOW()
	`

	if ids == nil {
		ids = []string{}
	}
	if _, err := s.db.Exec(ctx, query, userID, ids); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// ActiveSet returns the user's active filter id set
func (s *FocusStore) ActiveSet(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.QueryRow(ctx,
		`SELECT area_ids FROM focus_active_filters WHERE user_id = $1`, userID).Scan(&ids)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying active filter set: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArea(row rowScanner) (*focus.Area, error) {
	var a focus.Area
	var priority string

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Description,
		&a.Topics,
		&a.Categories,
		&a.Keywords,
		&a.SourceTypes,
		&priority,
		&a.IsActive,
		&a.ContentCount,
		&a.LastMatchedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Priority = focus.Priority(priority)
	return &a, nil
}
