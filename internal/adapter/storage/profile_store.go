// internal/adapter/storage/profile_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"feedcore/internal/domain/profile"
)

// ProfileStore implements pgx-backed storage for interest profiles
type ProfileStore struct {
	db *pgxpool.Pool
}

// NewProfileStore creates a new profile store
func NewProfileStore(db *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{db: db}
}

var _ profile.Store = (*ProfileStore)(nil)

// Save upserts a profile keyed by user id
func (s *ProfileStore) Save(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, topics, categories, source_types,
			explicit_preferences, adaptive_weights, scoring_weights,
			learning_rate, decay_rate, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11
		)
		ON CONFLICT (user_id) DO UPDATE
		SET
			topics = $2,
			categories = $3,
			source_types = $4,
			explicit_preferences = $5,
			adaptive_weights = $6,
			scoring_weights = $7,
			learning_rate = $8,
			decay_rate = $9,
			updated_at = $11
	`

	topicsJSON, err := json.Marshal(p.Topics)
	if err != nil {
		return fmt.Errorf("error marshaling topics: %w", err)
	}
	categoriesJSON, err := json.Marshal(p.Categories)
	if err != nil {
		return fmt.Errorf("error marshaling categories: %w", err)
	}
	sourceTypesJSON, err := json.Marshal(p.SourceTypes)
	if err != nil {
		return fmt.Errorf("error marshaling source types: %w", err)
	}
	prefsJSON, err := json.Marshal(p.ExplicitPreferences)
	if err != nil {
		return fmt.Errorf("error marshaling explicit preferences: %w", err)
	}
	adaptiveJSON, err := json.Marshal(p.AdaptiveWeights)
	if err != nil {
		return fmt.Errorf("error marshaling adaptive weights: %w", err)
	}
	scoringJSON, err := json.Marshal(p.ScoringWeights)
	if err != nil {
		return fmt.Errorf("error marshaling scoring weights: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		p.UserID,
		topicsJSON,
		categoriesJSON,
		sourceTypesJSON,
		prefsJSON,
		adaptiveJSON,
		scoringJSON,
		p.LearningRate,
		p.DecayRate,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// Get retrieves the profile for a user id
func (s *ProfileStore) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `
		SELECT
			user_id, topics, categories, source_types,
			explicit_preferences, adaptive_weights, scoring_weights,
			learning_rate, decay_rate, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var p profile.Profile
	var topicsJSON, categoriesJSON, sourceTypesJSON []byte
	var prefsJSON, adaptiveJSON, scoringJSON []byte

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&topicsJSON,
		&categoriesJSON,
		&sourceTypesJSON,
		&prefsJSON,
		&adaptiveJSON,
		&scoringJSON,
		&p.LearningRate,
		&p.DecayRate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("error querying profile: %w", err)
	}

	if err := json.Unmarshal(topicsJSON, &p.Topics); err != nil {
		return nil, fmt.Errorf("error unmarshaling topics: %w", err)
	}
	if err := json.Unmarshal(categoriesJSON, &p.Categories); err != nil {
		return nil, fmt.Errorf("error unmarshaling categories: %w", err)
	}
	if err := json.Unmarshal(sourceTypesJSON, &p.SourceTypes); err != nil {
		return nil, fmt.Errorf("error unmarshaling source types: %w", err)
	}
	if err := json.Unmarshal(prefsJSON, &p.ExplicitPreferences); err != nil {
		return nil, fmt.Errorf("error unmarshaling explicit preferences: %w", err)
	}
	if err := json.Unmarshal(adaptiveJSON, &p.AdaptiveWeights); err != nil {
		return nil, fmt.Errorf("error unmarshaling adaptive weights: %w", err)
	}
	if err := json.Unmarshal(scoringJSON, &p.ScoringWeights); err != nil {
		return nil, fmt.Errorf("error unmarshaling scoring weights: %w", err)
	}

	return &p, nil
}

// Delete removes the profile for a user id. Missing rows are not an error.
func (s *ProfileStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}
