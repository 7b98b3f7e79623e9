// internal/domain/profile/modeler.go

package profile

import (
	"context"
	"errors"
	"time"

	"feedcore/internal/domain/content"
)

// ErrNotFound is returned when no profile exists for a user id.
var ErrNotFound = errors.New("profile not found")

// LearningParameters carries optional per-user tuning overrides. Nil fields
// are left unchanged; present fields are clamped to their documented bounds.
type LearningParameters struct {
	LearningRate *float64
	DecayRate    *float64
}

// Summary is a read-only view of a user's strongest interests.
type Summary struct {
	UserID            string
	TopTopics         []InterestEntry
	TopCategories     []InterestEntry
	TopSourceTypes    []InterestEntry
	TotalInteractions int
	UpdatedAt         time.Time
}

// Modeler defines the interface for maintaining per-user interest profiles
type Modeler interface {
	// InitializeProfile returns the existing profile for userID or creates
	// one, seeding explicit preferences when provided. Idempotent.
	InitializeProfile(ctx context.Context, userID string, prefs *ExplicitPreferences) (*Profile, error)

	// UpdateFromInteraction adjusts interest weights for every topic,
	// category and source type of the content the user interacted with,
	// applies temporal decay, and persists the profile.
	UpdateFromInteraction(ctx context.Context, userID string, inter content.Interaction, item content.Item) (*Profile, error)

	// UpdateExplicitPreferences replaces the user's declared preferences
	// and merges them into the interest collections at full explicit trust.
	UpdateExplicitPreferences(ctx context.Context, userID string, prefs ExplicitPreferences) (*Profile, error)

	// InterestSummary returns the top-N interests per collection.
	InterestSummary(ctx context.Context, userID string, topN int) (*Summary, error)

	// AdjustLearningParameters updates learning/decay rates, clamped to bounds.
	AdjustLearningParameters(ctx context.Context, userID string, params LearningParameters) (*Profile, error)

	// ResetProfile discards all learned weights and reseeds the profile
	// from its explicit preferences.
	ResetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Store defines persistence for profiles
type Store interface {
	// Get returns the profile for userID or ErrNotFound.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Save upserts the profile keyed by user id.
	Save(ctx context.Context, p *Profile) error

	// Delete removes the profile for userID. Missing profiles are not an error.
	Delete(ctx context.Context, userID string) error
}
