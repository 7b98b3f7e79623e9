// internal/domain/focus/model.go

package focus

import (
	"context"
	"errors"
	"time"

	"feedcore/internal/domain/content"
)

// Validation bounds for focus areas.
const (
	MinNameLength       = 2
	MaxNameLength       = 100
	DefaultMaxPerUser   = 10
	DefaultMinPassScore = 0.3
)

var (
	// ErrNotFound is returned when a focus area does not exist for the user.
	ErrNotFound = errors.New("focus area not found")

	// ErrValidation wraps all focus-area validation failures.
	ErrValidation = errors.New("invalid focus area")
)

// Priority weights a focus area's contribution to stream filtering
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight returns the averaging weight for the priority level.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 1.0
	case PriorityMedium:
		return 0.8
	case PriorityLow:
		return 0.6
	default:
		return 0.8
	}
}

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Area is a user-defined persistent topical filter.
type Area struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	Topics        []string
	Categories    []string
	Keywords      []string
	SourceTypes   []string
	Priority      Priority
	IsActive      bool
	ContentCount  int
	LastMatchedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Draft is the caller-supplied shape for creating or updating an area.
type Draft struct {
	Name        string
	Description string
	Topics      []string
	Categories  []string
	Keywords    []string
	SourceTypes []string
	Priority    Priority
}

// Template is a pre-built focus area definition.
type Template struct {
	Key         string
	Name        string
	Description string
	Topics      []string
	Categories  []string
	Keywords    []string
	SourceTypes []string
	Priority    Priority
}

// MatchedItem is a content item admitted by the active filter set.
type MatchedItem struct {
	Item  content.Item
	Score float64

	// MatchedAreas lists ids of the focus areas the item matched.
	MatchedAreas []string
}

// Manager defines the interface for focus-area management and filtering
type Manager interface {
	CreateFocusArea(ctx context.Context, userID string, d Draft) (*Area, error)
	GetFocusArea(ctx context.Context, userID, id string) (*Area, error)
	ListFocusAreas(ctx context.Context, userID string) ([]Area, error)
	UpdateFocusArea(ctx context.Context, userID, id string, d Draft) (*Area, error)
	DeleteFocusArea(ctx context.Context, userID, id string) error

	// SetActive toggles a focus area; deactivation removes it from the
	// user's active filter set.
	SetActive(ctx context.Context, userID, id string, active bool) (*Area, error)

	// Templates returns the pre-built focus area library.
	Templates() []Template

	// CreateFromTemplate instantiates a template for the user, optionally
	// merged with customizations (array fields concatenate).
	CreateFromTemplate(ctx context.Context, userID, templateKey string, custom *Draft) (*Area, error)

	// SetActiveFilters replaces the user's active filter set. Every id must
	// reference an active focus area owned by the user.
	SetActiveFilters(ctx context.Context, userID string, ids []string) error

	// ActiveFilters returns the user's currently active filter set.
	ActiveFilters(ctx context.Context, userID string) ([]Area, error)

	// FilterContent matches items against the active filter set. With no
	// active filters all items pass through with score 0.
	FilterContent(ctx context.Context, userID string, items []content.Item) ([]MatchedItem, error)

	// SuggestFocusAreas proposes focus areas from engagement history, or
	// the template library when no history exists.
	SuggestFocusAreas(ctx context.Context, userID string) ([]Draft, error)
}

// Store defines persistence for focus areas and active filter sets
type Store interface {
	Save(ctx context.Context, a *Area) error
	Get(ctx context.Context, userID, id string) (*Area, error)
	ListByUser(ctx context.Context, userID string) ([]Area, error)
	Delete(ctx context.Context, userID, id string) error

	// SetActiveSet replaces the user's active filter id set.
	SetActiveSet(ctx context.Context, userID string, ids []string) error

	// ActiveSet returns the user's active filter id set.
	ActiveSet(ctx context.Context, userID string) ([]string, error)
}
