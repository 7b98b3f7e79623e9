// internal/service/focus/manager.go

package focus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/focus"
)

// ManagerConfig contains configuration for the focus-area manager
type ManagerConfig struct {
	// MaxPerUser caps focus areas per user.
	MaxPerUser int

	// MinimumPassScore drops filtered items scoring below it.
	MinimumPassScore float64

	// Match weights for the per-area score.
	TopicWeight      float64
	CategoryWeight   float64
	KeywordWeight    float64
	SourceTypeWeight float64
}

// DefaultManagerConfig returns the standard manager tuning.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxPerUser:       focus.DefaultMaxPerUser,
		MinimumPassScore: focus.DefaultMinPassScore,
		TopicWeight:      0.4,
		CategoryWeight:   0.3,
		KeywordWeight:    0.2,
		SourceTypeWeight: 0.1,
	}
}

// HistorySource supplies engaged topics for focus-area suggestion.
type HistorySource interface {
	EngagedTopics(userID string) []string
}

// Manager implements the focus.Manager interface
type Manager struct {
	store   focus.Store
	history HistorySource
	config  ManagerConfig
	now     func() time.Time
}

var _ focus.Manager = (*Manager)(nil)

// NewManager creates a new focus-area manager. history may be nil, in which
// case suggestions always come from the template library.
func NewManager(store focus.Store, history HistorySource, config ManagerConfig) *Manager {
	if config.MaxPerUser == 0 {
		config = DefaultManagerConfig()
	}
	return &Manager{
		store:   store,
		history: history,
		config:  config,
		now:     time.Now,
	}
}

// WithClock overrides the manager's clock. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// CreateFocusArea validates the draft and persists a new focus area.
func (m *Manager) CreateFocusArea(ctx context.Context, userID string, d focus.Draft) (*focus.Area, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	existing, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus areas: %w", err)
	}
	if len(existing) >= m.config.MaxPerUser {
		return nil, fmt.Errorf("%w: user has reached the limit of %d focus areas",
			focus.ErrValidation, m.config.MaxPerUser)
	}

	now := m.now()
	a := &focus.Area{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Topics:      dedupe(d.Topics),
		Categories:  dedupe(d.Categories),
		Keywords:    dedupe(d.Keywords),
		SourceTypes: dedupe(d.SourceTypes),
		Priority:    defaultPriority(d.Priority),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.store.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save focus area: %w", err)
	}
	return a, nil
}

// GetFocusArea returns one of the user's focus areas by id.
func (m *Manager) GetFocusArea(ctx context.Context, userID, id string) (*focus.Area, error) {
	a, err := m.store.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, focus.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load focus area: %w", err)
	}
	return a, nil
}

// ListFocusAreas returns all of the user's focus areas.
func (m *Manager) ListFocusAreas(ctx context.Context, userID string) ([]focus.Area, error) {
	areas, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list focus areas: %w", err)
	}
	return areas, nil
}

// UpdateFocusArea applies the draft to an existing focus area. Deactivating
// an area removes it from the user's active filter set.
func (m *Manager) UpdateFocusArea(ctx context.Context, userID, id string, d focus.Draft) (*focus.Area, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	a, err := m.GetFocusArea(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	a.Name = strings.TrimSpace(d.Name)
	a.Description = d.Description
	a.Topics = dedupe(d.Topics)
	a.Categories = dedupe(d.Categories)
	a.Keywords = dedupe(d.Keywords)
	a.SourceTypes = dedupe(d.SourceTypes)
	a.Priority = defaultPriority(d.Priority)
	a.UpdatedAt = m.now()

	if err := m.store.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save focus area: %w", err)
	}
	return a, nil
}

// SetActive toggles a focus area. Deactivation invalidates it from the
// user's active filter set.
func (m *Manager) SetActive(ctx context.Context, userID, id string, active bool) (*focus.Area, error) {
	a, err := m.GetFocusArea(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	a.IsActive = active
	a.UpdatedAt = m.now()
	if err := m.store.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save focus area: %w", err)
	}

	if !active {
		if err := m.removeFromActiveSet(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// DeleteFocusArea removes a focus area and purges it from the active set.
func (m *Manager) DeleteFocusArea(ctx context.Context, userID, id string) error {
	if err := m.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, focus.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete focus area: %w", err)
	}
	return m.removeFromActiveSet(ctx, userID, id)
}

// SetActiveFilters replaces the user's active filter set after validating
// that every id references one of the user's currently active focus areas.
func (m *Manager) SetActiveFilters(ctx context.Context, userID string, ids []string) error {
	areas, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list focus areas: %w", err)
	}

	byID := make(map[string]*focus.Area, len(areas))
	for i := range areas {
		byID[areas[i].ID] = &areas[i]
	}

	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: focus area %s does not belong to user", focus.ErrValidation, id)
		}
		if !a.IsActive {
			return fmt.Errorf("%w: focus area %s is not active", focus.ErrValidation, id)
		}
	}

	if err := m.store.SetActiveSet(ctx, userID, ids); err != nil {
		return fmt.Errorf("failed to save active filter set: %w", err)
	}
	return nil
}

// ActiveFilters returns the focus areas in the user's active filter set.
func (m *Manager) ActiveFilters(ctx context.Context, userID string) ([]focus.Area, error) {
	ids, err := m.store.ActiveSet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active filter set: %w", err)
	}

	var active []focus.Area
	for _, id := range ids {
		a, err := m.store.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, focus.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load focus area: %w", err)
		}
		if a.IsActive {
			active = append(active, *a)
		}
	}
	return active, nil
}

// FilterContent matches items against the active filter set. With no active
// filters every item passes through with score 0. Matching areas have their
// content counters updated.
func (m *Manager) FilterContent(ctx context.Context, userID string, items []content.Item) ([]focus.MatchedItem, error) {
	active, err := m.ActiveFilters(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(active) == 0 {
		out := make([]focus.MatchedItem, len(items))
		for i, item := range items {
			out[i] = focus.MatchedItem{Item: item}
		}
		return out, nil
	}

	matchedCounts := make(map[string]int)
	var passed []focus.MatchedItem

	for _, item := range items {
		weightedSum := 0.0
		weightTotal := 0.0
		var areaIDs []string

		for i := range active {
			score := m.areaMatchScore(&active[i], item)
			if score <= 0 {
				continue
			}
			w := active[i].Priority.Weight()
			weightedSum += score * w
			weightTotal += w
			areaIDs = append(areaIDs, active[i].ID)
		}

		if weightTotal == 0 {
			continue
		}

		total := weightedSum / weightTotal
		if total < m.config.MinimumPassScore {
			continue
		}

		for _, id := range areaIDs {
			matchedCounts[id]++
		}
		passed = append(passed, focus.MatchedItem{
			Item:         item,
			Score:        total,
			MatchedAreas: areaIDs,
		})
	}

	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].Score > passed[j].Score
	})

	if len(matchedCounts) > 0 {
		now := m.now()
		for i := range active {
			count := matchedCounts[active[i].ID]
			if count == 0 {
				continue
			}
			active[i].ContentCount += count
			active[i].LastMatchedAt = &now
			if err := m.store.Save(ctx, &active[i]); err != nil {
				return nil, fmt.Errorf("failed to update focus area counters: %w", err)
			}
		}
	}

	return passed, nil
}

// areaMatchScore computes the weighted match of one item against one area.
func (m *Manager) areaMatchScore(a *focus.Area, item content.Item) float64 {
	topic := matchFraction(a.Topics, item.Topics)
	category := matchFraction(a.Categories, item.Categories)
	keyword := keywordFraction(a.Keywords, item)
	sourceType := 0.0
	for _, st := range a.SourceTypes {
		if strings.EqualFold(st, item.SourceType) {
			sourceType = 1.0
			break
		}
	}

	return topic*m.config.TopicWeight +
		category*m.config.CategoryWeight +
		keyword*m.config.KeywordWeight +
		sourceType*m.config.SourceTypeWeight
}

// matchFraction is the share of the area's declared terms matched by the
// item's values via exact, partial, or word-overlap matching.
func matchFraction(areaTerms, itemValues []string) float64 {
	if len(areaTerms) == 0 || len(itemValues) == 0 {
		return 0
	}

	matched := 0
	for _, term := range areaTerms {
		for _, value := range itemValues {
			if termsMatch(term, value) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(areaTerms))
}

// termsMatch reports a match on case-insensitive equality, substring
// containment in either direction, or word-overlap similarity above 0.8.
func termsMatch(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	if la == lb {
		return true
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	return wordOverlap(la, lb) > 0.8
}

// wordOverlap is the Jaccard similarity of the word sets of two phrases.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// keywordFraction is the share of the area's keywords found as literal
// case-insensitive substrings of the item text.
func keywordFraction(keywords []string, item content.Item) float64 {
	if len(keywords) == 0 {
		return 0
	}

	text := item.Text()
	matched := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func (m *Manager) removeFromActiveSet(ctx context.Context, userID, id string) error {
	ids, err := m.store.ActiveSet(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load active filter set: %w", err)
	}

	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}

	if err := m.store.SetActiveSet(ctx, userID, kept); err != nil {
		return fmt.Errorf("failed to save active filter set: %w", err)
	}
	return nil
}

func validateDraft(d focus.Draft) error {
	name := strings.TrimSpace(d.Name)
	if len(name) < focus.MinNameLength || len(name) > focus.MaxNameLength {
		return fmt.Errorf("%w: name must be %d-%d characters",
			focus.ErrValidation, focus.MinNameLength, focus.MaxNameLength)
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", focus.ErrValidation, d.Priority)
	}
	return nil
}

func defaultPriority(p focus.Priority) focus.Priority {
	if p == "" {
		return focus.PriorityMedium
	}
	return p
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
