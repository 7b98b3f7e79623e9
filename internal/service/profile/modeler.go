// internal/service/profile/modeler.go

package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
)

// decayInterval is the unit of temporal decay. Entries untouched for more
// than one interval lose weight multiplicatively per elapsed interval.
const decayInterval = 7 * 24 * time.Hour

// Modeler implements the profile.Modeler interface
type Modeler struct {
	store profile.Store
	now   func() time.Time
}

var _ profile.Modeler = (*Modeler)(nil)

// NewModeler creates a new interest modeler
func NewModeler(store profile.Store) *Modeler {
	return &Modeler{
		store: store,
		now:   time.Now,
	}
}

// WithClock overrides the modeler's clock. Intended for tests.
func (m *Modeler) WithClock(now func() time.Time) *Modeler {
	m.now = now
	return m
}

// InitializeProfile returns the existing profile or creates one seeded from
// explicit preferences. Idempotent: an existing profile is returned untouched.
func (m *Modeler) InitializeProfile(ctx context.Context, userID string, prefs *profile.ExplicitPreferences) (*profile.Profile, error) {
	existing, err := m.store.Get(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	now := m.now()
	p := &profile.Profile{
		UserID: userID,
		AdaptiveWeights: profile.AdaptiveWeights{
			ExplicitWeight: 0.6,
			ImplicitWeight: 0.4,
		},
		ScoringWeights: profile.DefaultScoringWeights(),
		LearningRate:   profile.DefaultLearningRate,
		DecayRate:      profile.DefaultDecayRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if prefs != nil {
		p.ExplicitPreferences = *prefs
		seedExplicit(p, now)
	}

	if err := m.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// UpdateFromInteraction adjusts interest weights for every dimension of the
// content, applies decay and persists the profile.
func (m *Modeler) UpdateFromInteraction(ctx context.Context, userID string, inter content.Interaction, item content.Item) (*profile.Profile, error) {
	p, err := m.InitializeProfile(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sign := 1.0
	if !inter.Type.IsPositive() {
		sign = -1.0
	}
	delta := p.LearningRate * inter.Type.Strength() * sign

	for _, topic := range item.Topics {
		p.Topics = adjustEntry(p.Topics, topic, delta, sign > 0, now)
	}
	for _, category := range item.Categories {
		p.Categories = adjustEntry(p.Categories, category, delta, sign > 0, now)
	}
	if item.SourceType != "" {
		p.SourceTypes = adjustEntry(p.SourceTypes, item.SourceType, delta, sign > 0, now)
	}

	m.applyDecay(p, now)
	p.UpdatedAt = now

	if err := m.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// UpdateExplicitPreferences replaces the declared preferences and merges
// them into the interest collections at explicit trust.
func (m *Modeler) UpdateExplicitPreferences(ctx context.Context, userID string, prefs profile.ExplicitPreferences) (*profile.Profile, error) {
	p, err := m.InitializeProfile(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	now := m.now()
	p.ExplicitPreferences = prefs
	seedExplicit(p, now)
	p.UpdatedAt = now

	if err := m.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// InterestSummary returns the top-N interests per collection.
func (m *Modeler) InterestSummary(ctx context.Context, userID string, topN int) (*profile.Summary, error) {
	p, err := m.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if topN <= 0 {
		topN = 5
	}

	return &profile.Summary{
		UserID:            p.UserID,
		TopTopics:         topEntries(p.Topics, topN),
		TopCategories:     topEntries(p.Categories, topN),
		TopSourceTypes:    topEntries(p.SourceTypes, topN),
		TotalInteractions: p.TotalInteractions(),
		UpdatedAt:         p.UpdatedAt,
	}, nil
}

// AdjustLearningParameters updates learning and decay rates, clamping each
// to its documented bounds.
func (m *Modeler) AdjustLearningParameters(ctx context.Context, userID string, params profile.LearningParameters) (*profile.Profile, error) {
	p, err := m.InitializeProfile(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	if params.LearningRate != nil {
		p.LearningRate = clamp(*params.LearningRate, profile.MinLearningRate, profile.MaxLearningRate)
	}
	if params.DecayRate != nil {
		p.DecayRate = clamp(*params.DecayRate, profile.MinDecayRate, profile.MaxDecayRate)
	}
	p.UpdatedAt = m.now()

	if err := m.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// ResetProfile wipes learned weights and reseeds from explicit preferences.
func (m *Modeler) ResetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := m.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	now := m.now()
	p.Topics = nil
	p.Categories = nil
	p.SourceTypes = nil
	p.ScoringWeights = profile.DefaultScoringWeights()
	seedExplicit(p, now)
	p.UpdatedAt = now

	if err := m.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// adjustEntry applies a signed weight delta to the named entry, seeding it
// when absent. Weights are clamped to [0,1].
func adjustEntry(entries []profile.InterestEntry, name string, delta float64, positive bool, now time.Time) []profile.InterestEntry {
	if e := profile.FindEntry(entries, name); e != nil {
		e.Weight = clamp(e.Weight+delta, 0, 1)
		e.InteractionCount++
		e.LastUpdated = now
		return entries
	}

	seed := profile.PositiveSeedWeight
	if !positive {
		seed = profile.NegativeSeedWeight
	}
	return append(entries, profile.InterestEntry{
		Name:             name,
		Weight:           seed,
		InteractionCount: 1,
		LastUpdated:      now,
	})
}

// applyDecay multiplies stale entry weights by decayRate per elapsed week,
// floored at DecayFloor. Decayed entries have LastUpdated advanced so a
// repeated pass at the same instant is a no-op.
func (m *Modeler) applyDecay(p *profile.Profile, now time.Time) {
	for _, entries := range [][]profile.InterestEntry{p.Topics, p.Categories, p.SourceTypes} {
		for i := range entries {
			weeks := int(now.Sub(entries[i].LastUpdated) / decayInterval)
			if weeks < 1 {
				continue
			}
			decayed := entries[i].Weight * math.Pow(p.DecayRate, float64(weeks))
			entries[i].Weight = math.Max(profile.DecayFloor, decayed)
			entries[i].LastUpdated = now
		}
	}
}

// seedExplicit merges explicit preferences into the interest collections.
// Declared interests start at ExplicitSeedWeight and are never lowered by
// the merge.
func seedExplicit(p *profile.Profile, now time.Time) {
	p.Topics = seedEntries(p.Topics, p.ExplicitPreferences.Topics, now)
	p.Categories = seedEntries(p.Categories, p.ExplicitPreferences.Categories, now)
	p.SourceTypes = seedEntries(p.SourceTypes, p.ExplicitPreferences.SourceTypes, now)
}

func seedEntries(entries []profile.InterestEntry, names []string, now time.Time) []profile.InterestEntry {
	for _, name := range names {
		if name == "" {
			continue
		}
		if e := profile.FindEntry(entries, name); e != nil {
			if e.Weight < profile.ExplicitSeedWeight {
				e.Weight = profile.ExplicitSeedWeight
			}
			e.LastUpdated = now
			continue
		}
		entries = append(entries, profile.InterestEntry{
			Name:        name,
			Weight:      profile.ExplicitSeedWeight,
			LastUpdated: now,
		})
	}
	return entries
}

func topEntries(entries []profile.InterestEntry, n int) []profile.InterestEntry {
	sorted := make([]profile.InterestEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
