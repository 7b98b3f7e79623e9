// internal/domain/profile/model.go

package profile

import (
	"time"
)

// Parameter bounds enforced on every profile write.
const (
	MinLearningRate = 0.01
	MaxLearningRate = 0.5
	MinDecayRate    = 0.8
	MaxDecayRate    = 0.99

	DefaultLearningRate = 0.1
	DefaultDecayRate    = 0.95

	// ExplicitSeedWeight is the starting weight for user-declared interests.
	ExplicitSeedWeight = 0.8
	// PositiveSeedWeight seeds an interest first observed through a positive interaction.
	PositiveSeedWeight = 0.6
	// NegativeSeedWeight seeds an interest first observed through a negative interaction.
	NegativeSeedWeight = 0.4
	// DecayFloor is the lowest weight temporal decay can reach.
	DecayFloor = 0.1
)

// InterestEntry is a single weighted interest within a profile collection.
// Name is unique within its collection.
type InterestEntry struct {
	Name             string
	Weight           float64
	InteractionCount int
	LastUpdated      time.Time
}

// ExplicitPreferences holds interests the user declared directly. They are
// merged into the profile with higher trust than implicitly learned weights.
type ExplicitPreferences struct {
	Topics      []string
	Categories  []string
	SourceTypes []string
}

// AdaptiveWeights balances explicit against implicit signals. The two values
// conceptually sum to 1 but this is not enforced.
type AdaptiveWeights struct {
	ExplicitWeight float64
	ImplicitWeight float64
}

// ScoringWeights are the per-user relevance factor weights. One set is kept
// on each profile so that learning cycles for one user never shift another
// user's ranking.
type ScoringWeights struct {
	TopicMatch      float64
	CategoryMatch   float64
	SourceTypeMatch float64
	Recency         float64
	Quality         float64
}

// DefaultScoringWeights returns the initial factor weighting.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		TopicMatch:      0.4,
		CategoryMatch:   0.3,
		SourceTypeMatch: 0.15,
		Recency:         0.1,
		Quality:         0.05,
	}
}

// Clamped returns a copy with every weight bounded to [0.05, 0.8], the range
// adaptive learning is allowed to move a weight within.
func (w ScoringWeights) Clamped() ScoringWeights {
	clamp := func(v float64) float64 {
		if v < 0.05 {
			return 0.05
		}
		if v > 0.8 {
			return 0.8
		}
		return v
	}
	return ScoringWeights{
		TopicMatch:      clamp(w.TopicMatch),
		CategoryMatch:   clamp(w.CategoryMatch),
		SourceTypeMatch: clamp(w.SourceTypeMatch),
		Recency:         clamp(w.Recency),
		Quality:         clamp(w.Quality),
	}
}

// Profile is the per-user interest model. One profile exists per user id.
type Profile struct {
	UserID              string
	Topics              []InterestEntry
	Categories          []InterestEntry
	SourceTypes         []InterestEntry
	ExplicitPreferences ExplicitPreferences
	AdaptiveWeights     AdaptiveWeights
	ScoringWeights      ScoringWeights
	LearningRate        float64
	DecayRate           float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// FindEntry returns a pointer into entries for the entry named name, or nil.
func FindEntry(entries []InterestEntry, name string) *InterestEntry {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i]
		}
	}
	return nil
}

// EntryWeight returns the weight of the named entry and whether it exists.
func EntryWeight(entries []InterestEntry, name string) (float64, bool) {
	if e := FindEntry(entries, name); e != nil {
		return e.Weight, true
	}
	return 0, false
}

// TotalInteractions sums interaction counts across all interest collections.
func (p *Profile) TotalInteractions() int {
	total := 0
	for _, c := range [][]InterestEntry{p.Topics, p.Categories, p.SourceTypes} {
		for _, e := range c {
			total += e.InteractionCount
		}
	}
	return total
}
