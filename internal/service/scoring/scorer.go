// internal/service/scoring/scorer.go

package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
	"feedcore/internal/domain/scoring"
)

// Default diversification caps when RankOptions leaves them zero.
const (
	defaultMaxPerCategory = 3
	defaultMaxPerSource   = 2
)

// confidenceVolumeCap is the interaction count at which historical volume
// stops increasing prediction confidence.
const confidenceVolumeCap = 50

// Scorer implements the scoring.Scorer interface. It is stateless given a
// profile; the factor weights come from the profile itself.
type Scorer struct {
	now func() time.Time
}

var _ scoring.Scorer = (*Scorer)(nil)

// NewScorer creates a new relevance scorer
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// WithClock overrides the scorer's clock. Intended for tests.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// ScoreContent computes the multi-factor relevance of item for profile p.
func (s *Scorer) ScoreContent(ctx context.Context, p *profile.Profile, item *content.Item) (scoring.Relevance, error) {
	if item == nil {
		return scoring.Relevance{}, scoring.ErrNilContent
	}

	now := s.now()
	factors := scoring.FactorScores{
		Topic:      topicScore(p, item),
		Category:   categoryScore(p, item),
		SourceType: sourceTypeScore(p, item),
		Recency:    recencyScore(item, now),
		Quality:    qualityScore(item),
	}

	w := p.ScoringWeights
	raw := factors.Topic*w.TopicMatch +
		factors.Category*w.CategoryMatch +
		factors.SourceType*w.SourceTypeMatch +
		factors.Recency*w.Recency +
		factors.Quality*w.Quality

	return scoring.Relevance{
		ContentID:  item.ID,
		Score:      NormalizeScore(raw),
		Raw:        raw,
		Confidence: confidence(p, factors),
		Factors:    factors,
		ScoredAt:   now,
	}, nil
}

// ScoreAndRankContent scores every item and sorts descending by composite
// score. A single item's scoring failure is counted and skipped, never
// aborting the batch.
func (s *Scorer) ScoreAndRankContent(ctx context.Context, p *profile.Profile, items []content.Item, opts scoring.RankOptions) (*scoring.RankResult, error) {
	result := &scoring.RankResult{}

	for i := range items {
		rel, err := s.ScoreContent(ctx, p, &items[i])
		if err != nil {
			result.Failed++
			continue
		}
		result.Items = append(result.Items, scoring.ScoredItem{Item: items[i], Relevance: rel})
	}

	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].Relevance.Score > result.Items[j].Relevance.Score
	})

	if opts.Diversify {
		result.Items = diversify(result.Items, opts)
	}
	if opts.Limit > 0 && len(result.Items) > opts.Limit {
		result.Items = result.Items[:opts.Limit]
	}

	return result, nil
}

// NormalizeScore maps a raw composite in [0,1] onto the integer 0-100 scale,
// clamping out-of-range input.
func NormalizeScore(raw float64) int {
	if raw <= 0 {
		return 0
	}
	if raw >= 1 {
		return 100
	}
	return int(math.Round(raw * 100))
}

// topicScore is the mean weight of matched topics plus a coverage bonus of
// up to 0.2, capped at 1. No topics or no matches yields 0.
func topicScore(p *profile.Profile, item *content.Item) float64 {
	if len(item.Topics) == 0 {
		return 0
	}

	sum := 0.0
	matched := 0
	for _, topic := range item.Topics {
		if w, ok := profile.EntryWeight(p.Topics, topic); ok {
			sum += w
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	mean := sum / float64(matched)
	bonus := math.Min(float64(matched)/float64(len(item.Topics)), 1) * 0.2
	return math.Min(mean+bonus, 1)
}

// categoryScore is the mean weight of matched categories; 0 if none match.
func categoryScore(p *profile.Profile, item *content.Item) float64 {
	if len(item.Categories) == 0 {
		return 0
	}

	sum := 0.0
	matched := 0
	for _, category := range item.Categories {
		if w, ok := profile.EntryWeight(p.Categories, category); ok {
			sum += w
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return sum / float64(matched)
}

// sourceTypeScore returns the profile weight for a matched source type, a
// neutral 0.5 when the item declares none, and 0.3 for an unmatched type.
func sourceTypeScore(p *profile.Profile, item *content.Item) float64 {
	if item.SourceType == "" {
		return 0.5
	}
	if w, ok := profile.EntryWeight(p.SourceTypes, item.SourceType); ok {
		return w
	}
	return 0.3
}

// recencyScore is a step function on content age. Items without a publish
// date score a neutral 0.5.
func recencyScore(item *content.Item, now time.Time) float64 {
	age, ok := item.Age(now)
	if !ok {
		return 0.5
	}

	switch {
	case age <= 24*time.Hour:
		return 1.0
	case age <= 7*24*time.Hour:
		return 0.9
	case age <= 30*24*time.Hour:
		return 0.7
	case age <= 365*24*time.Hour:
		return 0.5
	default:
		return 0.2
	}
}

// qualityScore combines engagement ratio, source credibility and a length
// preference into a 0.5-based score.
func qualityScore(item *content.Item) float64 {
	score := 0.5

	views := item.Metrics.Views
	if views < 1 {
		views = 1
	}
	engagement := (float64(item.Metrics.Likes) +
		2*float64(item.Metrics.Shares) +
		1.5*float64(item.Metrics.Comments)) / float64(views)
	score += math.Min(engagement, 1) * 0.3

	score += math.Min(math.Max(item.Source.CredibilityScore, 0), 1) * 0.2

	score += lengthPreference(item.WordCount()) * 0.1

	return math.Min(score, 1)
}

// lengthPreference peaks at 300-2000 words with a linear ramp below and a
// gradual decay above, floored at 0.3 for very long content. Zero-length
// content scores 0.
func lengthPreference(words int) float64 {
	switch {
	case words <= 0:
		return 0
	case words < 300:
		return float64(words) / 300
	case words <= 2000:
		return 1
	default:
		decayed := 1 - float64(words-2000)/8000
		return math.Max(decayed, 0.3)
	}
}

// confidence estimates prediction confidence from historical interaction
// volume and the stronger of the topic/category signals, capped at 1.
func confidence(p *profile.Profile, factors scoring.FactorScores) float64 {
	c := 0.5

	volume := math.Min(float64(p.TotalInteractions())/confidenceVolumeCap, 1)
	c += volume * 0.4

	c += math.Max(factors.Topic, factors.Category) * 0.3

	return math.Min(c, 1)
}

// diversify caps admitted items per primary category and per source name,
// preserving relative order among admitted items.
func diversify(items []scoring.ScoredItem, opts scoring.RankOptions) []scoring.ScoredItem {
	maxPerCategory := opts.MaxPerCategory
	if maxPerCategory <= 0 {
		maxPerCategory = defaultMaxPerCategory
	}
	maxPerSource := opts.MaxPerSource
	if maxPerSource <= 0 {
		maxPerSource = defaultMaxPerSource
	}

	categoryCounts := make(map[string]int)
	sourceCounts := make(map[string]int)
	admitted := make([]scoring.ScoredItem, 0, len(items))

	for _, si := range items {
		category := si.Item.PrimaryCategory()
		source := si.Item.Source.Name

		if category != "" && categoryCounts[category] >= maxPerCategory {
			continue
		}
		if source != "" && sourceCounts[source] >= maxPerSource {
			continue
		}

		if category != "" {
			categoryCounts[category]++
		}
		if source != "" {
			sourceCounts[source]++
		}
		admitted = append(admitted, si)
	}

	return admitted
}
