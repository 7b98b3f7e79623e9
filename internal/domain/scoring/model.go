// internal/domain/scoring/model.go

package scoring

import (
	"context"
	"errors"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
)

// ErrNilContent is returned when a scoring entry point receives no content.
var ErrNilContent = errors.New("content item is required")

// FactorScores is the per-factor breakdown of a relevance computation.
// Every factor lies in [0,1].
type FactorScores struct {
	Topic      float64
	Category   float64
	SourceType float64
	Recency    float64
	Quality    float64
}

// Relevance is the outcome of scoring one content item against one profile.
type Relevance struct {
	ContentID string

	// Score is the composite relevance normalized to 0-100.
	Score int

	// Raw is the weighted composite before normalization, in [0,1].
	Raw float64

	// Confidence estimates how much history backs the prediction, in [0,1].
	Confidence float64

	Factors  FactorScores
	ScoredAt time.Time
}

// ScoredItem pairs a content item with its computed relevance.
type ScoredItem struct {
	Item      content.Item
	Relevance Relevance
}

// RankOptions controls ScoreAndRankContent behavior.
type RankOptions struct {
	// Diversify enables the per-category / per-source caps below.
	Diversify bool

	// MaxPerCategory caps admitted items sharing a primary category. Zero
	// means the default cap.
	MaxPerCategory int

	// MaxPerSource caps admitted items sharing a source name. Zero means
	// the default cap.
	MaxPerSource int

	// Limit truncates the ranked list when positive.
	Limit int
}

// RankResult is a ranked list plus batch bookkeeping. Failed counts items
// whose scoring failed; such failures never abort the batch.
type RankResult struct {
	Items  []ScoredItem
	Failed int
}

// Scorer defines the interface for relevance scoring and ranking
type Scorer interface {
	// ScoreContent computes the multi-factor relevance of item for p.
	ScoreContent(ctx context.Context, p *profile.Profile, item *content.Item) (Relevance, error)

	// ScoreAndRankContent scores every item, sorts descending by composite
	// score and optionally diversifies. Per-item failures are isolated.
	ScoreAndRankContent(ctx context.Context, p *profile.Profile, items []content.Item, opts RankOptions) (*RankResult, error)
}
