// internal/service/scoring/scorer_test.go

package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
	"feedcore/internal/domain/scoring"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testProfile() *profile.Profile {
	return &profile.Profile{
		UserID: "u1",
		Topics: []profile.InterestEntry{
			{Name: "AI", Weight: 0.8, InteractionCount: 30},
			{Name: "Climate", Weight: 0.5, InteractionCount: 10},
		},
		Categories: []profile.InterestEntry{
			{Name: "technology", Weight: 0.7, InteractionCount: 20},
		},
		SourceTypes: []profile.InterestEntry{
			{Name: "news", Weight: 0.6, InteractionCount: 15},
		},
		ScoringWeights: profile.DefaultScoringWeights(),
	}
}

func publishedAt(t time.Time) *time.Time { return &t }

func TestScoreContentNilItem(t *testing.T) {
	s := NewScorer()
	_, err := s.ScoreContent(context.Background(), testProfile(), nil)
	if !errors.Is(err, scoring.ErrNilContent) {
		t.Fatalf("error = %v, want ErrNilContent", err)
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{-0.5, 0},
		{0, 0},
		{0.25, 25},
		{0.5, 50},
		{0.999, 100},
		{1, 100},
		{1.7, 100},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.raw); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestScoreContentMatchingItemScoresHigh(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })

	item := &content.Item{
		ID:          "c1",
		Title:       "New AI model released",
		Body:        "A longer body with enough words to matter for the quality factor.",
		Topics:      []string{"AI"},
		Categories:  []string{"technology"},
		SourceType:  "news",
		PublishedAt: publishedAt(baseTime.Add(-2 * time.Hour)),
		Source:      content.Source{Name: "Reuters", CredibilityScore: 0.95},
	}

	rel, err := s.ScoreContent(context.Background(), testProfile(), item)
	if err != nil {
		t.Fatalf("ScoreContent: %v", err)
	}

	// Single matched topic at 0.8 plus full coverage bonus caps at 1.
	if rel.Factors.Topic != 1.0 {
		t.Errorf("topic factor = %v, want 1.0", rel.Factors.Topic)
	}
	if rel.Factors.Category != 0.7 {
		t.Errorf("category factor = %v, want 0.7", rel.Factors.Category)
	}
	if rel.Factors.SourceType != 0.6 {
		t.Errorf("source type factor = %v, want 0.6", rel.Factors.SourceType)
	}
	if rel.Factors.Recency != 1.0 {
		t.Errorf("recency factor = %v, want 1.0 for a 2h-old item", rel.Factors.Recency)
	}
	if rel.Score <= 50 {
		t.Errorf("score = %d, want > 50 for a strongly matching item", rel.Score)
	}
	if rel.Confidence <= 0.5 || rel.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0.5, 1]", rel.Confidence)
	}
}

func TestTopicCoverageBonus(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })

	// One of two topics matched: mean 0.8 plus half-coverage bonus 0.1.
	item := &content.Item{ID: "c1", Topics: []string{"AI", "Machine Learning"}}
	rel, err := s.ScoreContent(context.Background(), testProfile(), item)
	if err != nil {
		t.Fatalf("ScoreContent: %v", err)
	}
	if math.Abs(rel.Factors.Topic-0.9) > 1e-9 {
		t.Errorf("topic factor = %v, want 0.9", rel.Factors.Topic)
	}
	if rel.Factors.Topic <= 0.7 {
		t.Errorf("topic factor = %v, want > 0.7 with bonus", rel.Factors.Topic)
	}
}

func TestScoreContentUnknownInterestsScoreZeroFactors(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })

	item := &content.Item{
		ID:         "c1",
		Topics:     []string{"Gardening"},
		Categories: []string{"lifestyle"},
	}

	rel, err := s.ScoreContent(context.Background(), testProfile(), item)
	if err != nil {
		t.Fatalf("ScoreContent: %v", err)
	}
	if rel.Factors.Topic != 0 {
		t.Errorf("topic factor = %v, want 0 for unmatched topics", rel.Factors.Topic)
	}
	if rel.Factors.Category != 0 {
		t.Errorf("category factor = %v, want 0 for unmatched categories", rel.Factors.Category)
	}
}

func TestRecencySteps(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })
	ctx := context.Background()
	p := testProfile()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"hours old", 3 * time.Hour, 1.0},
		{"days old", 3 * 24 * time.Hour, 0.9},
		{"weeks old", 20 * 24 * time.Hour, 0.7},
		{"two months old", 61 * 24 * time.Hour, 0.5},
		{"years old", 400 * 24 * time.Hour, 0.2},
	}
	for _, tt := range tests {
		item := &content.Item{ID: "c", PublishedAt: publishedAt(baseTime.Add(-tt.age))}
		rel, err := s.ScoreContent(ctx, p, item)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if rel.Factors.Recency != tt.want {
			t.Errorf("%s: recency = %v, want %v", tt.name, rel.Factors.Recency, tt.want)
		}
	}

	// No publish date is neutral, not penalized.
	rel, err := s.ScoreContent(ctx, p, &content.Item{ID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if rel.Factors.Recency != 0.5 {
		t.Errorf("undated recency = %v, want 0.5", rel.Factors.Recency)
	}
}

func TestLengthPreference(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{0, 0},
		{150, 0.5},
		{300, 1},
		{2000, 1},
		{6000, 0.5},
		{50000, 0.3},
	}
	for _, tt := range tests {
		if got := lengthPreference(tt.words); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("lengthPreference(%d) = %v, want %v", tt.words, got, tt.want)
		}
	}
}

func TestScoreAndRankContentOrdersDescending(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })
	p := testProfile()

	items := []content.Item{
		{ID: "weak", Topics: []string{"Gardening"}},
		{ID: "strong", Topics: []string{"AI"}, Categories: []string{"technology"},
			PublishedAt: publishedAt(baseTime.Add(-time.Hour))},
		{ID: "medium", Topics: []string{"Climate"},
			PublishedAt: publishedAt(baseTime.Add(-time.Hour))},
	}

	result, err := s.ScoreAndRankContent(context.Background(), p, items, scoring.RankOptions{})
	if err != nil {
		t.Fatalf("ScoreAndRankContent: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(result.Items))
	}
	if result.Items[0].Item.ID != "strong" {
		t.Errorf("first item = %s, want strong", result.Items[0].Item.ID)
	}
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i].Relevance.Score > result.Items[i-1].Relevance.Score {
			t.Errorf("items not sorted descending at index %d", i)
		}
	}
}

func TestScoreAndRankContentLimit(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })

	items := make([]content.Item, 10)
	for i := range items {
		items[i] = content.Item{ID: "c", Topics: []string{"AI"}}
	}

	result, err := s.ScoreAndRankContent(context.Background(), testProfile(), items, scoring.RankOptions{Limit: 4})
	if err != nil {
		t.Fatalf("ScoreAndRankContent: %v", err)
	}
	if len(result.Items) != 4 {
		t.Errorf("items = %d, want 4", len(result.Items))
	}
}

func TestDiversifyCapsCategoryAndSource(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })
	p := testProfile()

	items := []content.Item{
		{ID: "t1", Topics: []string{"AI"}, Categories: []string{"technology"}, Source: content.Source{Name: "A"}},
		{ID: "t2", Topics: []string{"AI"}, Categories: []string{"technology"}, Source: content.Source{Name: "B"}},
		{ID: "t3", Topics: []string{"AI"}, Categories: []string{"technology"}, Source: content.Source{Name: "C"}},
		{ID: "other", Topics: []string{"Climate"}, Categories: []string{"science"}, Source: content.Source{Name: "D"}},
	}

	result, err := s.ScoreAndRankContent(context.Background(), p, items, scoring.RankOptions{
		Diversify:      true,
		MaxPerCategory: 2,
	})
	if err != nil {
		t.Fatalf("ScoreAndRankContent: %v", err)
	}

	techCount := 0
	otherSeen := false
	for _, si := range result.Items {
		if si.Item.PrimaryCategory() == "technology" {
			techCount++
		}
		if si.Item.ID == "other" {
			otherSeen = true
		}
	}
	if techCount != 2 {
		t.Errorf("technology items = %d, want capped at 2", techCount)
	}
	if !otherSeen {
		t.Error("diversification dropped the off-category item")
	}

	sourceItems := []content.Item{
		{ID: "s1", Topics: []string{"AI"}, Source: content.Source{Name: "Same"}},
		{ID: "s2", Topics: []string{"AI"}, Source: content.Source{Name: "Same"}},
		{ID: "s3", Topics: []string{"AI"}, Source: content.Source{Name: "Same"}},
	}
	result, err = s.ScoreAndRankContent(context.Background(), p, sourceItems, scoring.RankOptions{
		Diversify:    true,
		MaxPerSource: 2,
	})
	if err != nil {
		t.Fatalf("ScoreAndRankContent: %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("same-source items = %d, want capped at 2", len(result.Items))
	}
}

func TestConfidenceGrowsWithHistory(t *testing.T) {
	s := NewScorer().WithClock(func() time.Time { return baseTime })
	ctx := context.Background()

	item := &content.Item{ID: "c1", Topics: []string{"AI"}}

	cold := &profile.Profile{UserID: "new", ScoringWeights: profile.DefaultScoringWeights()}
	warm := testProfile()

	coldRel, err := s.ScoreContent(ctx, cold, item)
	if err != nil {
		t.Fatal(err)
	}
	warmRel, err := s.ScoreContent(ctx, warm, item)
	if err != nil {
		t.Fatal(err)
	}

	if warmRel.Confidence <= coldRel.Confidence {
		t.Errorf("confidence did not grow with history: cold=%v warm=%v",
			coldRel.Confidence, warmRel.Confidence)
	}
}
