// internal/service/learning/learner.go

package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/learning"
	"feedcore/internal/domain/profile"
	"feedcore/internal/domain/scoring"
)

// Bias magnitudes beyond this trigger a corrective weight nudge.
const biasThreshold = 0.2

// Group accuracy boundaries for weight adaptation.
const (
	lowAccuracy  = 0.7
	highAccuracy = 0.9
)

// Learner implements the learning.Learner interface. Buffers are process
// local and bounded; only weight adjustments reach the profile store.
type Learner struct {
	store    profile.Store
	scorer   scoring.Scorer
	eventBus *nats.Conn
	topic    string

	mu    sync.RWMutex
	cfg   learning.Config
	users map[string]*userState
	now   func() time.Time
}

var _ learning.Learner = (*Learner)(nil)

type userState struct {
	records      []learning.Record
	cyclesRun    int
	lastCycleAt  time.Time
	lastAccuracy float64
}

// NewLearner creates a new interaction learner. eventBus may be nil; cycle
// events are then not published.
func NewLearner(store profile.Store, scorer scoring.Scorer, eventBus *nats.Conn, topic string) *Learner {
	if topic == "" {
		topic = "learning"
	}
	return &Learner{
		store:    store,
		scorer:   scorer,
		eventBus: eventBus,
		topic:    topic,
		cfg:      learning.DefaultConfig(),
		users:    make(map[string]*userState),
		now:      time.Now,
	}
}

// WithClock overrides the learner's clock. Intended for tests.
func (l *Learner) WithClock(now func() time.Time) *Learner {
	l.now = now
	return l
}

// RecordInteraction snapshots a relevance prediction for the content, pairs
// it with the observed engagement and appends it to the user's buffer.
func (l *Learner) RecordInteraction(ctx context.Context, userID string, inter content.Interaction, item content.Item) (*learning.Record, error) {
	p, err := l.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for learning: %w", err)
	}

	rel, err := l.scorer.ScoreContent(ctx, p, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot prediction: %w", err)
	}

	rec := learning.Record{
		Timestamp:       l.now(),
		ContentID:       item.ID,
		Type:            inter.Type,
		PrimaryTopic:    item.PrimaryTopic(),
		PrimaryCategory: item.PrimaryCategory(),
		SourceType:      item.SourceType,
		PublishedAt:     item.PublishedAt,
		Predicted:       rel.Raw,
		Confidence:      rel.Confidence,
		Factors:         rel.Factors,
		Engagement:      inter.Type.EngagementLevel(),
		Satisfaction:    Satisfaction(inter),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.userState(userID)
	state.records = append(state.records, rec)
	if excess := len(state.records) - l.cfg.BufferSize; excess > 0 {
		state.records = state.records[excess:]
	}

	return &rec, nil
}

// Satisfaction infers a satisfaction value in [0,1] from the interaction.
// Positive types start at 0.8, negative at 0.2; dwell time below 10s lowers
// and above 60s raises the estimate by 0.2. Total: always returns a value.
func Satisfaction(inter content.Interaction) float64 {
	s := 0.2
	if inter.Type.IsPositive() {
		s = 0.8
	}

	if inter.DurationSeconds > 0 {
		if inter.DurationSeconds < 10 {
			s -= 0.2
		} else if inter.DurationSeconds >= 60 {
			s += 0.2
		}
	}

	return math.Min(math.Max(s, 0), 1)
}

// ShouldTriggerLearning reports whether a learning cycle is due.
func (l *Learner) ShouldTriggerLearning(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state, ok := l.users[userID]
	if !ok || len(state.records) < l.cfg.MinRecords {
		return false
	}

	recent := state.records[len(state.records)-l.cfg.MinRecords:]
	if meanAbsError(recent) > l.cfg.FeedbackThreshold {
		return true
	}

	if len(state.records) >= l.cfg.PeriodicMinRecords &&
		l.now().Sub(state.lastCycleAt) >= l.cfg.PeriodicInterval {
		return true
	}

	return false
}

// PerformLearning analyzes the user's prediction errors and applies bounded
// weight adjustments to the user's profile. A buffer below the minimum is a
// declined outcome, not an error.
func (l *Learner) PerformLearning(ctx context.Context, userID string) (*learning.Outcome, error) {
	l.mu.Lock()
	state := l.userState(userID)
	records := make([]learning.Record, len(state.records))
	copy(records, state.records)
	cfg := l.cfg
	l.mu.Unlock()

	now := l.now()
	if len(records) < cfg.MinRecords {
		return &learning.Outcome{
			UserID:      userID,
			Performed:   false,
			Reason:      "insufficient data",
			CompletedAt: now,
		}, nil
	}

	p, err := l.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for learning: %w", err)
	}

	outcome := &learning.Outcome{
		UserID:             userID,
		Performed:          true,
		OverallAccuracy:    overallAccuracy(records),
		TopicAccuracy:      groupAccuracy(records, func(r learning.Record) string { return r.PrimaryTopic }),
		CategoryAccuracy:   groupAccuracy(records, func(r learning.Record) string { return r.PrimaryCategory }),
		SourceTypeAccuracy: groupAccuracy(records, func(r learning.Record) string { return r.SourceType }),
		RecencyBias:        recencyBias(records),
		QualityBias:        qualityBias(records),
		Patterns:           detectPatterns(records),
		CompletedAt:        now,
	}

	outcome.WeightDeltas = l.weightDeltas(outcome, cfg.AdaptationRate)
	applied := profile.ScoringWeights{
		TopicMatch:      p.ScoringWeights.TopicMatch + outcome.WeightDeltas.TopicMatch,
		CategoryMatch:   p.ScoringWeights.CategoryMatch + outcome.WeightDeltas.CategoryMatch,
		SourceTypeMatch: p.ScoringWeights.SourceTypeMatch + outcome.WeightDeltas.SourceTypeMatch,
		Recency:         p.ScoringWeights.Recency + outcome.WeightDeltas.Recency,
		Quality:         p.ScoringWeights.Quality + outcome.WeightDeltas.Quality,
	}.Clamped()
	outcome.AppliedWeights = applied

	outcome.ImprovementPotential = math.Max((0.95-outcome.OverallAccuracy)/0.95, 0)
	outcome.AnalysisConfidence = analysisConfidence(records, outcome)

	p.ScoringWeights = applied
	p.UpdatedAt = now
	if err := l.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save adjusted weights: %w", err)
	}

	l.mu.Lock()
	state = l.userState(userID)
	state.cyclesRun++
	state.lastCycleAt = now
	state.lastAccuracy = outcome.OverallAccuracy
	l.mu.Unlock()

	l.publishOutcome(outcome)

	return outcome, nil
}

// UserLearningMetrics returns the management view for userID.
func (l *Learner) UserLearningMetrics(userID string) learning.Metrics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m := learning.Metrics{UserID: userID}
	state, ok := l.users[userID]
	if !ok {
		return m
	}

	m.RecordCount = len(state.records)
	m.CyclesRun = state.cyclesRun
	m.LastCycleAt = state.lastCycleAt
	m.OverallAccuracy = state.lastAccuracy

	window := state.records
	if len(window) > l.cfg.MinRecords {
		window = window[len(window)-l.cfg.MinRecords:]
	}
	m.MeanAbsError = meanAbsError(window)

	return m
}

// EngagedTopics returns the topics of buffered records carrying positive
// engagement, most recent last, with repetition. Consumed by focus-area
// suggestion.
func (l *Learner) EngagedTopics(userID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state, ok := l.users[userID]
	if !ok {
		return nil
	}

	var topics []string
	for _, r := range state.records {
		if r.PrimaryTopic == "" || !r.Type.IsPositive() {
			continue
		}
		topics = append(topics, r.PrimaryTopic)
	}
	return topics
}

// ResetLearningData drops the user's buffer and cycle history.
func (l *Learner) ResetLearningData(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, userID)
}

// Config returns the current learner tuning.
func (l *Learner) Config() learning.Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// UpdateConfig replaces tunable values. Non-positive fields keep their
// current value.
func (l *Learner) UpdateConfig(cfg learning.Config) learning.Config {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg.BufferSize > 0 {
		l.cfg.BufferSize = cfg.BufferSize
	}
	if cfg.MinRecords > 0 {
		l.cfg.MinRecords = cfg.MinRecords
	}
	if cfg.FeedbackThreshold > 0 {
		l.cfg.FeedbackThreshold = cfg.FeedbackThreshold
	}
	if cfg.AdaptationRate > 0 {
		l.cfg.AdaptationRate = cfg.AdaptationRate
	}
	if cfg.PeriodicInterval > 0 {
		l.cfg.PeriodicInterval = cfg.PeriodicInterval
	}
	if cfg.PeriodicMinRecords > 0 {
		l.cfg.PeriodicMinRecords = cfg.PeriodicMinRecords
	}

	return l.cfg
}

// userState returns the state for userID, creating it if absent. Callers
// must hold the write lock.
func (l *Learner) userState(userID string) *userState {
	state, ok := l.users[userID]
	if !ok {
		state = &userState{}
		l.users[userID] = state
	}
	return state
}

// weightDeltas derives bounded weight nudges from per-dimension accuracy and
// systematic biases. Low accuracy lowers the dimension's weight, high
// accuracy raises it; a bias beyond the threshold nudges the recency or
// quality weight against the bias sign.
func (l *Learner) weightDeltas(o *learning.Outcome, rate float64) profile.ScoringWeights {
	var d profile.ScoringWeights

	d.TopicMatch = accuracyDelta(meanAccuracy(o.TopicAccuracy), rate)
	d.CategoryMatch = accuracyDelta(meanAccuracy(o.CategoryAccuracy), rate)
	d.SourceTypeMatch = accuracyDelta(meanAccuracy(o.SourceTypeAccuracy), rate)

	if o.RecencyBias > biasThreshold {
		d.Recency = -rate
	} else if o.RecencyBias < -biasThreshold {
		d.Recency = rate
	}

	if o.QualityBias > biasThreshold {
		d.Quality = -rate
	} else if o.QualityBias < -biasThreshold {
		d.Quality = rate
	}

	return d
}

func accuracyDelta(accuracy, rate float64) float64 {
	switch {
	case accuracy == 0:
		return 0
	case accuracy < lowAccuracy:
		return -rate
	case accuracy > highAccuracy:
		return rate
	default:
		return 0
	}
}

func meanAccuracy(groups map[string]float64) float64 {
	if len(groups) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range groups {
		sum += v
	}
	return sum / float64(len(groups))
}

func overallAccuracy(records []learning.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += 1 - math.Abs(r.Error())
	}
	return sum / float64(len(records))
}

func meanAbsError(records []learning.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += math.Abs(r.Error())
	}
	return sum / float64(len(records))
}

func groupAccuracy(records []learning.Record, key func(learning.Record) string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		sums[k] += 1 - math.Abs(r.Error())
		counts[k]++
	}

	accuracy := make(map[string]float64, len(sums))
	for k, sum := range sums {
		accuracy[k] = sum / float64(counts[k])
	}
	return accuracy
}

// recencyBias is the mean signed error restricted to content that was under
// 24h old when the interaction happened.
func recencyBias(records []learning.Record) float64 {
	sum := 0.0
	n := 0
	for _, r := range records {
		if r.PublishedAt == nil {
			continue
		}
		if r.Timestamp.Sub(*r.PublishedAt) < 24*time.Hour {
			sum += r.Error()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// qualityBias is the mean signed error restricted to records whose quality
// factor exceeded 0.7.
func qualityBias(records []learning.Record) float64 {
	sum := 0.0
	n := 0
	for _, r := range records {
		if r.Factors.Quality > 0.7 {
			sum += r.Error()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func detectPatterns(records []learning.Record) learning.Patterns {
	hourSums := make(map[int]float64)
	hourCounts := make(map[int]int)
	sourceSums := make(map[string]float64)
	sourceCounts := make(map[string]int)

	for _, r := range records {
		hour := r.Timestamp.Hour()
		hourSums[hour] += r.Engagement
		hourCounts[hour]++

		if r.SourceType != "" {
			sourceSums[r.SourceType] += r.Engagement
			sourceCounts[r.SourceType]++
		}
	}

	p := learning.Patterns{
		EngagementByHour:       make(map[int]float64, len(hourSums)),
		EngagementBySourceType: make(map[string]float64, len(sourceSums)),
	}
	for h, sum := range hourSums {
		p.EngagementByHour[h] = sum / float64(hourCounts[h])
	}
	for s, sum := range sourceSums {
		p.EngagementBySourceType[s] = sum / float64(sourceCounts[s])
	}
	return p
}

// analysisConfidence combines data volume, interest diversity and error
// consistency into a confidence estimate capped at 1.
func analysisConfidence(records []learning.Record, o *learning.Outcome) float64 {
	volume := math.Min(float64(len(records))/50, 1) * 0.4
	diversity := math.Min(float64(len(o.TopicAccuracy))/5, 1)*0.15 +
		math.Min(float64(len(o.CategoryAccuracy))/5, 1)*0.15

	mean := 0.0
	for _, r := range records {
		mean += r.Error()
	}
	mean /= float64(len(records))

	variance := 0.0
	for _, r := range records {
		variance += (r.Error() - mean) * (r.Error() - mean)
	}
	variance /= float64(len(records))
	consistency := (1 - math.Min(math.Sqrt(variance)*2, 1)) * 0.3

	return math.Min(volume+diversity+consistency, 1)
}

// publishOutcome announces an applied learning cycle on the event bus.
func (l *Learner) publishOutcome(o *learning.Outcome) {
	if l.eventBus == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id":          o.UserID,
		"overall_accuracy": o.OverallAccuracy,
		"applied_weights":  o.AppliedWeights,
		"completed_at":     o.CompletedAt,
	})
	if err != nil {
		return
	}

	subject := fmt.Sprintf("%s.applied", l.topic)
	// Best effort: a publish failure never fails the learning cycle.
	_ = l.eventBus.Publish(subject, payload)
}
