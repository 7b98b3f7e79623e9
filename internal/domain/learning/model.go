// internal/domain/learning/model.go

package learning

import (
	"context"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
	"feedcore/internal/domain/scoring"
)

// Record pairs a relevance prediction with the engagement that actually
// followed. Records live in a bounded per-user buffer and are not persisted
// long-term.
type Record struct {
	Timestamp       time.Time
	ContentID       string
	Type            content.InteractionType
	PrimaryTopic    string
	PrimaryCategory string
	SourceType      string
	PublishedAt     *time.Time

	// Predicted is the relevance prediction at interaction time, in [0,1].
	Predicted  float64
	Confidence float64
	Factors    scoring.FactorScores

	// Engagement is the observed engagement mapped from the interaction type.
	Engagement float64

	// Satisfaction is the inferred satisfaction heuristic, in [0,1].
	Satisfaction float64
}

// Error returns the signed prediction error (predicted minus observed).
func (r Record) Error() float64 {
	return r.Predicted - r.Engagement
}

// Metrics is the per-user learning management view.
type Metrics struct {
	UserID          string
	RecordCount     int
	CyclesRun       int
	LastCycleAt     time.Time
	OverallAccuracy float64
	MeanAbsError    float64
}

// Patterns captures engagement regularities found during a learning cycle.
type Patterns struct {
	// EngagementByHour maps hour-of-day (0-23) to mean engagement.
	EngagementByHour map[int]float64

	// EngagementBySourceType maps source type to mean engagement.
	EngagementBySourceType map[string]float64
}

// Outcome reports the result of a learning cycle. A declined cycle is a
// normal outcome (Performed false), not an error.
type Outcome struct {
	UserID    string
	Performed bool
	Reason    string

	OverallAccuracy    float64
	TopicAccuracy      map[string]float64
	CategoryAccuracy   map[string]float64
	SourceTypeAccuracy map[string]float64

	// RecencyBias is the mean signed error restricted to content under 24h old.
	RecencyBias float64
	// QualityBias is the mean signed error restricted to records whose
	// quality factor exceeded 0.7.
	QualityBias float64

	Patterns Patterns

	WeightDeltas   profile.ScoringWeights
	AppliedWeights profile.ScoringWeights

	ImprovementPotential float64
	AnalysisConfidence   float64
	CompletedAt          time.Time
}

// Config holds learner tuning. All values have working defaults.
type Config struct {
	// BufferSize bounds the per-user record buffer (FIFO eviction).
	BufferSize int

	// MinRecords is the smallest buffer a learning cycle will run on.
	MinRecords int

	// FeedbackThreshold is the mean absolute error over the last MinRecords
	// records beyond which learning triggers.
	FeedbackThreshold float64

	// AdaptationRate is the magnitude of a single weight nudge.
	AdaptationRate float64

	// PeriodicInterval forces a cycle when this much time passed since the
	// user's last cycle and PeriodicMinRecords records are buffered.
	PeriodicInterval   time.Duration
	PeriodicMinRecords int
}

// DefaultConfig returns the standard learner tuning.
func DefaultConfig() Config {
	return Config{
		BufferSize:         100,
		MinRecords:         10,
		FeedbackThreshold:  0.1,
		AdaptationRate:     0.05,
		PeriodicInterval:   24 * time.Hour,
		PeriodicMinRecords: 20,
	}
}

// Learner defines the interface for the prediction feedback loop
type Learner interface {
	// RecordInteraction snapshots a prediction for the interacted content,
	// pairs it with observed engagement and appends it to the user's buffer.
	RecordInteraction(ctx context.Context, userID string, inter content.Interaction, item content.Item) (*Record, error)

	// ShouldTriggerLearning reports whether a learning cycle is due for userID.
	ShouldTriggerLearning(userID string) bool

	// PerformLearning runs a learning cycle and applies weight adjustments
	// to the user's profile.
	PerformLearning(ctx context.Context, userID string) (*Outcome, error)

	// UserLearningMetrics returns the management view for userID.
	UserLearningMetrics(userID string) Metrics

	// ResetLearningData drops the user's buffer and cycle history.
	ResetLearningData(userID string)

	// Config returns the current learner tuning.
	Config() Config

	// UpdateConfig replaces tunable values; non-positive fields keep their
	// current value.
	UpdateConfig(cfg Config) Config
}
