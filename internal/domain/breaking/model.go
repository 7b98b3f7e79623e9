// internal/domain/breaking/model.go

package breaking

import (
	"context"
	"errors"
	"time"

	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
)

// ErrNilContent is returned when Analyze receives no content.
var ErrNilContent = errors.New("content item is required")

// Priority classifies how urgent a breaking item is
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityNormal   Priority = "normal"
)

// Channel is the delivery channel selected for a notification
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelNone  Channel = "none"
)

// Factors is the per-factor breakdown of a breaking-news analysis.
// Every factor lies in [0,1].
type Factors struct {
	Velocity   float64
	Engagement float64
	Keywords   float64
	Source     float64
	Recency    float64
	Uniqueness float64
}

// Analysis is the urgency assessment of one content item.
type Analysis struct {
	ContentID  string
	Composite  float64
	Factors    Factors
	Priority   Priority
	IsBreaking bool
	AnalyzedAt time.Time
}

// Decision is the per-user notification verdict for an analyzed item.
type Decision struct {
	Notify    bool
	Channel   Channel
	Relevance float64

	// Reason explains a negative decision ("not breaking", "cooldown",
	// "low relevance") or names the selected channel.
	Reason string
}

// Notification is the record the detector keeps of a sent notification.
// Physical delivery belongs to the Notifier collaborator.
type Notification struct {
	ID        string
	UserID    string
	ContentID string
	Title     string
	Message   string
	Channel   Channel
	Priority  Priority
	Topics    []string
	SentAt    time.Time
	Sent      bool
}

// Detector defines the interface for breaking-news detection
type Detector interface {
	// Analyze scores an item for urgency and records it in the rolling
	// per-topic content tracker. Detection is stateful: earlier calls feed
	// the velocity and uniqueness factors of later ones.
	Analyze(ctx context.Context, item *content.Item) (*Analysis, error)

	// ShouldNotifyUser decides whether, and on which channel, to notify the
	// user about an analyzed item. The profile is read-only relevance input.
	ShouldNotifyUser(ctx context.Context, p *profile.Profile, a *Analysis, item *content.Item) (Decision, error)

	// SendNotification builds the notification, records it in the rolling
	// history and hands it to the delivery collaborator.
	SendNotification(ctx context.Context, userID string, item *content.Item, a *Analysis, d Decision) (*Notification, error)
}

// Notifier is the delivery boundary. The detector only decides and records;
// transport lives behind this interface.
type Notifier interface {
	Deliver(ctx context.Context, n Notification) error
}
