// internal/domain/content/interaction.go

package content

import "time"

// InteractionType classifies how a user engaged with a content item
type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionSave    InteractionType = "save"
	InteractionShare   InteractionType = "share"
	InteractionLike    InteractionType = "like"
	InteractionComment InteractionType = "comment"
	InteractionClick   InteractionType = "click"
	InteractionDismiss InteractionType = "dismiss"
	InteractionDislike InteractionType = "dislike"
	InteractionReport  InteractionType = "report"
)

// Interaction represents a single user engagement event
type Interaction struct {
	UserID          string
	ContentID       string
	Type            InteractionType
	DurationSeconds int
	ScrollDepth     float64
	Timestamp       time.Time
}

// IsPositive reports whether the interaction is a positive interest signal.
// Unrecognized types fall through to the positive arm: an unknown event is
// assumed to reflect engagement, not rejection.
func (t InteractionType) IsPositive() bool {
	switch t {
	case InteractionDismiss, InteractionDislike, InteractionReport:
		return false
	case InteractionView, InteractionSave, InteractionShare,
		InteractionLike, InteractionComment, InteractionClick:
		return true
	default:
		return true
	}
}

// Strength returns the magnitude of the interest-weight adjustment this
// interaction carries, independent of sign.
func (t InteractionType) Strength() float64 {
	switch t {
	case InteractionView:
		return 0.1
	case InteractionSave:
		return 0.8
	case InteractionShare:
		return 0.9
	case InteractionDismiss:
		return 0.5
	case InteractionLike:
		return 0.7
	case InteractionComment:
		return 0.6
	case InteractionClick:
		return 0.3
	case InteractionDislike:
		return 0.6
	case InteractionReport:
		return 0.8
	default:
		return 0.1
	}
}

// EngagementLevel maps the interaction to an observed engagement value in
// [0,1], used as ground truth when comparing against predicted relevance.
func (t InteractionType) EngagementLevel() float64 {
	switch t {
	case InteractionDismiss, InteractionDislike, InteractionReport:
		return 0
	case InteractionView:
		return 0.2
	case InteractionClick:
		return 0.4
	case InteractionLike:
		return 0.7
	case InteractionSave:
		return 0.8
	case InteractionShare:
		return 0.9
	case InteractionComment:
		return 0.8
	default:
		return 0.3
	}
}
