// internal/service/breaking/detector.go

package breaking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedcore/internal/domain/breaking"
	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
)

// DetectorConfig contains configuration for the breaking-news detector
type DetectorConfig struct {
	// BreakingThreshold is the composite score at or above which an item
	// counts as breaking.
	BreakingThreshold float64

	// CooldownPeriod suppresses repeat notifications for overlapping topics.
	CooldownPeriod time.Duration

	// TrackerWindow is the rolling window for topic occurrence tracking.
	TrackerWindow time.Duration

	// HistoryWindow is the rolling window for per-user notification history.
	HistoryWindow time.Duration

	// MinRelevance gates notifications on user interest.
	MinRelevance float64
}

// DefaultDetectorConfig returns the standard detector tuning.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		BreakingThreshold: 0.7,
		CooldownPeriod:    30 * time.Minute,
		TrackerWindow:     24 * time.Hour,
		HistoryWindow:     7 * 24 * time.Hour,
		MinRelevance:      0.3,
	}
}

// Composite factor weights. Fixed: urgency weighting is not personalized.
var factorWeights = struct {
	velocity, engagement, keywords, source, recency, uniqueness float64
}{0.25, 0.2, 0.2, 0.15, 0.15, 0.05}

// Tiered breaking-news lexicon. Hits are weighted by severity class.
var keywordTiers = []struct {
	weight float64
	words  []string
}{
	{0.4, []string{"breaking", "urgent", "emergency", "alert", "just in"}},
	{0.25, []string{"developing", "exclusive", "confirmed", "live", "update"}},
	{0.15, []string{"report", "announcement", "statement", "official"}},
}

// multiMatchBonus is added per keyword hit beyond the first.
const multiMatchBonus = 0.1

// sourceCredibility rates well-known outlets. Unlisted sources fall back to
// the item's own credibility field, then to a neutral 0.5.
var sourceCredibility = map[string]float64{
	"reuters":             0.95,
	"associated press":    0.95,
	"ap news":             0.95,
	"bbc":                 0.9,
	"bbc news":            0.9,
	"bloomberg":           0.9,
	"the new york times":  0.85,
	"the washington post": 0.85,
	"the guardian":        0.85,
	"npr":                 0.85,
	"al jazeera":          0.8,
	"cnn":                 0.75,
	"financial times":     0.85,
}

type trackedItem struct {
	at     time.Time
	topics []string
}

// Detector implements the breaking.Detector interface. The per-topic content
// tracker and per-user notification history make detection stateful: the
// score of an item depends on what was analyzed before it.
type Detector struct {
	config   DetectorConfig
	notifier breaking.Notifier

	mu      sync.Mutex
	tracker map[string][]trackedItem
	history map[string][]breaking.Notification

	now func() time.Time
}

var _ breaking.Detector = (*Detector)(nil)

// NewDetector creates a new breaking-news detector
func NewDetector(notifier breaking.Notifier, config DetectorConfig) *Detector {
	if config.BreakingThreshold == 0 {
		config = DefaultDetectorConfig()
	}
	return &Detector{
		config:   config,
		notifier: notifier,
		tracker:  make(map[string][]trackedItem),
		history:  make(map[string][]breaking.Notification),
		now:      time.Now,
	}
}

// WithClock overrides the detector's clock. Intended for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Analyze scores an item for urgency and appends it to the rolling tracker.
func (d *Detector) Analyze(ctx context.Context, item *content.Item) (*breaking.Analysis, error) {
	if item == nil {
		return nil, breaking.ErrNilContent
	}

	now := d.now()

	d.mu.Lock()
	d.pruneTracker(now)
	factors := breaking.Factors{
		Velocity:   d.velocityScore(item, now),
		Engagement: engagementScore(item, now),
		Keywords:   keywordScore(item),
		Source:     sourceScore(item),
		Recency:    recencyScore(item, now),
		Uniqueness: d.uniquenessScore(item, now),
	}
	d.track(item, now)
	d.mu.Unlock()

	composite := factors.Velocity*factorWeights.velocity +
		factors.Engagement*factorWeights.engagement +
		factors.Keywords*factorWeights.keywords +
		factors.Source*factorWeights.source +
		factors.Recency*factorWeights.recency +
		factors.Uniqueness*factorWeights.uniqueness

	return &breaking.Analysis{
		ContentID:  item.ID,
		Composite:  composite,
		Factors:    factors,
		Priority:   derivePriority(composite, factors),
		IsBreaking: composite >= d.config.BreakingThreshold,
		AnalyzedAt: now,
	}, nil
}

// ShouldNotifyUser evaluates the notification decision procedure in order:
// breaking gate, per-topic cooldown, relevance gate, channel selection.
func (d *Detector) ShouldNotifyUser(ctx context.Context, p *profile.Profile, a *breaking.Analysis, item *content.Item) (breaking.Decision, error) {
	if a == nil || item == nil {
		return breaking.Decision{}, breaking.ErrNilContent
	}

	if !a.IsBreaking {
		return breaking.Decision{Notify: false, Channel: breaking.ChannelNone, Reason: "not breaking"}, nil
	}

	if p != nil && d.inCooldown(p.UserID, item.Topics) {
		return breaking.Decision{Notify: false, Channel: breaking.ChannelNone, Reason: "cooldown active"}, nil
	}

	relevance := userRelevance(p, item)
	if relevance < d.config.MinRelevance {
		return breaking.Decision{
			Notify:    false,
			Channel:   breaking.ChannelNone,
			Relevance: relevance,
			Reason:    "low relevance",
		}, nil
	}

	channel := breaking.ChannelNone
	switch {
	case a.Priority == breaking.PriorityCritical && relevance >= 0.7:
		channel = breaking.ChannelPush
	case a.Priority == breaking.PriorityHigh && relevance >= 0.5:
		channel = breaking.ChannelEmail
	case relevance >= 0.6:
		channel = breaking.ChannelInApp
	}

	if channel == breaking.ChannelNone {
		return breaking.Decision{
			Notify:    false,
			Channel:   breaking.ChannelNone,
			Relevance: relevance,
			Reason:    "below channel thresholds",
		}, nil
	}

	return breaking.Decision{
		Notify:    true,
		Channel:   channel,
		Relevance: relevance,
		Reason:    string(channel),
	}, nil
}

// SendNotification builds the notification, records it in the rolling
// history and hands it to the delivery collaborator. Delivery transport
// failures are wrapped and surfaced; the record is kept either way.
func (d *Detector) SendNotification(ctx context.Context, userID string, item *content.Item, a *breaking.Analysis, decision breaking.Decision) (*breaking.Notification, error) {
	if item == nil || a == nil {
		return nil, breaking.ErrNilContent
	}

	now := d.now()
	n := breaking.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		ContentID: item.ID,
		Title:     notificationTitle(a.Priority, item.Title),
		Message:   truncate(firstNonEmpty(item.Description, item.Body, item.Title), 100),
		Channel:   decision.Channel,
		Priority:  a.Priority,
		Topics:    item.Topics,
		SentAt:    now,
	}

	err := d.notifier.Deliver(ctx, n)
	if err == nil {
		n.Sent = true
	}

	d.mu.Lock()
	d.pruneHistory(userID, now)
	d.history[userID] = append(d.history[userID], n)
	d.mu.Unlock()

	if err != nil {
		return &n, fmt.Errorf("failed to deliver notification: %w", err)
	}
	return &n, nil
}

// NotificationHistory returns the user's notifications within the rolling window.
func (d *Detector) NotificationHistory(userID string) []breaking.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pruneHistory(userID, d.now())
	out := make([]breaking.Notification, len(d.history[userID]))
	copy(out, d.history[userID])
	return out
}

// velocityScore rates how fast the item's primary topic is occurring.
// Callers must hold d.mu.
func (d *Detector) velocityScore(item *content.Item, now time.Time) float64 {
	topic := item.PrimaryTopic()
	if topic == "" {
		return 0
	}

	count := 0
	for _, t := range d.tracker[normalizeTopic(topic)] {
		if now.Sub(t.at) <= time.Hour {
			count++
		}
	}

	switch {
	case count >= 10:
		return 1.0
	case count >= 5:
		return 0.8
	case count >= 3:
		return 0.6
	default:
		return float64(count) / 3 * 0.6
	}
}

// engagementScore rates interactions accumulated per hour of item age
// against the 200/500/1000 thresholds.
func engagementScore(item *content.Item, now time.Time) float64 {
	age, ok := item.Age(now)
	if !ok {
		return 0
	}
	hours := math.Max(age.Hours(), 0.25)

	total := float64(item.Metrics.Views + item.Metrics.Likes +
		item.Metrics.Shares + item.Metrics.Comments)
	rate := total / hours

	switch {
	case rate >= 1000:
		return 1.0
	case rate >= 500:
		return 0.8
	case rate >= 200:
		return 0.6
	default:
		return rate / 200 * 0.6
	}
}

// keywordScore rates hits against the tiered breaking-news lexicon plus a
// bonus per hit beyond the first, capped at 1.
func keywordScore(item *content.Item) float64 {
	text := item.Text()

	score := 0.0
	matches := 0
	for _, tier := range keywordTiers {
		for _, word := range tier.words {
			if strings.Contains(text, word) {
				score += tier.weight
				matches++
			}
		}
	}

	if matches > 1 {
		score += float64(matches-1) * multiMatchBonus
	}

	return math.Min(score, 1)
}

// sourceScore looks the source up in the credibility table, then falls back
// to the item's own credibility field, then to a neutral 0.5.
func sourceScore(item *content.Item) float64 {
	if c, ok := sourceCredibility[strings.ToLower(item.Source.Name)]; ok {
		return c
	}
	if item.Source.CredibilityScore > 0 {
		return math.Min(item.Source.CredibilityScore, 1)
	}
	return 0.5
}

// recencyScore is a tighter step function than feed ranking uses: breaking
// value evaporates within hours.
func recencyScore(item *content.Item, now time.Time) float64 {
	age, ok := item.Age(now)
	if !ok {
		if item.CreatedAt.IsZero() {
			return 0.1
		}
		age = now.Sub(item.CreatedAt)
	}

	switch {
	case age <= 15*time.Minute:
		return 1.0
	case age <= 60*time.Minute:
		return 0.8
	case age <= 240*time.Minute:
		return 0.6
	case age <= 1440*time.Minute:
		return 0.3
	default:
		return 0.1
	}
}

// uniquenessScore is 1 when the primary topic has no 4h history, otherwise
// one minus the mean topic-set Jaccard similarity against recent items.
// Callers must hold d.mu.
func (d *Detector) uniquenessScore(item *content.Item, now time.Time) float64 {
	topic := item.PrimaryTopic()
	if topic == "" {
		return 1.0
	}

	sum := 0.0
	n := 0
	for _, t := range d.tracker[normalizeTopic(topic)] {
		if now.Sub(t.at) > 4*time.Hour {
			continue
		}
		sum += jaccard(item.Topics, t.topics)
		n++
	}
	if n == 0 {
		return 1.0
	}
	return 1 - sum/float64(n)
}

func derivePriority(composite float64, f breaking.Factors) breaking.Priority {
	switch {
	case composite >= 0.9 || f.Keywords >= 0.8:
		return breaking.PriorityCritical
	case composite >= 0.7 || f.Velocity >= 0.8:
		return breaking.PriorityHigh
	case composite >= 0.5:
		return breaking.PriorityMedium
	default:
		return breaking.PriorityNormal
	}
}

// userRelevance is the weighted interest match used to gate notifications.
func userRelevance(p *profile.Profile, item *content.Item) float64 {
	if p == nil {
		return 0
	}

	topicMatch := meanMatchedWeight(p.Topics, item.Topics)
	categoryMatch := meanMatchedWeight(p.Categories, item.Categories)

	return topicMatch*0.6 + categoryMatch*0.4
}

func meanMatchedWeight(entries []profile.InterestEntry, names []string) float64 {
	sum := 0.0
	matched := 0
	for _, name := range names {
		if w, ok := profile.EntryWeight(entries, name); ok {
			sum += w
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return sum / float64(matched)
}

// inCooldown reports whether the user was recently notified about an
// overlapping topic.
func (d *Detector) inCooldown(userID string, topics []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for _, n := range d.history[userID] {
		if now.Sub(n.SentAt) > d.config.CooldownPeriod {
			continue
		}
		if topicsOverlap(n.Topics, topics) {
			return true
		}
	}
	return false
}

// track appends the item to the per-topic tracker. Callers must hold d.mu.
func (d *Detector) track(item *content.Item, now time.Time) {
	topic := item.PrimaryTopic()
	if topic == "" {
		return
	}
	key := normalizeTopic(topic)
	d.tracker[key] = append(d.tracker[key], trackedItem{at: now, topics: item.Topics})
}

// pruneTracker drops occurrences older than the tracker window. Callers
// must hold d.mu.
func (d *Detector) pruneTracker(now time.Time) {
	for topic, items := range d.tracker {
		kept := items[:0]
		for _, t := range items {
			if now.Sub(t.at) <= d.config.TrackerWindow {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(d.tracker, topic)
			continue
		}
		d.tracker[topic] = kept
	}
}

// pruneHistory drops notifications older than the history window. Callers
// must hold d.mu.
func (d *Detector) pruneHistory(userID string, now time.Time) {
	kept := d.history[userID][:0]
	for _, n := range d.history[userID] {
		if now.Sub(n.SentAt) <= d.config.HistoryWindow {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		delete(d.history, userID)
		return
	}
	d.history[userID] = kept
}

func notificationTitle(p breaking.Priority, title string) string {
	switch p {
	case breaking.PriorityCritical:
		return "🚨 URGENT: " + title
	case breaking.PriorityHigh:
		return "⚡ Breaking: " + title
	case breaking.PriorityMedium:
		return "📰 " + title
	default:
		return title
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

func topicsOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[normalizeTopic(t)] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[normalizeTopic(t)]; ok {
			return true
		}
	}
	return false
}

// jaccard computes topic-set Jaccard similarity, case-insensitive.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[normalizeTopic(t)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[normalizeTopic(t)] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
