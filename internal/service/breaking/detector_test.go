// internal/service/breaking/detector_test.go

package breaking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"feedcore/internal/adapter/notify"
	"feedcore/internal/domain/breaking"
	"feedcore/internal/domain/content"
	"feedcore/internal/domain/profile"
)

var analyzeTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDetector() (*Detector, *notify.MemoryNotifier) {
	notifier := notify.NewMemoryNotifier()
	d := NewDetector(notifier, DefaultDetectorConfig()).
		WithClock(func() time.Time { return analyzeTime })
	return d, notifier
}

func publishedAt(t time.Time) *time.Time { return &t }

func TestAnalyzeNilItem(t *testing.T) {
	d, _ := newTestDetector()
	_, err := d.Analyze(context.Background(), nil)
	if !errors.Is(err, breaking.ErrNilContent) {
		t.Fatalf("error = %v, want ErrNilContent", err)
	}
}

func TestKeywordFactorFromTieredLexicon(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	urgent := &content.Item{
		ID:     "c1",
		Title:  "URGENT ALERT: dam failure upstream",
		Body:   "Breaking reports of flooding in the valley.",
		Topics: []string{"flooding"},
	}
	a, err := d.Analyze(ctx, urgent)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// urgent + alert + breaking all hit the top tier, so the factor saturates.
	if a.Factors.Keywords != 1.0 {
		t.Errorf("keyword factor = %v, want 1.0", a.Factors.Keywords)
	}

	calm := &content.Item{
		ID:     "c2",
		Title:  "Quarterly gardening tips",
		Topics: []string{"gardening"},
	}
	a, err = d.Analyze(ctx, calm)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Factors.Keywords != 0 {
		t.Errorf("keyword factor = %v, want 0 for calm content", a.Factors.Keywords)
	}
}

func TestVelocityFactorIsStateful(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{ID: "c", Topics: []string{"Earthquake"}}

	// First sighting has no tracked history.
	a, err := d.Analyze(ctx, item)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Factors.Velocity != 0 {
		t.Errorf("first velocity = %v, want 0", a.Factors.Velocity)
	}

	// After three sightings within the hour, velocity hits the 0.6 step.
	for i := 0; i < 2; i++ {
		if _, err := d.Analyze(ctx, item); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}
	a, err = d.Analyze(ctx, item)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Factors.Velocity != 0.6 {
		t.Errorf("velocity after 3 sightings = %v, want 0.6", a.Factors.Velocity)
	}
}

func TestUniquenessDropsForRepeatedCoverage(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{ID: "c", Topics: []string{"Earthquake", "Chile"}}

	a, err := d.Analyze(ctx, item)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Factors.Uniqueness != 1.0 {
		t.Errorf("first uniqueness = %v, want 1.0", a.Factors.Uniqueness)
	}

	a, err = d.Analyze(ctx, item)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Factors.Uniqueness != 0 {
		t.Errorf("identical follow-up uniqueness = %v, want 0", a.Factors.Uniqueness)
	}
}

func TestSourceFactorFallbacks(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	tests := []struct {
		name   string
		source content.Source
		want   float64
	}{
		{"known outlet", content.Source{Name: "Reuters"}, 0.95},
		{"own credibility", content.Source{Name: "Tiny Blog", CredibilityScore: 0.65}, 0.65},
		{"unknown", content.Source{Name: "Tiny Blog"}, 0.5},
	}
	for _, tt := range tests {
		a, err := d.Analyze(ctx, &content.Item{ID: "c", Source: tt.source})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if a.Factors.Source != tt.want {
			t.Errorf("%s: source factor = %v, want %v", tt.name, a.Factors.Source, tt.want)
		}
	}
}

func TestRecencyFactorEvaporatesFast(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{10 * time.Minute, 1.0},
		{45 * time.Minute, 0.8},
		{3 * time.Hour, 0.6},
		{12 * time.Hour, 0.3},
		{3 * 24 * time.Hour, 0.1},
	}
	for _, tt := range tests {
		item := &content.Item{ID: "c", PublishedAt: publishedAt(analyzeTime.Add(-tt.age))}
		a, err := d.Analyze(ctx, item)
		if err != nil {
			t.Fatal(err)
		}
		if a.Factors.Recency != tt.want {
			t.Errorf("age %v: recency = %v, want %v", tt.age, a.Factors.Recency, tt.want)
		}
	}
}

func TestBreakingItemCrossesThreshold(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{
		ID:          "c1",
		Title:       "BREAKING: urgent evacuation alert issued",
		Body:        "Officials confirmed a developing emergency.",
		Topics:      []string{"Evacuation"},
		PublishedAt: publishedAt(analyzeTime.Add(-5 * time.Minute)),
		Source:      content.Source{Name: "Reuters"},
		Metrics:     content.Metrics{Views: 900, Likes: 80, Shares: 40, Comments: 20},
	}

	a, err := d.Analyze(ctx, item)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.IsBreaking {
		t.Errorf("composite %v did not cross threshold", a.Composite)
	}
	if a.Priority != breaking.PriorityCritical {
		t.Errorf("priority = %v, want critical for a saturated keyword factor", a.Priority)
	}
}

func TestShouldNotifyUserGates(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{ID: "c1", Topics: []string{"Earthquake"}, Categories: []string{"disaster"}}
	p := &profile.Profile{
		UserID:     "u1",
		Topics:     []profile.InterestEntry{{Name: "Earthquake", Weight: 0.9}},
		Categories: []profile.InterestEntry{{Name: "disaster", Weight: 0.9}},
	}

	notBreaking := &breaking.Analysis{ContentID: "c1", IsBreaking: false}
	dec, err := d.ShouldNotifyUser(ctx, p, notBreaking, item)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if dec.Notify || dec.Reason != "not breaking" {
		t.Errorf("decision = %+v, want declined as not breaking", dec)
	}

	critical := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: breaking.PriorityCritical}
	dec, err = d.ShouldNotifyUser(ctx, p, critical, item)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if !dec.Notify || dec.Channel != breaking.ChannelPush {
		t.Errorf("decision = %+v, want push for critical + high relevance", dec)
	}

	// A user with no matching interests is below the relevance gate.
	stranger := &profile.Profile{UserID: "u2"}
	dec, err = d.ShouldNotifyUser(ctx, stranger, critical, item)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if dec.Notify || dec.Reason != "low relevance" {
		t.Errorf("decision = %+v, want declined on relevance", dec)
	}
}

func TestChannelSelectionByPriorityAndRelevance(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{ID: "c1", Topics: []string{"Markets"}, Categories: []string{"finance"}}

	// Matching topic and category entries at the same weight make the
	// relevance equal that weight.
	tests := []struct {
		name     string
		priority breaking.Priority
		weight   float64
		want     breaking.Channel
		notify   bool
	}{
		{"critical high interest", breaking.PriorityCritical, 0.9, breaking.ChannelPush, true},
		{"high moderate interest", breaking.PriorityHigh, 0.9, breaking.ChannelEmail, true},
		{"medium strong interest", breaking.PriorityMedium, 1.0, breaking.ChannelInApp, true},
		{"medium moderate interest", breaking.PriorityMedium, 0.5, breaking.ChannelNone, false},
	}
	for _, tt := range tests {
		p := &profile.Profile{
			UserID:     "u-" + tt.name,
			Topics:     []profile.InterestEntry{{Name: "Markets", Weight: tt.weight}},
			Categories: []profile.InterestEntry{{Name: "finance", Weight: tt.weight}},
		}
		a := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: tt.priority}

		dec, err := d.ShouldNotifyUser(ctx, p, a, item)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if dec.Notify != tt.notify || dec.Channel != tt.want {
			t.Errorf("%s: decision = %+v, want notify=%v channel=%v", tt.name, dec, tt.notify, tt.want)
		}
	}
}

func TestCooldownSuppressesOverlappingTopics(t *testing.T) {
	d, _ := newTestDetector()
	ctx := context.Background()

	item := &content.Item{ID: "c1", Title: "Quake hits", Topics: []string{"Earthquake"}, Categories: []string{"disaster"}}
	p := &profile.Profile{
		UserID:     "u1",
		Topics:     []profile.InterestEntry{{Name: "Earthquake", Weight: 0.9}},
		Categories: []profile.InterestEntry{{Name: "disaster", Weight: 0.9}},
	}
	a := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: breaking.PriorityCritical}

	dec, err := d.ShouldNotifyUser(ctx, p, a, item)
	if err != nil || !dec.Notify {
		t.Fatalf("first decision = %+v, err = %v", dec, err)
	}
	if _, err := d.SendNotification(ctx, "u1", item, a, dec); err != nil {
		t.Fatalf("SendNotification: %v", err)
	}

	// Same topic within the cooldown window is suppressed.
	followUp := &content.Item{ID: "c2", Title: "Quake update", Topics: []string{"Earthquake"}, Categories: []string{"disaster"}}
	dec, err = d.ShouldNotifyUser(ctx, p, a, followUp)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if dec.Notify || dec.Reason != "cooldown active" {
		t.Errorf("decision = %+v, want cooldown suppression", dec)
	}

	// A disjoint topic is unaffected.
	other := &content.Item{ID: "c3", Topics: []string{"Markets"}, Categories: []string{"finance"}}
	pOther := &profile.Profile{
		UserID:     "u1",
		Topics:     []profile.InterestEntry{{Name: "Markets", Weight: 0.9}},
		Categories: []profile.InterestEntry{{Name: "finance", Weight: 0.9}},
	}
	dec, err = d.ShouldNotifyUser(ctx, pOther, a, other)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if !dec.Notify {
		t.Errorf("decision = %+v, want unaffected by cooldown", dec)
	}

	// After the cooldown elapses the same topic can notify again.
	d.WithClock(func() time.Time { return analyzeTime.Add(31 * time.Minute) })
	dec, err = d.ShouldNotifyUser(ctx, p, a, followUp)
	if err != nil {
		t.Fatalf("ShouldNotifyUser: %v", err)
	}
	if !dec.Notify {
		t.Errorf("decision = %+v, want allowed after cooldown", dec)
	}
}

func TestSendNotificationDeliversAndRecords(t *testing.T) {
	d, notifier := newTestDetector()
	ctx := context.Background()

	item := &content.Item{
		ID:          "c1",
		Title:       "Quake hits coastal region",
		Description: "A magnitude 7 earthquake struck off the coast this morning.",
		Topics:      []string{"Earthquake"},
	}
	a := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: breaking.PriorityCritical}
	dec := breaking.Decision{Notify: true, Channel: breaking.ChannelPush}

	n, err := d.SendNotification(ctx, "u1", item, a, dec)
	if err != nil {
		t.Fatalf("SendNotification: %v", err)
	}
	if !n.Sent {
		t.Error("notification not marked sent")
	}
	if !strings.HasPrefix(n.Title, "🚨 URGENT:") {
		t.Errorf("title = %q, want urgent prefix", n.Title)
	}
	if len(notifier.Delivered()) != 1 {
		t.Fatalf("delivered = %d, want 1", len(notifier.Delivered()))
	}
	if got := d.NotificationHistory("u1"); len(got) != 1 {
		t.Errorf("history = %d, want 1", len(got))
	}
}

func TestSendNotificationDeliveryFailureIsRecorded(t *testing.T) {
	d, notifier := newTestDetector()
	notifier.FailWith = errors.New("transport down")

	item := &content.Item{ID: "c1", Title: "Quake hits", Topics: []string{"Earthquake"}}
	a := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: breaking.PriorityHigh}

	n, err := d.SendNotification(context.Background(), "u1", item, a,
		breaking.Decision{Notify: true, Channel: breaking.ChannelEmail})
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if n == nil || n.Sent {
		t.Errorf("notification = %+v, want recorded as unsent", n)
	}
	if got := d.NotificationHistory("u1"); len(got) != 1 {
		t.Errorf("history = %d, want failed delivery recorded", len(got))
	}
}

func TestNotificationMessageTruncation(t *testing.T) {
	d, _ := newTestDetector()

	long := strings.Repeat("a", 150)
	item := &content.Item{ID: "c1", Title: "Short", Description: long}
	a := &breaking.Analysis{ContentID: "c1", IsBreaking: true, Priority: breaking.PriorityMedium}

	n, err := d.SendNotification(context.Background(), "u1", item, a,
		breaking.Decision{Notify: true, Channel: breaking.ChannelInApp})
	if err != nil {
		t.Fatalf("SendNotification: %v", err)
	}
	if got := []rune(n.Message); len(got) != 101 {
		t.Errorf("message runes = %d, want 100 + ellipsis", len(got))
	}
	if !strings.HasSuffix(n.Message, "…") {
		t.Errorf("message %q missing ellipsis", n.Message)
	}
}

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		name      string
		composite float64
		factors   breaking.Factors
		want      breaking.Priority
	}{
		{"very high composite", 0.92, breaking.Factors{}, breaking.PriorityCritical},
		{"keyword saturation", 0.6, breaking.Factors{Keywords: 0.85}, breaking.PriorityCritical},
		{"high composite", 0.75, breaking.Factors{}, breaking.PriorityHigh},
		{"velocity spike", 0.55, breaking.Factors{Velocity: 0.9}, breaking.PriorityHigh},
		{"medium", 0.55, breaking.Factors{}, breaking.PriorityMedium},
		{"normal", 0.3, breaking.Factors{}, breaking.PriorityNormal},
	}
	for _, tt := range tests {
		if got := derivePriority(tt.composite, tt.factors); got != tt.want {
			t.Errorf("%s: priority = %v, want %v", tt.name, got, tt.want)
		}
	}
}
