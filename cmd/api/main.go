// cmd/api/main.go

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"feedcore/internal/adapter/notify"
	"feedcore/internal/adapter/storage"
	"feedcore/internal/config"
	"feedcore/internal/domain/breaking"
	"feedcore/internal/domain/content"
	"feedcore/internal/domain/learning"
	"feedcore/internal/domain/profile"
	"feedcore/internal/domain/scoring"
	breakingService "feedcore/internal/service/breaking"
	focusService "feedcore/internal/service/focus"
	learningService "feedcore/internal/service/learning"
	profileService "feedcore/internal/service/profile"
	scoringService "feedcore/internal/service/scoring"
)

func main() {
	// Load .env in development; missing files are fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Storage adapters
	profileStore := storage.NewProfileStore(db)
	focusStore := storage.NewFocusStore(db)

	// Services
	modeler := profileService.NewModeler(profileStore)
	scorer := scoringService.NewScorer()

	learner := learningService.NewLearner(profileStore, scorer, natsConn, cfg.Events.LearningSubject)
	learner.UpdateConfig(learning.Config{
		BufferSize:         cfg.Learning.BufferSize,
		MinRecords:         cfg.Learning.MinRecords,
		FeedbackThreshold:  cfg.Learning.FeedbackThreshold,
		AdaptationRate:     cfg.Learning.AdaptationRate,
		PeriodicInterval:   cfg.Learning.PeriodicInterval,
		PeriodicMinRecords: cfg.Learning.PeriodicMinRecords,
	})

	notifier := notify.NewNATSNotifier(natsConn, cfg.Events.NotificationSubject)
	detector := breakingService.NewDetector(notifier, breakingService.DetectorConfig{
		BreakingThreshold: cfg.Breaking.Threshold,
		CooldownPeriod:    cfg.Breaking.CooldownPeriod,
		TrackerWindow:     cfg.Breaking.TrackerWindow,
		HistoryWindow:     cfg.Breaking.HistoryWindow,
		MinRelevance:      cfg.Breaking.MinRelevance,
	})

	focusManager := focusService.NewManager(focusStore, learner, focusService.ManagerConfig{
		MaxPerUser:       cfg.Focus.MaxPerUser,
		MinimumPassScore: cfg.Focus.MinimumPassScore,
		TopicWeight:      0.4,
		CategoryWeight:   0.3,
		KeywordWeight:    0.2,
		SourceTypeWeight: 0.1,
	})

	// Event subscriptions: the transport collaborators feed the core
	// through these subjects.
	contentSub, err := natsConn.Subscribe(cfg.Events.ContentSubject, func(msg *nats.Msg) {
		handleContent(ctx, msg, detector, natsConn, cfg.Events.BreakingSubject)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to content events: %v", err)
	}
	defer contentSub.Unsubscribe()

	interactionSub, err := natsConn.Subscribe(cfg.Events.InteractionSubject, func(msg *nats.Msg) {
		handleInteraction(ctx, msg, modeler, learner)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to interaction events: %v", err)
	}
	defer interactionSub.Unsubscribe()

	filterSub, err := natsConn.Subscribe(cfg.Events.FilterSubject, func(msg *nats.Msg) {
		handleFilterRequest(ctx, msg, focusManager)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to filter requests: %v", err)
	}
	defer filterSub.Unsubscribe()

	rankOpts := rankOptionsFromConfig(cfg.Scoring)
	rankSub, err := natsConn.Subscribe(cfg.Events.RankSubject, func(msg *nats.Msg) {
		handleRankRequest(ctx, msg, scorer, profileStore, rankOpts)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to rank requests: %v", err)
	}
	defer rankSub.Unsubscribe()

	notifySub, err := natsConn.Subscribe(cfg.Events.NotifySubject, func(msg *nats.Msg) {
		handleNotifyRequest(ctx, msg, detector, profileStore)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to notify requests: %v", err)
	}
	defer notifySub.Unsubscribe()

	log.Printf("feedcore running (env=%s), content=%q interactions=%q",
		cfg.Environment, cfg.Events.ContentSubject, cfg.Events.InteractionSubject)

	<-shutdown
	log.Println("Shutdown signal received")
	cancel()

	// Let in-flight handlers settle before closing connections
	time.Sleep(250 * time.Millisecond)
	log.Println("Shutdown complete")
}

// contentEvent is the inbound content item shape
type contentEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Body        string     `json:"body"`
	Topics      []string   `json:"topics"`
	Categories  []string   `json:"categories"`
	SourceType  string     `json:"source_type"`
	PublishedAt *time.Time `json:"published_at"`
	Source      struct {
		Name             string  `json:"name"`
		CredibilityScore float64 `json:"credibility_score"`
	} `json:"source"`
	Metrics struct {
		Views    int `json:"views"`
		Likes    int `json:"likes"`
		Shares   int `json:"shares"`
		Comments int `json:"comments"`
	} `json:"metrics"`
}

func (e contentEvent) toItem() content.Item {
	return content.Item{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Body:        e.Body,
		Topics:      e.Topics,
		Categories:  e.Categories,
		SourceType:  e.SourceType,
		PublishedAt: e.PublishedAt,
		CreatedAt:   time.Now(),
		Source: content.Source{
			Name:             e.Source.Name,
			CredibilityScore: e.Source.CredibilityScore,
		},
		Metrics: content.Metrics{
			Views:    e.Metrics.Views,
			Likes:    e.Metrics.Likes,
			Shares:   e.Metrics.Shares,
			Comments: e.Metrics.Comments,
		},
	}
}

// interactionEvent is the inbound engagement event shape
type interactionEvent struct {
	UserID          string       `json:"user_id"`
	Type            string       `json:"type"`
	DurationSeconds int          `json:"duration_seconds"`
	ScrollDepth     float64      `json:"scroll_depth"`
	Content         contentEvent `json:"content"`
}

// handleContent runs every ingested item through breaking-news analysis and
// announces breaking items on the bus.
func handleContent(ctx context.Context, msg *nats.Msg, detector *breakingService.Detector, bus *nats.Conn, subject string) {
	var event contentEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("Error decoding content event: %v", err)
		return
	}

	item := event.toItem()
	analysis, err := detector.Analyze(ctx, &item)
	if err != nil {
		log.Printf("Error analyzing content %s: %v", item.ID, err)
		return
	}

	if !analysis.IsBreaking {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"content_id": analysis.ContentID,
		"composite":  analysis.Composite,
		"priority":   analysis.Priority,
	})
	if err != nil {
		log.Printf("Error marshaling breaking event: %v", err)
		return
	}
	if err := bus.Publish(subject, payload); err != nil {
		log.Printf("Error publishing breaking event: %v", err)
	}
}

// handleInteraction feeds the interest model and the learning loop.
func handleInteraction(ctx context.Context, msg *nats.Msg, modeler *profileService.Modeler, learner *learningService.Learner) {
	var event interactionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("Error decoding interaction event: %v", err)
		return
	}

	item := event.Content.toItem()
	inter := content.Interaction{
		UserID:          event.UserID,
		ContentID:       item.ID,
		Type:            content.InteractionType(event.Type),
		DurationSeconds: event.DurationSeconds,
		ScrollDepth:     event.ScrollDepth,
		Timestamp:       time.Now(),
	}

	if _, err := modeler.UpdateFromInteraction(ctx, event.UserID, inter, item); err != nil {
		log.Printf("Error updating profile for %s: %v", event.UserID, err)
		return
	}

	if _, err := learner.RecordInteraction(ctx, event.UserID, inter, item); err != nil {
		log.Printf("Error recording interaction for %s: %v", event.UserID, err)
		return
	}

	if learner.ShouldTriggerLearning(event.UserID) {
		outcome, err := learner.PerformLearning(ctx, event.UserID)
		if err != nil {
			log.Printf("Error running learning cycle for %s: %v", event.UserID, err)
			return
		}
		if outcome.Performed {
			log.Printf("Learning cycle applied for %s (accuracy %.2f)", event.UserID, outcome.OverallAccuracy)
		}
	}
}

// filterRequest is the inbound request-reply shape for stream filtering
type filterRequest struct {
	UserID string         `json:"user_id"`
	Items  []contentEvent `json:"items"`
}

// handleFilterRequest runs a content batch through the user's active focus
// filters and replies with the admitted items.
func handleFilterRequest(ctx context.Context, msg *nats.Msg, manager *focusService.Manager) {
	var req filterRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("Error decoding filter request: %v", err)
		return
	}

	items := make([]content.Item, len(req.Items))
	for i, e := range req.Items {
		items[i] = e.toItem()
	}

	matched, err := manager.FilterContent(ctx, req.UserID, items)
	if err != nil {
		log.Printf("Error filtering content for %s: %v", req.UserID, err)
		return
	}

	type matchedItem struct {
		ContentID    string   `json:"content_id"`
		Score        float64  `json:"score"`
		MatchedAreas []string `json:"matched_areas"`
	}
	out := make([]matchedItem, len(matched))
	for i, mi := range matched {
		out[i] = matchedItem{
			ContentID:    mi.Item.ID,
			Score:        mi.Score,
			MatchedAreas: mi.MatchedAreas,
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": req.UserID,
		"items":   out,
	})
	if err != nil {
		log.Printf("Error marshaling filter reply: %v", err)
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(payload); err != nil {
		log.Printf("Error replying to filter request: %v", err)
	}
}

// rankRequest is the inbound request-reply shape for feed ranking
type rankRequest struct {
	UserID string         `json:"user_id"`
	Items  []contentEvent `json:"items"`
}

// rankOptionsFromConfig maps the ranking tuning onto scorer options.
func rankOptionsFromConfig(cfg config.ScoringConfig) scoring.RankOptions {
	return scoring.RankOptions{
		Diversify:      cfg.Diversify,
		MaxPerCategory: cfg.MaxPerCategory,
		MaxPerSource:   cfg.MaxPerSource,
		Limit:          cfg.DefaultLimit,
	}
}

// handleRankRequest scores a content batch against the user's profile and
// replies with the ranked list.
func handleRankRequest(ctx context.Context, msg *nats.Msg, scorer *scoringService.Scorer, profiles profile.Store, opts scoring.RankOptions) {
	var req rankRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("Error decoding rank request: %v", err)
		return
	}

	p, err := profiles.Get(ctx, req.UserID)
	if err != nil {
		log.Printf("Error loading profile for %s: %v", req.UserID, err)
		return
	}

	items := make([]content.Item, len(req.Items))
	for i, e := range req.Items {
		items[i] = e.toItem()
	}

	result, err := scorer.ScoreAndRankContent(ctx, p, items, opts)
	if err != nil {
		log.Printf("Error ranking content for %s: %v", req.UserID, err)
		return
	}

	type rankedItem struct {
		ContentID  string  `json:"content_id"`
		Score      int     `json:"score"`
		Confidence float64 `json:"confidence"`
	}
	out := make([]rankedItem, len(result.Items))
	for i, si := range result.Items {
		out[i] = rankedItem{
			ContentID:  si.Item.ID,
			Score:      si.Relevance.Score,
			Confidence: si.Relevance.Confidence,
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": req.UserID,
		"items":   out,
		"failed":  result.Failed,
	})
	if err != nil {
		log.Printf("Error marshaling rank reply: %v", err)
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(payload); err != nil {
		log.Printf("Error replying to rank request: %v", err)
	}
}

// notifyRequest is the inbound request shape for breaking-news fan-out. The
// analysis echoes a previously announced breaking event.
type notifyRequest struct {
	UserIDs  []string     `json:"user_ids"`
	Content  contentEvent `json:"content"`
	Analysis struct {
		Composite float64 `json:"composite"`
		Priority  string  `json:"priority"`
	} `json:"analysis"`
}

// handleNotifyRequest fans a breaking item out to candidate users, running
// each through the per-user notification decision before dispatching.
func handleNotifyRequest(ctx context.Context, msg *nats.Msg, detector *breakingService.Detector, profiles profile.Store) {
	var req notifyRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("Error decoding notify request: %v", err)
		return
	}

	item := req.Content.toItem()
	analysis := &breaking.Analysis{
		ContentID:  item.ID,
		Composite:  req.Analysis.Composite,
		Priority:   breaking.Priority(req.Analysis.Priority),
		IsBreaking: true,
		AnalyzedAt: time.Now(),
	}

	sent := dispatchBreaking(ctx, detector, profiles, req.UserIDs, &item, analysis)

	if msg.Reply == "" {
		return
	}

	type sentNotification struct {
		ID      string `json:"id"`
		UserID  string `json:"user_id"`
		Channel string `json:"channel"`
	}
	out := make([]sentNotification, len(sent))
	for i, n := range sent {
		out[i] = sentNotification{ID: n.ID, UserID: n.UserID, Channel: string(n.Channel)}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"content_id": item.ID,
		"notified":   out,
	})
	if err != nil {
		log.Printf("Error marshaling notify reply: %v", err)
		return
	}
	if err := msg.Respond(payload); err != nil {
		log.Printf("Error replying to notify request: %v", err)
	}
}

// dispatchBreaking evaluates each candidate's profile through the
// notification decision procedure and dispatches on the selected channel.
// Unknown users and negative decisions are skipped.
func dispatchBreaking(ctx context.Context, detector *breakingService.Detector, profiles profile.Store, userIDs []string, item *content.Item, a *breaking.Analysis) []breaking.Notification {
	var sent []breaking.Notification
	for _, userID := range userIDs {
		p, err := profiles.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, profile.ErrNotFound) {
				log.Printf("Error loading profile for %s: %v", userID, err)
			}
			continue
		}

		decision, err := detector.ShouldNotifyUser(ctx, p, a, item)
		if err != nil {
			log.Printf("Error evaluating notification for %s: %v", userID, err)
			continue
		}
		if !decision.Notify {
			continue
		}

		n, err := detector.SendNotification(ctx, userID, item, a, decision)
		if err != nil {
			log.Printf("Error delivering notification to %s: %v", userID, err)
			continue
		}
		sent = append(sent, *n)
	}
	return sent
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
