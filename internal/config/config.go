// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Database    DatabaseConfig
	NATS        NATSConfig
	Events      EventsConfig
	Scoring     ScoringConfig
	Learning    LearningConfig
	Breaking    BreakingConfig
	Focus       FocusConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// EventsConfig holds event bus subject configuration
type EventsConfig struct {
	ContentSubject      string
	InteractionSubject  string
	FilterSubject       string
	RankSubject         string
	BreakingSubject     string
	NotifySubject       string
	NotificationSubject string
	LearningSubject     string
}

// ScoringConfig holds relevance ranking configuration
type ScoringConfig struct {
	Diversify      bool
	MaxPerCategory int
	MaxPerSource   int
	DefaultLimit   int
}

// LearningConfig holds feedback-loop configuration
type LearningConfig struct {
	BufferSize         int
	MinRecords         int
	FeedbackThreshold  float64
	AdaptationRate     float64
	PeriodicInterval   time.Duration
	PeriodicMinRecords int
}

// BreakingConfig holds breaking-news detection configuration
type BreakingConfig struct {
	Threshold      float64
	CooldownPeriod time.Duration
	TrackerWindow  time.Duration
	HistoryWindow  time.Duration
	MinRelevance   float64
}

// FocusConfig holds focus-area configuration
type FocusConfig struct {
	MaxPerUser       int
	MinimumPassScore float64
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "feedcore"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Events: EventsConfig{
			ContentSubject:      getEnv("EVENTS_CONTENT_SUBJECT", "content.ingested"),
			InteractionSubject:  getEnv("EVENTS_INTERACTION_SUBJECT", "interaction.recorded"),
			FilterSubject:       getEnv("EVENTS_FILTER_SUBJECT", "focus.filter"),
			RankSubject:         getEnv("EVENTS_RANK_SUBJECT", "feed.rank"),
			BreakingSubject:     getEnv("EVENTS_BREAKING_SUBJECT", "breaking.detected"),
			NotifySubject:       getEnv("EVENTS_NOTIFY_SUBJECT", "breaking.notify"),
			NotificationSubject: getEnv("EVENTS_NOTIFICATION_SUBJECT", "notification"),
			LearningSubject:     getEnv("EVENTS_LEARNING_SUBJECT", "learning"),
		},
		Scoring: ScoringConfig{
			Diversify:      getEnvAsBool("SCORING_DIVERSIFY", true),
			MaxPerCategory: getEnvAsInt("SCORING_MAX_PER_CATEGORY", 3),
			MaxPerSource:   getEnvAsInt("SCORING_MAX_PER_SOURCE", 2),
			DefaultLimit:   getEnvAsInt("SCORING_DEFAULT_LIMIT", 50),
		},
		Learning: LearningConfig{
			BufferSize:         getEnvAsInt("LEARNING_BUFFER_SIZE", 100),
			MinRecords:         getEnvAsInt("LEARNING_MIN_RECORDS", 10),
			FeedbackThreshold:  getEnvAsFloat("LEARNING_FEEDBACK_THRESHOLD", 0.1),
			AdaptationRate:     getEnvAsFloat("LEARNING_ADAPTATION_RATE", 0.05),
			PeriodicInterval:   getEnvAsDuration("LEARNING_PERIODIC_INTERVAL", 24*time.Hour),
			PeriodicMinRecords: getEnvAsInt("LEARNING_PERIODIC_MIN_RECORDS", 20),
		},
		Breaking: BreakingConfig{
			Threshold:      getEnvAsFloat("BREAKING_THRESHOLD", 0.7),
			CooldownPeriod: getEnvAsDuration("BREAKING_COOLDOWN_PERIOD", 30*time.Minute),
			TrackerWindow:  getEnvAsDuration("BREAKING_TRACKER_WINDOW", 24*time.Hour),
			HistoryWindow:  getEnvAsDuration("BREAKING_HISTORY_WINDOW", 7*24*time.Hour),
			MinRelevance:   getEnvAsFloat("BREAKING_MIN_RELEVANCE", 0.3),
		},
		Focus: FocusConfig{
			MaxPerUser:       getEnvAsInt("FOCUS_MAX_PER_USER", 10),
			MinimumPassScore: getEnvAsFloat("FOCUS_MINIMUM_PASS_SCORE", 0.3),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Breaking.Threshold <= 0 || config.Breaking.Threshold > 1 {
		return fmt.Errorf("breaking threshold must be in (0,1], got %f", config.Breaking.Threshold)
	}
	if config.Learning.MinRecords > config.Learning.BufferSize {
		return fmt.Errorf("learning min records (%d) cannot exceed buffer size (%d)",
			config.Learning.MinRecords, config.Learning.BufferSize)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
