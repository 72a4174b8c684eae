package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream disease.sh API.
	DiseaseAPIURL     string
	DiseaseAPITimeout time.Duration
	HistoryDays       int

	// Selection endpoints, requests per minute per client IP.
	APIRateLimit int

	// Snapshot feed; enabled when brokers are configured.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string

	// Mapbox coordinate backfill.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("DISEASE_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	historyDays, err := parseIntInRange("HISTORY_DAYS", 120, 1, 1000)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseIntInRange("API_RATE_LIMIT", 60, 1, 100000)
	if err != nil {
		return nil, err
	}

	apiURL := sharedcfg.EnvOrDefault("DISEASE_API_URL", "https://disease.sh/v3/covid-19")
	if u, perr := url.Parse(apiURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid DISEASE_API_URL")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DiseaseAPIURL:     apiURL,
		DiseaseAPITimeout: apiTimeout,
		HistoryDays:       historyDays,

		APIRateLimit: rateLimit,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "covid-country-snapshots"),

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, errors.New("invalid " + key + ": must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi))
	}
	return n, nil
}
