package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// weightTolerance is the allowed deviation of the CVS weight sum from 1.0.
const weightTolerance = 1e-6

// ConfigurationError reports an invalid weight, rate, or threshold. It is
// fatal to the computation that requested it.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// Config holds all application configuration.
type Config struct {
	Analytics AnalyticsConfig `yaml:"analytics"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Weights are the Carrier Value Score component weights. They must sum
// to 1.0.
type Weights struct {
	Cost           float64 `yaml:"cost"`
	Delivery       float64 `yaml:"delivery"`
	Satisfaction   float64 `yaml:"satisfaction"`
	Sustainability float64 `yaml:"sustainability"`
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.Cost + w.Delivery + w.Satisfaction + w.Sustainability
}

// AnalyticsConfig holds the engine's tunable rates and thresholds.
type AnalyticsConfig struct {
	Weights Weights `yaml:"weights"`

	// DelayPenaltyPerDay is the estimated cost of each day delivered late.
	DelayPenaltyPerDay float64 `yaml:"delay_penalty_per_day"`
	// DamageCostEstimate is the flat cost applied when damage is reported.
	DamageCostEstimate float64 `yaml:"damage_cost_estimate"`
	// VolumeShiftFraction is the share of a carrier's lane volume a
	// recommendation proposes to move.
	VolumeShiftFraction float64 `yaml:"volume_shift_fraction"`
	// ScoreGapThreshold is the minimum CVS difference between two carriers
	// on a lane before a shift is proposed.
	ScoreGapThreshold float64 `yaml:"score_gap_threshold"`
	// TrimFraction is trimmed from each end of per-carrier lane costs when
	// computing the overcharge baseline.
	TrimFraction float64 `yaml:"trim_fraction"`
	// CostTolerancePct is the allowed relative gap between summed cost
	// items and the recorded delivery cost before a warning is raised.
	CostTolerancePct float64 `yaml:"cost_tolerance_pct"`
	// SustainabilityReductionPct drives the optimized emissions scenario.
	SustainabilityReductionPct float64 `yaml:"sustainability_reduction_pct"`
}

// KafkaConfig configures the optional Kafka entity source.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	TopicPrefix  string        `yaml:"topic_prefix"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// InfluxDBConfig configures the optional derived-metrics export sink.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Org    string `yaml:"org"`
	Token  string `yaml:"token"`
	Bucket string `yaml:"bucket"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the documented default configuration with environment
// overrides applied for the transport and export settings.
func Default() *Config {
	return &Config{
		Analytics: AnalyticsConfig{
			Weights: Weights{
				Cost:           0.40,
				Delivery:       0.30,
				Satisfaction:   0.20,
				Sustainability: 0.10,
			},
			DelayPenaltyPerDay:         50,
			DamageCostEstimate:         250,
			VolumeShiftFraction:        0.15,
			ScoreGapThreshold:          10,
			TrimFraction:               0.10,
			CostTolerancePct:           0.10,
			SustainabilityReductionPct: 20,
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicPrefix:  getEnv("KAFKA_TOPIC_PREFIX", "logistics"),
			DrainTimeout: getEnvDuration("KAFKA_DRAIN_TIMEOUT", 30*time.Second),
		},
		InfluxDB: InfluxDBConfig{
			URL:    getEnv("INFLUXDB_URL", "http://localhost:8086"),
			Org:    getEnv("INFLUXDB_ORG", "nexgen"),
			Token:  getEnv("INFLUX_TOKEN", ""),
			Bucket: getEnv("INFLUXDB_BUCKET", "cost-intelligence"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvBool("LOG_JSON", false),
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects weight sets that do not sum to 1.0 and negative rates
// or out-of-range fractions before any computation runs.
func (c *Config) Validate() error {
	a := c.Analytics
	if sum := a.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return &ConfigurationError{
			Param:  "weights",
			Reason: fmt.Sprintf("must sum to 1.0, got %.6f", sum),
		}
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"weights.cost", a.Weights.Cost},
		{"weights.delivery", a.Weights.Delivery},
		{"weights.satisfaction", a.Weights.Satisfaction},
		{"weights.sustainability", a.Weights.Sustainability},
	} {
		if w.value < 0 {
			return &ConfigurationError{Param: w.name, Reason: "must be non-negative"}
		}
	}
	if a.DelayPenaltyPerDay < 0 {
		return &ConfigurationError{Param: "delay_penalty_per_day", Reason: "must be non-negative"}
	}
	if a.DamageCostEstimate < 0 {
		return &ConfigurationError{Param: "damage_cost_estimate", Reason: "must be non-negative"}
	}
	if a.VolumeShiftFraction <= 0 || a.VolumeShiftFraction > 1 {
		return &ConfigurationError{Param: "volume_shift_fraction", Reason: "must be in (0, 1]"}
	}
	if a.ScoreGapThreshold < 0 {
		return &ConfigurationError{Param: "score_gap_threshold", Reason: "must be non-negative"}
	}
	if a.TrimFraction < 0 || a.TrimFraction >= 0.5 {
		return &ConfigurationError{Param: "trim_fraction", Reason: "must be in [0, 0.5)"}
	}
	if a.CostTolerancePct < 0 {
		return &ConfigurationError{Param: "cost_tolerance_pct", Reason: "must be non-negative"}
	}
	if a.SustainabilityReductionPct < 0 || a.SustainabilityReductionPct > 100 {
		return &ConfigurationError{Param: "sustainability_reduction_pct", Reason: "must be in [0, 100]"}
	}
	return nil
}

// Helper functions to get environment variables with defaults.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.Split(value, ",")
	}
	return defaultValue
}
