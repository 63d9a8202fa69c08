package helper

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yishak-cs/bundle-miner/internal/database"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/internal/store"
)

// AppConfig is the full runtime configuration of the server and CLI.
type AppConfig struct {
	Port    string
	LogMode string

	Neo4j database.Config

	// Defaults applied to analyses that do not override them.
	Params models.Params
	Miner  eclat.MinerConfig

	AnalysisTimeout     time.Duration
	MaxUploadBytes      int64
	ResultStoreCapacity int
	// ResultSnapshotPath persists retained results across restarts when set.
	ResultSnapshotPath string

	PublishRules bool
	// HistorySource selects graph orders imported under this tag; empty reads all orders.
	HistorySource string
}

// LoadConfigFromEnv loads Neo4j configuration from environment variables
func LoadConfigFromEnv() database.Config {
	return database.Config{
		URI:      getEnvOrDefault("NEO4J_URI", ""),
		Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
		Password: getEnvOrDefault("NEO4J_PASSWORD", ""),
		Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
	}
}

// LoadAppConfig reads every setting from the environment. Malformed values are reported
// together rather than silently replaced by defaults.
func LoadAppConfig() (AppConfig, error) {
	p := &envParser{}
	defaults := models.DefaultParams()

	neo := LoadConfigFromEnv()
	neo.MaxPoolSize = p.int("NEO4J_MAX_POOL_SIZE", 50)
	neo.Timeout = p.duration("NEO4J_TIMEOUT", 10*time.Second)

	cfg := AppConfig{
		Port:    getEnvOrDefault("APP_PORT", "8080"),
		LogMode: getEnvOrDefault("LOG_MODE", "development"),
		Neo4j:   neo,
		Params: models.Params{
			MinSupport:      p.float("MIN_SUPPORT", defaults.MinSupport),
			MinConfidence:   p.float("MIN_CONFIDENCE", defaults.MinConfidence),
			MinLift:         p.float("MIN_LIFT", defaults.MinLift),
			MinSupportCount: p.int("MIN_SUPPORT_COUNT", defaults.MinSupportCount),
		},
		Miner: eclat.MinerConfig{
			MaxSize: p.int("MAX_ITEMSET_SIZE", eclat.MaxItemsetSize),
			Workers: p.int("MINER_WORKERS", 0),
		},
		AnalysisTimeout:     p.duration("ANALYSIS_TIMEOUT", 5*time.Minute),
		MaxUploadBytes:      int64(p.int("MAX_UPLOAD_MB", 100)) << 20,
		ResultStoreCapacity: p.int("RESULT_STORE_CAPACITY", store.DefaultCapacity),
		ResultSnapshotPath:  getEnvOrDefault("RESULT_SNAPSHOT_PATH", ""),
		PublishRules:        p.bool("PUBLISH_RULES", false),
		HistorySource:       getEnvOrDefault("HISTORY_SOURCE", ""),
	}

	if cfg.Miner.MaxSize < 1 || cfg.Miner.MaxSize > eclat.MaxItemsetSize {
		p.errs = append(p.errs, fmt.Errorf("MAX_ITEMSET_SIZE must be between 1 and %d", eclat.MaxItemsetSize))
	}
	if err := cfg.Params.Validate(); err != nil {
		p.errs = append(p.errs, fmt.Errorf("default analysis params: %w", err))
	}
	if err := errors.Join(p.errs...); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// envParser collects conversion errors across several keys.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, def int) int {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (p *envParser) float(key string, def float64) float64 {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return def
	}
	return v
}

func (p *envParser) bool(key string, def bool) bool {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return def
	}
	return v
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return v
}
