package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "github.com/utafrali/termsearch/pkg/config"
	"github.com/utafrali/termsearch/internal/domain"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// MaxSnapshotPageSize is the largest scroll page Elasticsearch accepts by default.
const MaxSnapshotPageSize = 10000

// Config holds all configuration for the termsearch service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"3000"`

	// Elasticsearch
	ElasticsearchURL      string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchAPIKey   string `env:"ELASTICSEARCH_API_KEY"`
	ElasticsearchCloudID  string `env:"ELASTICSEARCH_CLOUD_ID"`
	ElasticsearchIndex    string `env:"ELASTICSEARCH_INDEX" envDefault:"my_index"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Authoritative data
	DatasetPath string `env:"DATASET_PATH" envDefault:"localData.json"`
	FacetsFile  string `env:"FACETS_FILE"`

	// Reconciliation
	SnapshotPageSize int  `env:"SNAPSHOT_PAGE_SIZE" envDefault:"1000"`
	ReconcileStrict  bool `env:"RECONCILE_STRICT" envDefault:"false"`

	// Startup connectivity; 0 attempts retries until shutdown.
	StoreConnectMaxAttempts     uint          `env:"STORE_CONNECT_MAX_ATTEMPTS" envDefault:"10"`
	StoreConnectInitialInterval time.Duration `env:"STORE_CONNECT_INITIAL_INTERVAL" envDefault:"1s"`
	StoreConnectMaxInterval     time.Duration `env:"STORE_CONNECT_MAX_INTERVAL" envDefault:"30s"`

	StaticDir          string   `env:"STATIC_DIR"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Kafka; publishing is disabled when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	ReportTopic  string   `env:"REPORT_TOPIC" envDefault:"termsearch.index.reconciled"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Facets is read from FacetsFile, or the built-in vocabulary when unset.
	Facets domain.Facets
}

// Load reads configuration from environment variables and the optional facet file.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom is Load over an explicit environment; nil means the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load termsearch config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Facets = domain.DefaultFacets()
	if cfg.FacetsFile != "" {
		facets, err := LoadFacets(cfg.FacetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Facets = facets
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{EngineElasticsearch, EngineMemory}, c.SearchEngine) {
		return fmt.Errorf("invalid search engine %q: want %s or %s", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}
	if c.ElasticsearchIndex == "" {
		return fmt.Errorf("ELASTICSEARCH_INDEX must not be empty")
	}
	if c.DatasetPath == "" {
		return fmt.Errorf("DATASET_PATH must not be empty")
	}
	if c.SnapshotPageSize < 1 || c.SnapshotPageSize > MaxSnapshotPageSize {
		return fmt.Errorf("invalid snapshot page size %d: must be between 1 and %d", c.SnapshotPageSize, MaxSnapshotPageSize)
	}
	if c.StoreConnectInitialInterval <= 0 || c.StoreConnectMaxInterval < c.StoreConnectInitialInterval {
		return fmt.Errorf("invalid store connect intervals: initial %s, max %s",
			c.StoreConnectInitialInterval, c.StoreConnectMaxInterval)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %v", c.OTELSampleRate)
	}
	if len(c.KafkaBrokers) > 0 && c.ReportTopic == "" {
		return fmt.Errorf("REPORT_TOPIC must be set when KAFKA_BROKERS is")
	}
	return nil
}

// LoadFacets reads a YAML facet vocabulary file.
func LoadFacets(path string) (domain.Facets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Facets{}, fmt.Errorf("read facets file: %w", err)
	}
	return ParseFacets(raw)
}

// ParseFacets decodes and validates a YAML facet vocabulary. Every composite
// must expand to at least one type and must not shadow a concrete type.
func ParseFacets(raw []byte) (domain.Facets, error) {
	var f domain.Facets
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return domain.Facets{}, fmt.Errorf("parse facets: %w", err)
	}
	for name, members := range f.Composites {
		if domain.IsAll(name) {
			return domain.Facets{}, fmt.Errorf("facets: composite name %q is reserved", name)
		}
		if len(members) == 0 {
			return domain.Facets{}, fmt.Errorf("facets: composite %q has no member types", name)
		}
		if slices.Contains(f.Types, name) {
			return domain.Facets{}, fmt.Errorf("facets: composite %q shadows a type of the same name", name)
		}
	}
	return f, nil
}
