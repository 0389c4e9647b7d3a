package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "CONCEPT_ENRICHER_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	classifierModelEnv = "CLASSIFIER_MODEL"
	databaseDSNEnv     = "DATABASE_DSN"
	redisAddrEnv       = "REDIS_ADDR"
	neo4jURIEnv        = "NEO4J_URI"
	neo4jUserEnv       = "NEO4J_USER"
	neo4jPasswordEnv   = "NEO4J_PASSWORD"
	kafkaBrokersEnv    = "KAFKA_BROKERS"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// DefaultClassifierPrompt asks the oracle for a single yes/no verdict; %s receives the phrase.
const DefaultClassifierPrompt = "You are a helpful assistant. Consider the following term:\n\n%s\n\n" +
	"Do you think it is a biological or biomedical related concept? Answer only yes or no."

// DefaultCategories restricts knowledge-base hits to biomedical entity types.
var DefaultCategories = []string{"BiologicalProcess", "Disease", "Gene", "ChemicalSubstance", "PharmaceuticalDrug"}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Corpora       []CorpusConfig     `yaml:"corpora"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Resolver      ResolverConfig     `yaml:"resolver"`
	Embedder      EmbedderConfig     `yaml:"embedder"`
	Similarity    SimilarityConfig   `yaml:"similarity"`
	Cache         CacheConfig        `yaml:"cache"`
	Database      DatabaseConfig     `yaml:"database"`
	Graph         GraphConfig        `yaml:"graph"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CorpusConfig describes a single corpus with its reader strategy.
type CorpusConfig struct {
	Name    string            `yaml:"name"`
	Reader  string            `yaml:"reader"`
	Path    string            `yaml:"path"`
	Options map[string]string `yaml:"options"`
}

// LedgerConfig locates the durable ledger artifacts.
type LedgerConfig struct {
	Dir            string `yaml:"dir"`
	KeyphraseFile  string `yaml:"keyphraseFile"`
	ConceptFile    string `yaml:"conceptFile"`
	CheckpointFile string `yaml:"checkpointFile"`
}

// ExtractorConfig tunes keyphrase extraction.
type ExtractorConfig struct {
	Provider       string        `yaml:"provider"`
	MaxTerms       int           `yaml:"maxTerms"`
	SpanWidth      int           `yaml:"spanWidth"`
	DedupThreshold float64       `yaml:"dedupThreshold"`
	Language       string        `yaml:"language"`
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"apiKey"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ClassifierConfig defines how to contact the relevance oracle.
type ClassifierConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"apiKey"`
	BaseURL          string        `yaml:"baseUrl"`
	Prompt           string        `yaml:"prompt"`
	AffirmativeToken string        `yaml:"affirmativeToken"`
	MaxTokens        int           `yaml:"maxTokens"`
	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	Breaker          BreakerConfig `yaml:"breaker"`
}

// BreakerConfig mirrors gobreaker settings.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"maxRequests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	ReadyToTripRatio float64       `yaml:"readyToTripRatio"`
}

// ResolverConfig points to the knowledge-base lookup service.
type ResolverConfig struct {
	SearchURL  string        `yaml:"searchUrl"`
	Categories []string      `yaml:"categories"`
	MaxResults int           `yaml:"maxResults"`
	UserAgent  string        `yaml:"userAgent"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// EmbedderConfig selects the text-to-vector backend.
type EmbedderConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	BaseURL   string        `yaml:"baseUrl"`
	BatchSize int           `yaml:"batchSize"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SimilarityConfig bounds the all-pairs comparison.
type SimilarityConfig struct {
	Parallelism int    `yaml:"parallelism"`
	MaxConcepts int    `yaml:"maxConcepts"`
	ReportPath  string `yaml:"reportPath"`
	ParquetPath string `yaml:"parquetPath"`
}

// CacheConfig enables the Redis response cache.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

// DatabaseConfig describes the optional Postgres ledger mirror.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// GraphConfig describes the optional Neo4j concept graph.
type GraphConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// KafkaConfig describes the optional enrichment event stream.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MetricsConfig toggles the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Corpus finds a configured corpus by name.
func (c Config) Corpus(name string) (CorpusConfig, bool) {
	for _, corpus := range c.Corpora {
		if corpus.Name == name {
			return corpus, true
		}
	}
	return CorpusConfig{}, false
}

// Validate rejects settings no run can work with.
func (c Config) Validate() error {
	if c.Extractor.MaxTerms <= 0 {
		return fmt.Errorf("extractor.maxTerms must be positive, got %d", c.Extractor.MaxTerms)
	}
	if c.Extractor.SpanWidth <= 0 {
		return fmt.Errorf("extractor.spanWidth must be positive, got %d", c.Extractor.SpanWidth)
	}
	if c.Extractor.DedupThreshold < 0 || c.Extractor.DedupThreshold > 1 {
		return fmt.Errorf("extractor.dedupThreshold must be within [0,1], got %.2f", c.Extractor.DedupThreshold)
	}
	if c.Classifier.Retries < 0 || c.Resolver.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Similarity.MaxConcepts < 2 {
		return fmt.Errorf("similarity.maxConcepts must be at least 2, got %d", c.Similarity.MaxConcepts)
	}
	if c.Ledger.Dir == "" {
		return fmt.Errorf("ledger.dir is required")
	}
	return nil
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to the CONCEPT_ENRICHER_CONFIG environment variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(classifierModelEnv); v != "" {
		c.Classifier.Model = v
	}

	if c.Classifier.APIKey == "" {
		c.Classifier.APIKey = providerKey(c.Classifier.Provider)
	}
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = providerKey(c.Embedder.Provider)
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.RedisAddr = v
	}

	if v := os.Getenv(neo4jURIEnv); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv(neo4jUserEnv); v != "" {
		c.Graph.User = v
	}
	if v := os.Getenv(neo4jPasswordEnv); v != "" {
		c.Graph.Password = v
	}

	if v := os.Getenv(kafkaBrokersEnv); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv(openAIAPIKeyEnv)
	case "anthropic", "claude":
		return os.Getenv(anthropicAPIKeyEnv)
	case "gemini":
		return os.Getenv(geminiAPIKeyEnv)
	default:
		return ""
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Corpora) > 0 {
		base.Corpora = override.Corpora
	}

	if override.Ledger.Dir != "" {
		base.Ledger.Dir = override.Ledger.Dir
	}
	if override.Ledger.KeyphraseFile != "" {
		base.Ledger.KeyphraseFile = override.Ledger.KeyphraseFile
	}
	if override.Ledger.ConceptFile != "" {
		base.Ledger.ConceptFile = override.Ledger.ConceptFile
	}
	if override.Ledger.CheckpointFile != "" {
		base.Ledger.CheckpointFile = override.Ledger.CheckpointFile
	}

	if override.Extractor.Provider != "" {
		base.Extractor.Provider = override.Extractor.Provider
	}
	if override.Extractor.MaxTerms != 0 {
		base.Extractor.MaxTerms = override.Extractor.MaxTerms
	}
	if override.Extractor.SpanWidth != 0 {
		base.Extractor.SpanWidth = override.Extractor.SpanWidth
	}
	if override.Extractor.DedupThreshold != 0 {
		base.Extractor.DedupThreshold = override.Extractor.DedupThreshold
	}
	if override.Extractor.Language != "" {
		base.Extractor.Language = override.Extractor.Language
	}
	if override.Extractor.Endpoint != "" {
		base.Extractor.Endpoint = override.Extractor.Endpoint
	}
	if override.Extractor.APIKey != "" {
		base.Extractor.APIKey = override.Extractor.APIKey
	}
	if override.Extractor.Timeout != 0 {
		base.Extractor.Timeout = override.Extractor.Timeout
	}

	base.Classifier = mergeClassifier(base.Classifier, override.Classifier)

	if override.Resolver.SearchURL != "" {
		base.Resolver.SearchURL = override.Resolver.SearchURL
	}
	if override.Resolver.Categories != nil {
		base.Resolver.Categories = override.Resolver.Categories
	}
	if override.Resolver.MaxResults != 0 {
		base.Resolver.MaxResults = override.Resolver.MaxResults
	}
	if override.Resolver.UserAgent != "" {
		base.Resolver.UserAgent = override.Resolver.UserAgent
	}
	if override.Resolver.Timeout != 0 {
		base.Resolver.Timeout = override.Resolver.Timeout
	}
	if override.Resolver.Retries != 0 {
		base.Resolver.Retries = override.Resolver.Retries
	}
	base.Resolver.Breaker = mergeBreaker(base.Resolver.Breaker, override.Resolver.Breaker)

	if override.Embedder.Provider != "" {
		base.Embedder.Provider = override.Embedder.Provider
	}
	if override.Embedder.Model != "" {
		base.Embedder.Model = override.Embedder.Model
	}
	if override.Embedder.APIKey != "" {
		base.Embedder.APIKey = override.Embedder.APIKey
	}
	if override.Embedder.BaseURL != "" {
		base.Embedder.BaseURL = override.Embedder.BaseURL
	}
	if override.Embedder.BatchSize != 0 {
		base.Embedder.BatchSize = override.Embedder.BatchSize
	}
	if override.Embedder.Timeout != 0 {
		base.Embedder.Timeout = override.Embedder.Timeout
	}

	if override.Similarity.Parallelism != 0 {
		base.Similarity.Parallelism = override.Similarity.Parallelism
	}
	if override.Similarity.MaxConcepts != 0 {
		base.Similarity.MaxConcepts = override.Similarity.MaxConcepts
	}
	if override.Similarity.ReportPath != "" {
		base.Similarity.ReportPath = override.Similarity.ReportPath
	}
	if override.Similarity.ParquetPath != "" {
		base.Similarity.ParquetPath = override.Similarity.ParquetPath
	}

	if override.Cache.RedisAddr != "" {
		base.Cache.RedisAddr = override.Cache.RedisAddr
		base.Cache.Password = override.Cache.Password
		base.Cache.DB = override.Cache.DB
	}
	if override.Cache.TTL != 0 {
		base.Cache.TTL = override.Cache.TTL
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Graph.URI != "" {
		base.Graph = override.Graph
	}

	if len(override.Kafka.Brokers) > 0 {
		base.Kafka.Brokers = override.Kafka.Brokers
	}
	if override.Kafka.Topic != "" {
		base.Kafka.Topic = override.Kafka.Topic
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.Enabled {
		base.Metrics.Enabled = true
	}
	if override.Metrics.Port != 0 {
		base.Metrics.Port = override.Metrics.Port
	}

	return base
}

func mergeClassifier(base, override ClassifierConfig) ClassifierConfig {
	if override.Provider != "" {
		base.Provider = override.Provider
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Prompt != "" {
		base.Prompt = override.Prompt
	}
	if override.AffirmativeToken != "" {
		base.AffirmativeToken = override.AffirmativeToken
	}
	if override.MaxTokens != 0 {
		base.MaxTokens = override.MaxTokens
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	if override.Retries != 0 {
		base.Retries = override.Retries
	}
	base.Breaker = mergeBreaker(base.Breaker, override.Breaker)
	return base
}

func mergeBreaker(base, override BreakerConfig) BreakerConfig {
	if override.Enabled {
		base.Enabled = true
	}
	if override.MaxRequests != 0 {
		base.MaxRequests = override.MaxRequests
	}
	if override.Interval != 0 {
		base.Interval = override.Interval
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	if override.ReadyToTripRatio != 0 {
		base.ReadyToTripRatio = override.ReadyToTripRatio
	}
	return base
}

func defaultBreaker() BreakerConfig {
	return BreakerConfig{
		Enabled:          false,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Corpora: []CorpusConfig{
			{Name: "elife-train", Reader: "elife", Path: "data/elife/train.json"},
			{Name: "elife-val", Reader: "elife", Path: "data/elife/val.json"},
			{Name: "elife-test", Reader: "elife", Path: "data/elife/test.json"},
		},
		Ledger: LedgerConfig{
			Dir:            "out",
			KeyphraseFile:  "keyphrases.json",
			ConceptFile:    "concepts.json",
			CheckpointFile: "checkpoint.json",
		},
		Extractor: ExtractorConfig{
			Provider:       "yake",
			MaxTerms:       10,
			SpanWidth:      2,
			DedupThreshold: 0.9,
			Language:       "en",
			Timeout:        30 * time.Second,
		},
		Classifier: ClassifierConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			Prompt:           DefaultClassifierPrompt,
			AffirmativeToken: "yes",
			MaxTokens:        16,
			Timeout:          20 * time.Second,
			Breaker:          defaultBreaker(),
		},
		Resolver: ResolverConfig{
			SearchURL:  "https://lookup.dbpedia.org/api/search",
			Categories: append([]string(nil), DefaultCategories...),
			MaxResults: 5,
			UserAgent:  "ConceptEnricher/1.0",
			Timeout:    15 * time.Second,
			Breaker:    defaultBreaker(),
		},
		Embedder: EmbedderConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 64,
			Timeout:   30 * time.Second,
		},
		Similarity: SimilarityConfig{
			MaxConcepts: 20000,
			ReportPath:  "out/similarity.json",
		},
		Cache:   CacheConfig{TTL: 7 * 24 * time.Hour},
		Kafka:   KafkaConfig{Topic: "concept.enriched"},
		Metrics: MetricsConfig{Enabled: false, Port: 9102},
	}
}

// Int parses an integer option with a fallback.
func (c CorpusConfig) Int(key string, fallback int) int {
	raw, ok := c.Options[key]
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}
