// Package config loads docchat settings from YAML, a .env file and
// DOCCHAT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docchat/ai"
	"gopkg.in/yaml.v3"
)

// AIConfig selects the OpenAI-compatible hosts and models.
type AIConfig struct {
	EmbeddingHost     string  `yaml:"embedding_host"`
	CompletionHost    string  `yaml:"completion_host"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	CompletionModel   string  `yaml:"completion_model"`
	VisionModel       string  `yaml:"vision_model,omitempty"`
	APIKey            string  `yaml:"api_key,omitempty"`
	Temperature       float64 `yaml:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Provider converts the section into an ai.Config.
func (c AIConfig) Provider() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithCompletionHost(c.CompletionHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithCompletionModel(c.CompletionModel),
		ai.WithVisionModel(c.VisionModel),
		ai.WithAPIKey(c.APIKey),
		ai.WithTemperature(c.Temperature),
		ai.WithRateLimit(c.RequestsPerSecond, c.Burst),
	)
}

// ChunkConfig sizes the sliding window.
type ChunkConfig struct {
	MaxTokens int `yaml:"max_tokens"`
	Stride    int `yaml:"stride"`
}

// EmbeddingConfig sizes embedding batches.
type EmbeddingConfig struct {
	BatchSize      int `yaml:"batch_size"`
	MaxInputTokens int `yaml:"max_input_tokens"`
	PoolSize       int `yaml:"pool_size"`
}

// RetrievalConfig controls search and context reduction.
type RetrievalConfig struct {
	TopK          int    `yaml:"top_k"`
	ContextBudget int    `yaml:"context_budget"`
	CrossModel    string `yaml:"cross_model"`
	// SingleCorpusFallback answers unknown session ids from the newest corpus.
	SingleCorpusFallback bool `yaml:"single_corpus_fallback"`
}

// ConversationConfig sizes conversation memory.
type ConversationConfig struct {
	HistoryPairs    int `yaml:"history_pairs"`
	ProfileCapacity int `yaml:"profile_capacity"`
}

// MessengerConfig configures the Facebook webhook.
type MessengerConfig struct {
	PageToken         string        `yaml:"page_token,omitempty"`
	VerifyToken       string        `yaml:"verify_token,omitempty"`
	GraphURL          string        `yaml:"graph_url"`
	BufferDelay       time.Duration `yaml:"buffer_delay"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
}

// Enabled reports whether a page token is configured.
func (c MessengerConfig) Enabled() bool {
	return c.PageToken != ""
}

// EscalationConfig tunes the staff-request detector.
type EscalationConfig struct {
	Threshold float32  `yaml:"threshold"`
	Phrases   []string `yaml:"phrases,omitempty"`
}

// SMTPConfig configures escalation mail. Mail is off when Host is blank.
type SMTPConfig struct {
	Host     string   `yaml:"host,omitempty"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	From     string   `yaml:"from,omitempty"`
	To       []string `yaml:"to,omitempty"`
}

// DedupConfig configures message-id deduplication. A blank RedisAddr keeps
// the seen set in the local database.
type DedupConfig struct {
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// Config is the root configuration.
type Config struct {
	DataDir      string             `yaml:"data_dir"`
	Listen       string             `yaml:"listen"`
	AI           AIConfig           `yaml:"ai"`
	Chunk        ChunkConfig        `yaml:"chunk"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Conversation ConversationConfig `yaml:"conversation"`
	Messenger    MessengerConfig    `yaml:"messenger"`
	Escalation   EscalationConfig   `yaml:"escalation"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Dedup        DedupConfig        `yaml:"dedup"`
}

// VectorIndexPath is the badger directory under DataDir.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.DataDir, "vectors")
}

// DocumentStorePath is the SQLite file under DataDir.
func (c *Config) DocumentStorePath() string {
	return filepath.Join(c.DataDir, "docchat.db")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, fills unset fields with defaults and
// applies environment overrides. A blank or missing path yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
			}
		}
	}
	applyDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored and variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks ranges that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunk.MaxTokens < 1 || c.Chunk.Stride < 1 {
		errs = append(errs, errors.New("chunk max_tokens and stride must be positive"))
	}
	if c.Escalation.Threshold <= 0 || c.Escalation.Threshold > 1 {
		errs = append(errs, fmt.Errorf("escalation threshold %v outside (0, 1]", c.Escalation.Threshold))
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp port %d out of range", c.SMTP.Port))
	}
	if c.Dedup.TTL <= 0 {
		errs = append(errs, errors.New("dedup ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}

	defaults := ai.DefaultConfig()
	setString(&cfg.AI.EmbeddingHost, defaults.EmbeddingHost)
	setString(&cfg.AI.CompletionHost, defaults.CompletionHost)
	setString(&cfg.AI.EmbeddingModel, defaults.EmbeddingModel)
	setString(&cfg.AI.CompletionModel, defaults.CompletionModel)
	setInt(&cfg.AI.Burst, defaults.Burst)

	setInt(&cfg.Chunk.MaxTokens, 350)
	setInt(&cfg.Chunk.Stride, 200)
	setInt(&cfg.Embedding.BatchSize, 100)
	setInt(&cfg.Embedding.MaxInputTokens, 8191)
	setInt(&cfg.Retrieval.TopK, 3)
	setInt(&cfg.Retrieval.ContextBudget, 1500)
	setString(&cfg.Retrieval.CrossModel, "refuse")
	setInt(&cfg.Conversation.HistoryPairs, 3)
	setInt(&cfg.Conversation.ProfileCapacity, 1024)

	setString(&cfg.Messenger.GraphURL, "https://graph.facebook.com/v13.0")
	if cfg.Messenger.BufferDelay <= 0 {
		cfg.Messenger.BufferDelay = 3 * time.Second
	}
	if cfg.Messenger.TranscribeTimeout <= 0 {
		cfg.Messenger.TranscribeTimeout = 20 * time.Second
	}

	if cfg.Escalation.Threshold == 0 {
		cfg.Escalation.Threshold = 0.7
	}
	setInt(&cfg.SMTP.Port, 587)

	if cfg.Dedup.TTL <= 0 {
		cfg.Dedup.TTL = 24 * time.Hour
	}
	setString(&cfg.Dedup.SweepSchedule, "@every 10m")
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

// applyEnv overlays DOCCHAT_* variables onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, field *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}

	str("DOCCHAT_OPENAI_API_KEY", &cfg.AI.APIKey)
	str("DOCCHAT_EMBEDDING_HOST", &cfg.AI.EmbeddingHost)
	str("DOCCHAT_COMPLETION_HOST", &cfg.AI.CompletionHost)
	str("DOCCHAT_EMBEDDING_MODEL", &cfg.AI.EmbeddingModel)
	str("DOCCHAT_COMPLETION_MODEL", &cfg.AI.CompletionModel)
	str("DOCCHAT_DATA_DIR", &cfg.DataDir)
	str("DOCCHAT_REDIS_ADDR", &cfg.Dedup.RedisAddr)
	str("DOCCHAT_FACEBOOK_TOKEN", &cfg.Messenger.PageToken)
	str("DOCCHAT_FACEBOOK_VERIFY_TOKEN", &cfg.Messenger.VerifyToken)
	str("DOCCHAT_SMTP_HOST", &cfg.SMTP.Host)
	str("DOCCHAT_EMAIL_PASS", &cfg.SMTP.Password)

	if v, ok := lookup("DOCCHAT_SMTP_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: DOCCHAT_SMTP_PORT: %w", ErrInvalidConfig, err)
		}
		cfg.SMTP.Port = port
	}

	// The admin mailbox both sends and receives alerts.
	if v, ok := lookup("DOCCHAT_EMAIL_ADMIN"); ok && strings.TrimSpace(v) != "" {
		admin := strings.TrimSpace(v)
		cfg.SMTP.Username = admin
		cfg.SMTP.From = admin
		if len(cfg.SMTP.To) == 0 {
			cfg.SMTP.To = []string{admin}
		}
	}
	return nil
}
