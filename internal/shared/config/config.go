package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	Persistence     string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	LogLevel        string
	LogFormat       string
	RateLimitRPS    float64
	RateLimitBurst  int

	LLM       LLMConfig
	Retrieval RetrievalConfig
	Reasoning ReasoningConfig
	Chat      ChatConfig
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	Timeout         time.Duration
}

// RetrievalConfig configures the evidence index.
type RetrievalConfig struct {
	EmbeddingProvider string
	EmbeddingModel    string
	EvidenceDBPath    string
	TopK              int
	Timeout           time.Duration
}

// ReasoningConfig exposes the confidence thresholds.
type ReasoningConfig struct {
	HighRatio   float64
	MediumRatio float64
}

// ChatConfig configures conversational answers.
type ChatConfig struct {
	HistoryWindow int
}

// Load reads configuration from config.yaml, an optional .env file and the
// environment, in increasing order of precedence.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, eris.Wrap(err, "config: read config.yaml")
		}
	}

	for _, path := range []string{".env", "cmd/.env"} {
		if err := mergeEnvFile(v, path); err != nil {
			return Config{}, err
		}
	}

	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))

	cfg := Config{
		Port:            v.GetString("port"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),
		DatabaseURL:     dbURL,
		Persistence:     normalizePersistence(v.GetString("persistence"), dbURL),
		ObjectStoreType: normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:   v.GetString("local_store_dir"),
		AWSRegion:       v.GetString("aws_region"),
		S3Bucket:        v.GetString("s3_bucket"),
		S3Prefix:        v.GetString("s3_prefix"),
		SSEKMSKeyID:     v.GetString("s3_sse_kms_key_id"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		RateLimitRPS:    v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:  v.GetInt("rate_limit_burst"),
		LLM: LLMConfig{
			Provider:        strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
			Model:           v.GetString("llm_model"),
			OpenAIAPIKey:    v.GetString("openai_api_key"),
			OpenAIBaseURL:   v.GetString("openai_base_url"),
			AnthropicAPIKey: v.GetString("anthropic_api_key"),
			Timeout:         seconds(v.GetInt("llm_timeout_seconds"), 30),
		},
		Retrieval: RetrievalConfig{
			EmbeddingProvider: strings.ToLower(strings.TrimSpace(v.GetString("embedding_provider"))),
			EmbeddingModel:    v.GetString("embedding_model"),
			EvidenceDBPath:    v.GetString("evidence_db_path"),
			TopK:              v.GetInt("retrieval_top_k"),
			Timeout:           seconds(v.GetInt("retrieval_timeout_seconds"), 5),
		},
		Reasoning: ReasoningConfig{
			HighRatio:   v.GetFloat64("confidence_high_ratio"),
			MediumRatio: v.GetFloat64("confidence_medium_ratio"),
		},
		Chat: ChatConfig{
			HistoryWindow: v.GetInt("chat_history_window"),
		},
	}

	if cfg.Persistence == "postgres" && dbURL == "" {
		return Config{}, eris.New("config: PERSISTENCE=postgres requires DATABASE_URL")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "dev")
	v.SetDefault("cors_allow_origins", "http://localhost:5173")
	v.SetDefault("database_url", "")
	v.SetDefault("persistence", "")
	v.SetDefault("object_store", "local")
	v.SetDefault("local_store_dir", "./data")
	v.SetDefault("aws_region", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("s3_sse_kms_key_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("rate_limit_rps", 2.0)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("llm_provider", "")
	v.SetDefault("llm_model", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("llm_timeout_seconds", 30)
	v.SetDefault("embedding_provider", "hash")
	v.SetDefault("embedding_model", "")
	v.SetDefault("evidence_db_path", "./data/evidence.db")
	v.SetDefault("retrieval_top_k", 15)
	v.SetDefault("retrieval_timeout_seconds", 5)
	v.SetDefault("confidence_high_ratio", 0.7)
	v.SetDefault("confidence_medium_ratio", 0.4)
	v.SetDefault("chat_history_window", 6)
}

// mergeEnvFile merges KEY=VALUE pairs from path when the file exists.
func mergeEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return eris.Wrapf(err, "config: stat %s", path)
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.MergeInConfig(); err != nil {
		return eris.Wrapf(err, "config: merge %s", path)
	}
	return nil
}

func seconds(raw, def int) time.Duration {
	if raw <= 0 {
		raw = def
	}
	return time.Duration(raw) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizePersistence(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "file":
		return "file"
	case "postgres", "pg":
		return "postgres"
	}
	if dbURL != "" {
		return "postgres"
	}
	return "file"
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
