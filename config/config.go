// Package config loads settings from config.yaml, .env and LEXASSIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lexassist-backend/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LEXASSIST"

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Storage   StorageConfig   `mapstructure:"storage"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Session   SessionConfig   `mapstructure:"session"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	GinMode  string `mapstructure:"gin_mode"`
	MaxBody  int64  `mapstructure:"max_body_bytes"`
	ReadOnly bool   `mapstructure:"read_only"` // disables law mutations
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CorpusConfig struct {
	LawsDir string `mapstructure:"laws_dir"`
}

// StorageConfig holds one backend per artifact kind
type StorageConfig struct {
	Backups   storage.Config `mapstructure:"backups"`
	Contracts storage.Config `mapstructure:"contracts"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Temperature float32       `mapstructure:"temperature"`
}

type RetrievalConfig struct {
	TopK             int `mapstructure:"top_k"`
	TopActs          int `mapstructure:"top_acts"`
	DisplayKeywords  int `mapstructure:"display_keywords"`
	HistoryTurns     int `mapstructure:"history_turns"`
	StarterQuestions int `mapstructure:"starter_questions"`
	FollowUps        int `mapstructure:"followups"`
}

// SessionConfig bounds how long unused sessions stay in memory; a zero idle_ttl disables expiry
type SessionConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

// Load reads .env (if present), then config.yaml from "." or "./configs", then env overrides
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
}

// LoadFile reads an explicit config file instead of searching
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults also registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.read_only", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("corpus.laws_dir", "./data/laws")

	for _, kind := range []string{"backups", "contracts"} {
		v.SetDefault("storage."+kind+".type", "local")
		v.SetDefault("storage."+kind+".local_path", "./data/"+kind)
		v.SetDefault("storage."+kind+".s3_bucket", "")
		v.SetDefault("storage."+kind+".s3_region", "ap-southeast-1")
		v.SetDefault("storage."+kind+".s3_prefix", "")
		v.SetDefault("storage."+kind+".aws_access_key", "")
		v.SetDefault("storage."+kind+".aws_secret_key", "")
	}

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.temperature", 0.2)

	v.SetDefault("retrieval.top_k", 8)
	v.SetDefault("retrieval.top_acts", 3)
	v.SetDefault("retrieval.display_keywords", 5)
	v.SetDefault("retrieval.history_turns", 3)
	v.SetDefault("retrieval.starter_questions", 5)
	v.SetDefault("retrieval.followups", 3)

	v.SetDefault("session.idle_ttl", "24h")
}
