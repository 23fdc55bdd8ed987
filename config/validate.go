package config

import (
	"errors"
	"fmt"
	"strconv"

	"lexassist-backend/storage"
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Corpus.LawsDir == "" {
		return errors.New("corpus laws_dir cannot be empty")
	}

	if err := validateStorage("backups", c.Storage.Backups); err != nil {
		return err
	}
	if err := validateStorage("contracts", c.Storage.Contracts); err != nil {
		return err
	}

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want gemini or openai)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm model cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if c.LLM.MaxRetries < 1 {
		return errors.New("llm max_retries must be at least 1")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %.2f out of range [0,2]", c.LLM.Temperature)
	}

	r := c.Retrieval
	if r.TopK <= 0 || r.TopActs <= 0 || r.DisplayKeywords <= 0 {
		return errors.New("retrieval top_k, top_acts and display_keywords must be positive")
	}
	if r.HistoryTurns < 0 || r.StarterQuestions < 0 || r.FollowUps < 0 {
		return errors.New("retrieval history_turns, starter_questions and followups cannot be negative")
	}

	if c.Session.IdleTTL < 0 {
		return errors.New("session idle_ttl cannot be negative")
	}
	return nil
}

func validateStorage(name string, s storage.Config) error {
	switch s.Type {
	case storage.TypeLocal:
		if s.LocalPath == "" {
			return fmt.Errorf("storage %s local_path cannot be empty", name)
		}
	case storage.TypeS3:
		if s.S3Bucket == "" {
			return fmt.Errorf("storage %s s3_bucket cannot be empty when type is s3", name)
		}
	default:
		return fmt.Errorf("unknown storage %s type %q", name, s.Type)
	}
	return nil
}
