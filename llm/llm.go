// Package llm talks to hosted language models. Credentials are supplied per call
// and never stored.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAPIKey = errors.New("api key is required")
	ErrInvalidAPIKey = errors.New("api key has an unexpected format")
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrTimeout       = errors.New("model call timed out")
)

// Provider names accepted in configuration
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is a single-turn completion request
type Request struct {
	Operation   string // metrics label, e.g. "qa_answer"
	System      string
	Prompt      string
	Temperature float32
}

// Provider produces a completion for one request
type Provider interface {
	Complete(ctx context.Context, apiKey string, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, apiKey string, req Request) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, apiKey string, req Request) (string, error) {
	return f(ctx, apiKey, req)
}

// APIError is a non-success response from the model provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// ValidateKey checks a credential before any call is attempted.
// OpenAI secret keys always start with "sk-".
func ValidateKey(provider, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	if provider == ProviderOpenAI && !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("%w: OpenAI keys start with 'sk-'", ErrInvalidAPIKey)
	}
	return nil
}

// NewProvider builds the provider named in configuration
func NewProvider(name, model, baseURL string) (Provider, error) {
	switch name {
	case ProviderGemini:
		return NewGeminiProvider(model), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(model, WithBaseURL(baseURL)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", name)
	}
}
