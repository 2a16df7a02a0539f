package provider

import (
	"context"
	"errors"

	"github.com/taskflowhq/taskflow/config"
	"github.com/taskflowhq/taskflow/models"
	openai_provider "github.com/taskflowhq/taskflow/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the interface all LLM implementations must satisfy. A single
// call sends the accumulated conversation plus the tool catalogue and returns
// the assistant's next message, which carries either plain content or a batch
// of tool calls.
type Provider interface {
	ChatCompletion(ctx context.Context, messages []models.Message, tools []models.ToolDefinition) (models.Message, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.OpenAIConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.CompletionModel, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
