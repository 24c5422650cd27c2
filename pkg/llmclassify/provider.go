package llmclassify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/llm"
)

// chatClient is the slice of pkg/llm.LLMClient the classifier needs for
// its chat half; *llm.Client and *anthropicClient both satisfy it.
type chatClient interface {
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*llm.GenerateResponseResult, error)
	GetModel() string
}

// ProviderConfig names one LLM provider and its credentials. An empty
// APIKey defers to the provider's `*_API_KEY` environment variable.
type ProviderConfig struct {
	Name     string // "openai" | "anthropic"
	Endpoint string // ignored for anthropic
	Model    string
	APIKey   string
}

// newChatClient resolves a ProviderConfig to a chatClient via a
// name -> factory table; no per-provider singletons.
func newChatClient(cfg ProviderConfig, logger *zap.Logger) (chatClient, error) {
	switch cfg.Name {
	case "openai", "":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "https://api.openai.com/v1"
		}
		client, err := llm.NewClient(&llm.Config{Endpoint: endpoint, Model: cfg.Model, APIKey: cfg.APIKey}, logger)
		if err != nil {
			return nil, apperrors.New(apperrors.KindConfiguration, "build openai client", false, err)
		}
		return client, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "anthropic provider requires an api key", false, nil)
		}
		return newAnthropicClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, apperrors.New(apperrors.KindConfiguration, fmt.Sprintf("unknown llm provider %q", cfg.Name), false, nil)
	}
}

// newEmbeddingClient resolves an embedding ProviderConfig. Only "openai"
// (or any OpenAI-wire-compatible endpoint) is supported; Anthropic's API
// has no embeddings endpoint.
func newEmbeddingClient(cfg ProviderConfig, logger *zap.Logger) (embeddingClient, error) {
	if cfg.Name != "openai" && cfg.Name != "" {
		return nil, apperrors.New(apperrors.KindConfiguration, fmt.Sprintf("unsupported embedding provider %q", cfg.Name), false, nil)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	client, err := llm.NewClient(&llm.Config{Endpoint: endpoint, Model: cfg.Model, APIKey: cfg.APIKey}, logger)
	if err != nil {
		return nil, apperrors.New(apperrors.KindConfiguration, "build embedding client", false, err)
	}
	return client, nil
}
