// Package llm provides the OpenAI-compatible chat/embedding client the
// LLM classifier (pkg/llmclassify) talks to.
package llm

import (
	"context"
)

// GenerateResponseResult contains the response content and usage metadata.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient defines the chat-completion and embedding operations
// pkg/llmclassify's Classifier needs from a provider. Satisfied by *Client
// (OpenAI-compatible). pkg/llmclassify's Anthropic adapter implements only
// the chat methods (GenerateResponse, GetModel, GetEndpoint), not the
// embedding ones.
type LLMClient interface {
	// GenerateResponse runs one chat completion and returns its content and
	// token usage.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure Client implements LLMClient at compile time.
var _ LLMClient = (*Client)(nil)
