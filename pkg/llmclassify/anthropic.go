package llmclassify

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/apicrafter/metacrafter-go/pkg/llm"
)

// anthropicClient adapts github.com/liushuangls/go-anthropic/v2 to the
// same chat-completion shape as pkg/llm.Client's GenerateResponse, so both
// providers sit behind one factory table.
type anthropicClient struct {
	client *anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	if model == "" {
		model = string(anthropic.ModelClaude3Dot5SonnetLatest)
	}
	return &anthropicClient{client: anthropic.NewClient(apiKey), model: model}
}

func (c *anthropicClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*llm.GenerateResponseResult, error) {
	temp := float32(temperature)
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		MaxTokens:   1024,
		Temperature: &temp,
	}
	if systemMessage != "" {
		req.System = systemMessage
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic CreateMessages: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			content += *block.Text
		}
	}

	return &llm.GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (c *anthropicClient) GetModel() string    { return c.model }
func (c *anthropicClient) GetEndpoint() string { return "https://api.anthropic.com" }
