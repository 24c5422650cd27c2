package llmclassify

import "context"

// embedder is the narrow slice of pkg/llm.LLMClient the index builder and
// retriever need; *llm.Client provides it through the llmEmbedder adapter
// below.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// llmEmbedder adapts a chatCompleter-and-embedder's CreateEmbedding(s)
// methods (pkg/llm.LLMClient's shape) to the embedder interface.
type llmEmbedder struct {
	client     embeddingClient
	model      string
	modelBatch string
}

// embeddingClient is the CreateEmbedding(s) slice of pkg/llm.LLMClient.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)
}

func newLLMEmbedder(client embeddingClient, model string) *llmEmbedder {
	return &llmEmbedder{client: client, model: model}
}

func (e *llmEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.CreateEmbedding(ctx, text, e.model)
}

func (e *llmEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.CreateEmbeddings(ctx, texts, e.model)
}
