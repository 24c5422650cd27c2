package llmclassify

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/llm"
	"github.com/apicrafter/metacrafter-go/pkg/retry"
)

// State is one of the classifier's lifecycle states:
// Idle -> IndexBuilding -> Ready -> Classifying -> Ready, with Failed
// terminal.
type State string

const (
	StateIdle          State = "idle"
	StateIndexBuilding State = "index_building"
	StateReady         State = "ready"
	StateClassifying   State = "classifying"
	StateFailed        State = "failed"
)

const (
	defaultTopK        = 10
	defaultMaxRetries  = 3
	defaultInitialWait = 500 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
)

// Config parameterizes a Classifier.
type Config struct {
	RegistryPath string

	EmbeddingProvider ProviderConfig
	ChatProvider      ProviderConfig

	TopK       int
	MaxRetries int

	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Classifier is the RAG-based LLM classifier. It satisfies
// engine.LLMClassifier.
type Classifier struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	state State

	store     *vectorStore
	entries   map[string]Entry
	embed     embedder
	chat      chatClient
	retriever *retriever
}

// New constructs a Classifier in the Idle state; call EnsureReady (or just
// Classify, which builds the index lazily on first use) before querying it.
func New(cfg Config) (*Classifier, error) {
	if cfg.RegistryPath == "" {
		return nil, apperrors.New(apperrors.KindConfiguration, "registry path is required", false, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	embedClient, err := newEmbeddingClient(resolveAPIKey(cfg.EmbeddingProvider), logger)
	if err != nil {
		return nil, err
	}
	chat, err := newChatClient(resolveAPIKey(cfg.ChatProvider), logger)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		cfg:    cfg,
		logger: logger.Named("llmclassify"),
		state:  StateIdle,
		store:  newVectorStore(),
		embed:  newLLMEmbedder(embedClient, cfg.EmbeddingProvider.Model),
		chat:   chat,
	}, nil
}

// resolveAPIKey looks up the provider's `*_API_KEY` environment variable,
// only when the caller didn't supply a key explicitly.
func resolveAPIKey(cfg ProviderConfig) ProviderConfig {
	if cfg.APIKey != "" {
		return cfg
	}
	switch cfg.Name {
	case "anthropic":
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

// State returns the classifier's current lifecycle state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnsureReady builds the vector index from the registry if it hasn't been
// built yet. Safe to call concurrently; only one caller performs the
// build.
func (c *Classifier) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateReady || c.state == StateClassifying {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateFailed {
		c.mu.Unlock()
		return apperrors.New(apperrors.KindLLMProvider, "classifier previously failed to build its index", false, nil)
	}
	c.state = StateIndexBuilding
	c.mu.Unlock()

	if err := c.buildIndex(ctx); err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

func (c *Classifier) buildIndex(ctx context.Context) error {
	f, err := os.Open(c.cfg.RegistryPath)
	if err != nil {
		return apperrors.New(apperrors.KindConfiguration, "open registry", false, err)
	}
	defer f.Close()

	entries, err := loadRegistryFile(f)
	if err != nil {
		return apperrors.New(apperrors.KindConfiguration, "load registry", false, err)
	}

	c.store.Reset()
	entryMap := make(map[string]Entry, len(entries))

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Textualize()
		entryMap[e.ID] = e
	}

	embeddings, err := c.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return apperrors.New(apperrors.KindLLMProvider, "embed registry", retry.IsRetryable(err), err)
	}
	if len(embeddings) != len(entries) {
		return apperrors.New(apperrors.KindLLMProvider, "embedding count mismatch", false, nil)
	}

	for i, e := range entries {
		c.store.Add(e.ID, embeddings[i], e.metadata())
	}

	c.entries = entryMap
	c.retriever = newRetriever(c.store, c.embed, entryMap, c.cfg.TopK)
	return nil
}

func loadRegistryFile(r io.Reader) ([]Entry, error) {
	return LoadRegistry(r)
}

// Classify implements engine.LLMClassifier. It retrieves the nearest
// registry entries, prompts the chat model, and returns the classified
// dataclass and confidence. On any unrecoverable failure it returns
// ("", 0, nil): a null classification never aborts the scan.
func (c *Classifier) Classify(ctx context.Context, fieldName string, samples []string) (string, float64, error) {
	return c.ClassifyWithFilters(ctx, fieldName, samples, Filters{})
}

// ClassifyWithFilters is Classify with explicit country/lang/category
// filters applied to the retrieval step.
func (c *Classifier) ClassifyWithFilters(ctx context.Context, fieldName string, samples []string, filters Filters) (string, float64, error) {
	if err := c.EnsureReady(ctx); err != nil {
		c.logger.Warn("index build failed, skipping LLM classification", zap.Error(err))
		return "", 0, nil
	}

	c.mu.Lock()
	c.state = StateClassifying
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.state == StateClassifying {
			c.state = StateReady
		}
		c.mu.Unlock()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	entries, err := c.retriever.Retrieve(reqCtx, fieldName, samples, filters)
	if err != nil {
		c.logger.Warn("retrieval failed", zap.String("field", fieldName), zap.Error(err))
		return "", 0, nil
	}
	if len(entries) == 0 {
		return "", 0, nil
	}

	prompt := buildClassificationPrompt(fieldName, samples, entries)

	resp, err := c.classifyWithRetry(reqCtx, prompt)
	if err != nil {
		c.logger.Warn("llm classification failed after retries", zap.String("field", fieldName), zap.Error(err))
		return "", 0, nil
	}
	if resp.DatatypeID == nil || *resp.DatatypeID == "" {
		return "", 0, nil
	}
	return *resp.DatatypeID, resp.Confidence, nil
}

// classifyWithRetry calls the chat model and tolerantly parses its reply.
// Retries go through retry.DoIfRetryable: transient provider failures
// (rate limits, 5xx, timeouts — anything the error taxonomy marks
// retryable) back off exponentially, while permanent ones (auth, unknown
// model) fail immediately instead of burning the retry budget.
func (c *Classifier) classifyWithRetry(ctx context.Context, prompt string) (classificationResponse, error) {
	cfg := &retry.Config{
		MaxRetries:       c.cfg.MaxRetries,
		InitialDelay:     defaultInitialWait,
		MaxDelay:         10 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}

	var parsed classificationResponse
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		result, err := c.chat.GenerateResponse(ctx, prompt, "", 0.0)
		if err != nil {
			return err
		}
		resp, err := llm.ParseJSONResponse[classificationResponse](result.Content)
		if err != nil {
			// A malformed reply is worth re-asking for; the model may well
			// emit valid JSON on the next attempt.
			return apperrors.New(apperrors.KindLLMProvider, "parse llm classification response", true, err)
		}
		parsed = resp.clamp()
		return nil
	})
	if err != nil {
		return classificationResponse{}, err
	}
	return parsed, nil
}
