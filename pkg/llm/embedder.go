package llm

import (
	"context"
	"hash/fnv"
	"log"
	"strings"
	"sync"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/errgroup"
)

// EmbeddingClient is the one call the embedder needs from the provider.
// *openai.LLM satisfies it; tests inject counting fakes.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// TextBuilder renders a document into its embeddable text.
type TextBuilder interface {
	BuildEmbeddingText(doc models.Document) string
}

// EmbedderConfig represents the configuration for the embedding provider.
type EmbedderConfig struct {
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	Workers        int
	// Placeholder is a credential value treated as unconfigured.
	Placeholder string
}

// Embedder converts text into embedding vectors with a process-lifetime
// cache. Every failure path degrades to an empty vector; an empty vector is
// never cached, so a later retry can still succeed.
type Embedder struct {
	config EmbedderConfig
	client EmbeddingClient
	texts  TextBuilder

	mu    sync.Mutex
	cache map[uint64][]float64
}

// NewEmbedderWithConfig builds an embedder against an OpenAI-compatible embeddings
// endpoint. A missing or placeholder credential leaves the provider
// unconfigured: every Embed call then returns the empty vector immediately.
func NewEmbedderWithConfig(config EmbedderConfig, texts TextBuilder) (*Embedder, error) {
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "nomic-embed-text"
	}

	var client EmbeddingClient
	if configured(config.APIKey, config.Placeholder) {
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.EmbeddingModel),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		client = llm
	} else {
		log.Printf("llm: embedding provider not configured, embeddings disabled")
	}

	return NewEmbedderWithClient(client, config, texts), nil
}

// NewEmbedderWithClient wires an explicit embedding client; a nil client
// means unconfigured.
func NewEmbedderWithClient(client EmbeddingClient, config EmbedderConfig, texts TextBuilder) *Embedder {
	if config.Workers == 0 {
		config.Workers = 8
	}
	return &Embedder{
		config: config,
		client: client,
		texts:  texts,
		cache:  make(map[uint64][]float64),
	}
}

// Embed returns the embedding vector for text, or the empty vector for
// blank input, an unconfigured provider, or any provider failure.
func (e *Embedder) Embed(ctx context.Context, text string) []float64 {
	if strings.TrimSpace(text) == "" {
		return []float64{}
	}

	key := hashText(text)

	e.mu.Lock()
	cached, hit := e.cache[key]
	e.mu.Unlock()
	if hit {
		return cached
	}

	if e.client == nil {
		return []float64{}
	}

	vectors, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		log.Printf("llm: failed to create embedding: %v", err)
		return []float64{}
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return []float64{}
	}

	vector := make([]float64, len(vectors[0]))
	for i, v := range vectors[0] {
		vector[i] = float64(v)
	}

	e.mu.Lock()
	e.cache[key] = vector
	e.mu.Unlock()

	return vector
}

// EmbedBatch embeds every document's embedding text concurrently and
// attaches the result. Order and count are preserved: a failed embed yields
// the document with an empty vector rather than dropping it.
func (e *Embedder) EmbedBatch(ctx context.Context, docs []models.Document) []models.Document {
	if len(docs) == 0 {
		return []models.Document{}
	}

	out := make([]models.Document, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			doc.Embedding = e.Embed(gctx, e.texts.BuildEmbeddingText(doc))
			out[i] = doc
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return out
}

func (e *Embedder) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func (e *Embedder) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[uint64][]float64)
}

// Configured reports whether a provider client is wired up.
func (e *Embedder) Configured() bool {
	return e.client != nil
}

// hashText is a cheap non-cryptographic cache key. A collision only causes
// a stale cache hit, never corruption.
func hashText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

func configured(key, placeholder string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return placeholder == "" || key != placeholder
}
