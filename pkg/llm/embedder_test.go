package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingClient counts calls and returns a fixed vector per text.
type fakeEmbeddingClient struct {
	mu    sync.Mutex
	calls int
	err   error
	empty bool
}

func (f *fakeEmbeddingClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if f.empty {
			vectors[i] = []float32{}
			continue
		}
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (f *fakeEmbeddingClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticTextBuilder struct{}

func (staticTextBuilder) BuildEmbeddingText(doc models.Document) string {
	return doc.Title
}

func newTestEmbedder(client EmbeddingClient) *Embedder {
	return NewEmbedderWithClient(client, EmbedderConfig{Workers: 4}, staticTextBuilder{})
}

func TestEmbed(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client)

	vector := e.Embed(context.Background(), "zootopia")
	require.Len(t, vector, 2)
	assert.Equal(t, float64(len("zootopia")), vector[0])
	assert.Equal(t, 1, e.CacheSize())
}

func TestEmbedBlankInput(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client)

	assert.Empty(t, e.Embed(context.Background(), ""))
	assert.Empty(t, e.Embed(context.Background(), "   \n\t"))
	assert.Zero(t, client.callCount(), "blank input never reaches the provider")
	assert.Zero(t, e.CacheSize())
}

func TestEmbedCacheHit(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client)

	first := e.Embed(context.Background(), "moana")
	second := e.Embed(context.Background(), "moana")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.callCount(), "second call served from cache")
	assert.Equal(t, 1, e.CacheSize())
}

func TestEmbedUnconfigured(t *testing.T) {
	e := newTestEmbedder(nil)

	vector := e.Embed(context.Background(), "zootopia")
	assert.NotNil(t, vector)
	assert.Empty(t, vector)
	assert.Zero(t, e.CacheSize(), "empty vectors are never cached")
	assert.False(t, e.Configured())
}

func TestEmbedProviderError(t *testing.T) {
	client := &fakeEmbeddingClient{err: errors.New("rate limited")}
	e := newTestEmbedder(client)

	assert.Empty(t, e.Embed(context.Background(), "zootopia"))
	assert.Zero(t, e.CacheSize(), "failures are not cached, a retry can succeed")

	// Once the provider recovers the same text embeds fine
	client.err = nil
	assert.NotEmpty(t, e.Embed(context.Background(), "zootopia"))
	assert.Equal(t, 1, e.CacheSize())
}

func TestEmbedEmptyProviderResult(t *testing.T) {
	client := &fakeEmbeddingClient{empty: true}
	e := newTestEmbedder(client)

	assert.Empty(t, e.Embed(context.Background(), "zootopia"))
	assert.Zero(t, e.CacheSize())
}

func TestEmbedBatch(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client)

	docs := []models.Document{
		{ID: "movie_1", Title: "Zootopia"},
		{ID: "movie_2", Title: "Moana"},
		{ID: "movie_3", Title: "Coco"},
	}

	embedded := e.EmbedBatch(context.Background(), docs)

	// Order and count are preserved
	require.Len(t, embedded, 3)
	assert.Equal(t, "movie_1", embedded[0].ID)
	assert.Equal(t, "movie_2", embedded[1].ID)
	assert.Equal(t, "movie_3", embedded[2].ID)
	for _, doc := range embedded {
		assert.Len(t, doc.Embedding, 2)
	}
	assert.Equal(t, 3, e.CacheSize())
}

func TestEmbedBatchUnconfigured(t *testing.T) {
	e := newTestEmbedder(nil)

	embedded := e.EmbedBatch(context.Background(), []models.Document{
		{ID: "movie_1", Title: "Zootopia"},
	})

	// Failed embeds keep the document with an empty vector
	require.Len(t, embedded, 1)
	assert.Empty(t, embedded[0].Embedding)
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := newTestEmbedder(&fakeEmbeddingClient{})
	assert.Empty(t, e.EmbedBatch(context.Background(), nil))
}

func TestClearCache(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e := newTestEmbedder(client)

	e.Embed(context.Background(), "zootopia")
	require.Equal(t, 1, e.CacheSize())

	e.ClearCache()
	assert.Zero(t, e.CacheSize())

	e.Embed(context.Background(), "zootopia")
	assert.Equal(t, 2, client.callCount(), "cleared cache forces a fresh provider call")
}

func TestConfiguredHelper(t *testing.T) {
	assert.False(t, configured("", "PLACEHOLDER"))
	assert.False(t, configured("  ", "PLACEHOLDER"))
	assert.False(t, configured("PLACEHOLDER", "PLACEHOLDER"))
	assert.True(t, configured("real-key", "PLACEHOLDER"))
	assert.True(t, configured("real-key", ""))
}
