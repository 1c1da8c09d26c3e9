package types

import (
	"context"

	"github.com/screenwise/cinerag/internal/models"
)

// Core interfaces

// Collector assembles normalized documents from the catalog API.
type Collector interface {
	CollectOne(ctx context.Context, kind models.Kind, id int) (models.Document, error)
	CollectBatch(ctx context.Context, kind models.Kind, ids []int, onProgress func(done, total int)) ([]models.Document, error)
	CollectPopular(ctx context.Context, kind models.Kind, limit int, onProgress func(done, total int)) ([]models.Document, error)
	BuildEmbeddingText(doc models.Document) string
}

// Embedder converts text into embedding vectors. An empty vector is a
// valid, non-error outcome (blank input, unconfigured or failing provider).
type Embedder interface {
	Embed(ctx context.Context, text string) []float64
	EmbedBatch(ctx context.Context, docs []models.Document) []models.Document
	CacheSize() int
	ClearCache()
}

// VectorStore indexes documents and ranks them by cosine similarity.
type VectorStore interface {
	Upsert(doc models.Document)
	UpsertMany(docs []models.Document) int
	Search(queryVector []float64, topK int, threshold float64) []models.Document
	Get(id string) (models.Document, bool)
	Has(id string) bool
	GetByKind(kind models.Kind) []models.Document
	All() []models.Document
	Remove(id string) bool
	Count() int
	Clear()
}

// ChatEngine turns a query plus grounding documents into an answer.
type ChatEngine interface {
	Chat(ctx context.Context, query string, contextDocs []models.Document) (string, error)
	ChatStream(ctx context.Context, query string, contextDocs []models.Document) (<-chan string, error)
	Configured() bool
}

// KV is the durable key-value persistence capability the vector store
// snapshots into. Implementations must treat values as opaque bytes.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
