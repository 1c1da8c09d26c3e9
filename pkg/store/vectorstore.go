package store

import (
	"encoding/json"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/screenwise/cinerag/internal/types"
)

type VectorStoreConfig struct {
	// SnapshotKey is the KV slot the document snapshot is written to.
	SnapshotKey string
}

// VectorStore is an in-memory document index with cosine-similarity search
// and best-effort snapshot persistence. Memory is authoritative: losing the
// snapshot only degrades to an empty store.
type VectorStore struct {
	config VectorStoreConfig
	kv     types.KV

	mu    sync.RWMutex
	docs  map[string]models.Document
	order []string // insertion order, for deterministic iteration and tie-breaks
}

func NewWithConfig(kv types.KV, config VectorStoreConfig) *VectorStore {
	if config.SnapshotKey == "" {
		config.SnapshotKey = "rag_vector_store"
	}

	vs := &VectorStore{
		config: config,
		kv:     kv,
		docs:   make(map[string]models.Document),
	}
	vs.loadSnapshot()
	return vs
}

// Upsert sets or replaces the document under its id and persists a snapshot.
func (vs *VectorStore) Upsert(doc models.Document) {
	vs.mu.Lock()
	vs.put(doc)
	vs.mu.Unlock()
	vs.persist()
}

// UpsertMany upserts all documents and returns how many ids did not exist
// before the call. Existing documents are overwritten with the new payload.
func (vs *VectorStore) UpsertMany(docs []models.Document) int {
	vs.mu.Lock()
	added := 0
	for _, doc := range docs {
		if _, exists := vs.docs[doc.ID]; !exists {
			added++
		}
		vs.put(doc)
	}
	vs.mu.Unlock()
	vs.persist()
	return added
}

func (vs *VectorStore) put(doc models.Document) {
	if doc.Embedding == nil {
		doc.Embedding = []float64{}
	}
	doc.Relevance = 0
	if _, exists := vs.docs[doc.ID]; !exists {
		vs.order = append(vs.order, doc.ID)
	}
	vs.docs[doc.ID] = doc
}

// Search ranks every embedded document by cosine similarity against the
// query vector, drops results below threshold, and returns the top K as
// copies annotated with their similarity. Ties keep insertion order.
func (vs *VectorStore) Search(queryVector []float64, topK int, threshold float64) []models.Document {
	if len(queryVector) == 0 || topK <= 0 {
		return []models.Document{}
	}

	vs.mu.RLock()
	defer vs.mu.RUnlock()

	type scored struct {
		id         string
		similarity float64
	}

	scores := make([]scored, 0, len(vs.order))
	for _, id := range vs.order {
		doc := vs.docs[id]
		if len(doc.Embedding) == 0 || len(doc.Embedding) != len(queryVector) {
			continue
		}
		similarity := cosineSimilarity(queryVector, doc.Embedding)
		if similarity < threshold {
			continue
		}
		scores = append(scores, scored{id: id, similarity: similarity})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].similarity > scores[j].similarity
	})

	if len(scores) > topK {
		scores = scores[:topK]
	}

	results := make([]models.Document, 0, len(scores))
	for _, s := range scores {
		doc := vs.docs[s.id].Clone()
		doc.Relevance = s.similarity
		results = append(results, doc)
	}
	return results
}

func (vs *VectorStore) Get(id string) (models.Document, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	doc, ok := vs.docs[id]
	if !ok {
		return models.Document{}, false
	}
	return doc.Clone(), true
}

func (vs *VectorStore) Has(id string) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	_, ok := vs.docs[id]
	return ok
}

// GetByKind returns the stored documents of one kind in insertion order.
func (vs *VectorStore) GetByKind(kind models.Kind) []models.Document {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	docs := make([]models.Document, 0)
	for _, id := range vs.order {
		if doc := vs.docs[id]; doc.Kind == kind {
			docs = append(docs, doc.Clone())
		}
	}
	return docs
}

// All returns every stored document in insertion order.
func (vs *VectorStore) All() []models.Document {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	docs := make([]models.Document, 0, len(vs.order))
	for _, id := range vs.order {
		docs = append(docs, vs.docs[id].Clone())
	}
	return docs
}

func (vs *VectorStore) Remove(id string) bool {
	vs.mu.Lock()
	_, ok := vs.docs[id]
	if ok {
		delete(vs.docs, id)
		for i, existing := range vs.order {
			if existing == id {
				vs.order = append(vs.order[:i], vs.order[i+1:]...)
				break
			}
		}
	}
	vs.mu.Unlock()
	if ok {
		vs.persist()
	}
	return ok
}

func (vs *VectorStore) Count() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.docs)
}

// Clear drops every document and evicts the persisted snapshot.
func (vs *VectorStore) Clear() {
	vs.mu.Lock()
	vs.docs = make(map[string]models.Document)
	vs.order = nil
	vs.mu.Unlock()

	if err := vs.kv.Delete(vs.config.SnapshotKey); err != nil {
		log.Printf("store: failed to evict snapshot: %v", err)
	}
}

// persist writes the snapshot best-effort. On a write failure it retries
// once with every embedding stripped to fit storage-size limits, then gives
// up; the in-memory index stays authoritative either way.
func (vs *VectorStore) persist() {
	vs.mu.RLock()
	docs := make([]models.Document, 0, len(vs.order))
	for _, id := range vs.order {
		docs = append(docs, vs.docs[id])
	}
	vs.mu.RUnlock()

	data, err := json.Marshal(docs)
	if err != nil {
		log.Printf("store: failed to encode snapshot: %v", err)
		return
	}
	if err := vs.kv.Set(vs.config.SnapshotKey, data); err == nil {
		return
	}

	for i := range docs {
		docs[i].Embedding = []float64{}
	}
	data, err = json.Marshal(docs)
	if err != nil {
		log.Printf("store: failed to encode stripped snapshot: %v", err)
		return
	}
	if err := vs.kv.Set(vs.config.SnapshotKey, data); err != nil {
		log.Printf("store: giving up persisting snapshot: %v", err)
	}
}

// loadSnapshot repopulates the index from the persisted snapshot. A missing
// or unreadable snapshot just leaves the store empty.
func (vs *VectorStore) loadSnapshot() {
	data, err := vs.kv.Get(vs.config.SnapshotKey)
	if err != nil {
		log.Printf("store: failed to read snapshot: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		log.Printf("store: failed to decode snapshot: %v", err)
		return
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	for _, doc := range docs {
		vs.put(doc)
	}
}

// cosineSimilarity is dot(a,b) / (|a|*|b|), defined as 0 when the lengths
// differ or either norm is zero. It never divides by zero.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
