package rag

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/screenwise/cinerag/internal/types"
)

type ServiceConfig struct {
	// TopK and Threshold drive plain vector retrieval.
	TopK      int
	Threshold float64
	// HybridThreshold is the looser cutoff used by the hybrid path before
	// lexical matches fill the remaining slots.
	HybridThreshold float64
}

// Service composes collection, embedding, storage and chat into the
// retrieval-augmented pipeline.
type Service struct {
	config    ServiceConfig
	collector types.Collector
	embedder  types.Embedder
	store     types.VectorStore
	chat      types.ChatEngine
}

func NewWithConfig(collector types.Collector, embedder types.Embedder, store types.VectorStore, chat types.ChatEngine, config ServiceConfig) *Service {
	if config.TopK == 0 {
		config.TopK = 5
	}
	if config.Threshold == 0 {
		config.Threshold = 0.5
	}
	if config.HybridThreshold == 0 {
		config.HybridThreshold = 0.3
	}
	return &Service{
		config:    config,
		collector: collector,
		embedder:  embedder,
		store:     store,
		chat:      chat,
	}
}

// InitializePopular ingests up to limit popular titles: collect, embed,
// upsert. Returns how many documents were newly added to the store.
func (s *Service) InitializePopular(ctx context.Context, kind models.Kind, limit int, onProgress func(done, total int)) (int, error) {
	docs, err := s.collector.CollectPopular(ctx, kind, limit, onProgress)
	if err != nil {
		return 0, err
	}
	return s.ingest(ctx, docs), nil
}

// InitializeWithIDs ingests an explicit id set. Re-running with overlapping
// ids re-embeds and overwrites rather than duplicating.
func (s *Service) InitializeWithIDs(ctx context.Context, kind models.Kind, ids []int, onProgress func(done, total int)) (int, error) {
	docs, err := s.collector.CollectBatch(ctx, kind, ids, onProgress)
	if err != nil {
		return 0, err
	}
	return s.ingest(ctx, docs), nil
}

// AddDocument collects, embeds and stores a single catalog item.
func (s *Service) AddDocument(ctx context.Context, kind models.Kind, id int) (bool, error) {
	doc, err := s.collector.CollectOne(ctx, kind, id)
	if err != nil {
		return false, err
	}
	doc.Embedding = s.embedder.Embed(ctx, s.collector.BuildEmbeddingText(doc))
	s.store.Upsert(doc)
	return true, nil
}

func (s *Service) ingest(ctx context.Context, docs []models.Document) int {
	embedded := s.embedder.EmbedBatch(ctx, docs)
	return s.store.UpsertMany(embedded)
}

// Retrieve embeds the query and returns the best-matching documents. An
// unconfigured or failing embedding provider yields an empty result, which
// callers must treat as a valid non-error outcome.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, threshold float64) []models.Document {
	if strings.TrimSpace(query) == "" {
		return []models.Document{}
	}

	queryVector := s.embedder.Embed(ctx, query)
	if len(queryVector) == 0 {
		return []models.Document{}
	}
	return s.store.Search(queryVector, topK, threshold)
}

// RetrieveHybrid is the richer retrieval path for open-ended questions:
// vector search at a looser threshold, with lexical matches filling the
// remaining slots. Vector hits keep priority; results are deduplicated by
// id and capped at topK.
func (s *Service) RetrieveHybrid(ctx context.Context, query string, topK int) []models.Document {
	if strings.TrimSpace(query) == "" {
		return []models.Document{}
	}
	if topK <= 0 {
		return []models.Document{}
	}

	combined := s.Retrieve(ctx, query, topK, s.config.HybridThreshold)

	seen := make(map[string]bool, len(combined))
	for _, doc := range combined {
		seen[doc.ID] = true
	}

	for _, doc := range s.lexicalMatches(query, topK) {
		if len(combined) >= topK {
			break
		}
		if !seen[doc.ID] {
			seen[doc.ID] = true
			combined = append(combined, doc)
		}
	}

	if len(combined) > topK {
		combined = combined[:topK]
	}
	return combined
}

// lexicalMatches scores every stored document against the query with the
// tiered substring rules and returns the top matches in score order, ties
// keeping store order.
func (s *Service) lexicalMatches(query string, topK int) []models.Document {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	words := queryWords(queryLower)

	type match struct {
		doc   models.Document
		score int
	}

	var matches []match
	for _, doc := range s.store.All() {
		score, ok := lexicalScore(doc, queryLower, words)
		if ok {
			matches = append(matches, match{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	docs := make([]models.Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.doc)
	}
	return docs
}

// lexicalScore applies the tiered matching rules: full-query and word
// matches in the title outrank matches in the overview. Documents matching
// neither are excluded.
func lexicalScore(doc models.Document, queryLower string, words []string) (int, bool) {
	titleLower := strings.ToLower(doc.Title)
	overviewLower := strings.ToLower(doc.Overview)

	if queryLower != "" && strings.Contains(titleLower, queryLower) {
		return 100, true
	}

	titleMatches := 0
	for _, word := range words {
		if strings.Contains(titleLower, word) {
			titleMatches++
		}
	}
	if len(words) > 0 && titleMatches == len(words) {
		return 80, true
	}
	if titleMatches > 0 {
		return 50 + titleMatches*10, true
	}

	if queryLower != "" && strings.Contains(overviewLower, queryLower) {
		return 40, true
	}

	overviewMatches := 0
	for _, word := range words {
		if strings.Contains(overviewLower, word) {
			overviewMatches++
		}
	}
	if overviewMatches > 0 {
		return 20 + overviewMatches*5, true
	}

	return 0, false
}

// queryWords tokenizes the lower-cased query, dropping words too short to
// be meaningful (so "zootopia 2" matches on "zootopia" alone).
func queryWords(queryLower string) []string {
	var words []string
	for _, word := range strings.Fields(queryLower) {
		if len(word) > 2 {
			words = append(words, word)
		}
	}
	return words
}

// Answer retrieves grounding documents for the query and delegates to the
// chat engine. Downstream failures become a user-facing apology, never an
// error.
func (s *Service) Answer(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return "Please provide a query to search for titles."
	}

	docs := s.RetrieveHybrid(ctx, query, s.config.TopK)

	answer, err := s.chat.Chat(ctx, query, docs)
	if err != nil {
		log.Printf("rag: chat failed: %v", err)
		return "Sorry, I encountered an error processing your query."
	}
	return answer
}

// AnswerStream is Answer with incremental delivery; the channel is closed
// once the answer is complete.
func (s *Service) AnswerStream(ctx context.Context, query string) (<-chan string, error) {
	docs := s.RetrieveHybrid(ctx, query, s.config.TopK)
	return s.chat.ChatStream(ctx, query, docs)
}

// DocumentCount reports how many documents are indexed.
func (s *Service) DocumentCount() int {
	return s.store.Count()
}

// Clear drops every indexed document and its persisted snapshot.
func (s *Service) Clear() {
	s.store.Clear()
}
