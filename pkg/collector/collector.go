package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/screenwise/cinerag/pkg/catalog"
	"golang.org/x/sync/errgroup"
)

const (
	maxCastNames    = 7
	maxKeywordNames = 5
)

type CollectorConfig struct {
	// Workers caps concurrent item collections in CollectBatch.
	Workers int
}

// Collector turns catalog API payloads into normalized documents.
type Collector struct {
	config CollectorConfig
	client *catalog.Client
}

func NewWithConfig(client *catalog.Client, config CollectorConfig) *Collector {
	if config.Workers == 0 {
		config.Workers = 8
	}
	return &Collector{
		config: config,
		client: client,
	}
}

// CollectOne fetches detail, credits and keywords for one item and joins
// them into a Document. Any sub-request failure fails the whole item; a
// partially populated document is never returned.
func (c *Collector) CollectOne(ctx context.Context, kind models.Kind, id int) (models.Document, error) {
	if !kind.Valid() {
		return models.Document{}, fmt.Errorf("unknown catalog kind %q", kind)
	}

	var (
		detail   catalog.Detail
		credits  catalog.Credits
		keywords catalog.Keywords
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		detail, err = c.client.GetDetails(gctx, kind, id)
		return err
	})
	g.Go(func() (err error) {
		credits, err = c.client.GetCredits(gctx, kind, id)
		return err
	})
	g.Go(func() (err error) {
		keywords, err = c.client.GetKeywords(gctx, kind, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Document{}, fmt.Errorf("collect %s %d: %w", kind, id, err)
	}

	return mapDocument(kind, detail, credits, keywords), nil
}

// CollectBatch collects all ids concurrently through a bounded worker pool.
// Individual failures are logged and excluded from the result; one bad id
// never fails the batch. onProgress is invoked once per settled item in
// completion order.
func (c *Collector) CollectBatch(ctx context.Context, kind models.Kind, ids []int, onProgress func(done, total int)) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	var (
		mu        sync.Mutex
		collected []models.Document
		done      int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			doc, err := c.CollectOne(gctx, kind, id)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				log.Printf("collector: skipping %s %d: %v", kind, id, err)
			} else {
				collected = append(collected, doc)
			}
			if onProgress != nil {
				onProgress(done, len(ids))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return collected, err
	}
	return collected, ctx.Err()
}

// CollectPopular pages the popular listing until limit ids are gathered,
// then collects them as a batch.
func (c *Collector) CollectPopular(ctx context.Context, kind models.Kind, limit int, onProgress func(done, total int)) ([]models.Document, error) {
	return c.collectListing(ctx, kind, limit, onProgress, c.client.GetPopular)
}

// CollectTopRated is CollectPopular against the top-rated listing.
func (c *Collector) CollectTopRated(ctx context.Context, kind models.Kind, limit int, onProgress func(done, total int)) ([]models.Document, error) {
	return c.collectListing(ctx, kind, limit, onProgress, c.client.GetTopRated)
}

func (c *Collector) collectListing(ctx context.Context, kind models.Kind, limit int, onProgress func(done, total int), list func(context.Context, models.Kind, int) (catalog.ListingPage, error)) ([]models.Document, error) {
	if limit <= 0 {
		return []models.Document{}, nil
	}

	pages := (limit + catalog.PageSize - 1) / catalog.PageSize
	ids := make([]int, 0, limit)

	for page := 1; page <= pages && len(ids) < limit; page++ {
		listing, err := list(ctx, kind, page)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", kind, page, err)
		}
		for _, item := range listing.Results {
			if len(ids) >= limit {
				break
			}
			ids = append(ids, item.ID)
		}
		if page >= listing.TotalPages && listing.TotalPages > 0 {
			break
		}
	}

	return c.CollectBatch(ctx, kind, ids, onProgress)
}

// BuildEmbeddingText renders the document into the deterministic text that
// gets embedded. Empty parts are omitted; the output must be byte-identical
// across runs for cache-hit equivalence.
func (c *Collector) BuildEmbeddingText(doc models.Document) string {
	parts := make([]string, 0, 6)

	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	if doc.Year > 0 {
		parts = append(parts, fmt.Sprintf("Released in %d", doc.Year))
	}
	if doc.Overview != "" {
		parts = append(parts, doc.Overview)
	}
	if len(doc.Genres) > 0 {
		parts = append(parts, "Genres: "+strings.Join(doc.Genres, ", "))
	}
	if len(doc.Cast) > 0 {
		parts = append(parts, "Cast: "+strings.Join(doc.Cast, ", "))
	}
	if len(doc.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(doc.Keywords, ", "))
	}

	return strings.Join(parts, ". ")
}

func mapDocument(kind models.Kind, detail catalog.Detail, credits catalog.Credits, keywords catalog.Keywords) models.Document {
	title := detail.Title
	releaseDate := detail.ReleaseDate
	if kind == models.KindTV {
		title = detail.Name
		releaseDate = detail.FirstAirDate
	}

	genres := make([]string, 0, len(detail.Genres))
	for _, g := range detail.Genres {
		genres = append(genres, g.Name)
	}

	cast := make([]string, 0, maxCastNames)
	for _, member := range credits.Cast {
		if len(cast) >= maxCastNames {
			break
		}
		cast = append(cast, member.Name)
	}

	keywordNames := keywords.Names()
	if len(keywordNames) > maxKeywordNames {
		keywordNames = keywordNames[:maxKeywordNames]
	}

	return models.Document{
		ID:         models.DocumentID(kind, detail.ID),
		Kind:       kind,
		Title:      title,
		Year:       models.ParseYear(releaseDate),
		Overview:   detail.Overview,
		Genres:     genres,
		Cast:       cast,
		Keywords:   keywordNames,
		PosterPath: detail.PosterPath,
		Embedding:  []float64{},
	}
}
