package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the two catalog item families.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

func (k Kind) Valid() bool {
	return k == KindMovie || k == KindTV
}

// Document is the unit of retrieval: one catalog item, normalized and
// embeddable. An empty Embedding means "not embedded yet"; such documents
// are skipped by vector search but still visible to lexical matching.
type Document struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"type"`
	Title      string    `json:"title"`
	Year       int       `json:"year"`
	Overview   string    `json:"overview"`
	Genres     []string  `json:"genres"`
	Cast       []string  `json:"cast,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
	PosterPath string    `json:"poster_path,omitempty"`
	Embedding  []float64 `json:"embedding"`

	// Relevance is only set on copies returned from a search; it is not
	// part of the document's stored identity.
	Relevance float64 `json:"relevance,omitempty"`
}

// DocumentID derives the stable store identifier for a catalog item.
func DocumentID(kind Kind, catalogID int) string {
	return fmt.Sprintf("%s_%d", kind, catalogID)
}

// ParseYear extracts the year from a release-date string like "2016-03-04".
// Missing or malformed dates yield 0, the "unknown year" sentinel.
func ParseYear(releaseDate string) int {
	head, _, _ := strings.Cut(releaseDate, "-")
	year, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || year < 0 {
		return 0
	}
	return year
}

// Clone returns a deep copy, so search results can carry a relevance
// annotation without mutating the stored original.
func (d Document) Clone() Document {
	c := d
	c.Genres = append([]string(nil), d.Genres...)
	c.Cast = append([]string(nil), d.Cast...)
	c.Keywords = append([]string(nil), d.Keywords...)
	c.Embedding = append(make([]float64, 0, len(d.Embedding)), d.Embedding...)
	return c
}
