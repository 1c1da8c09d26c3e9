package llm

import (
	"strings"
	"testing"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatContext(t *testing.T) {
	docs := []models.Document{
		{
			Title:    "Zootopia",
			Year:     2016,
			Overview: "A bunny cop teams up with a fox.",
			Genres:   []string{"Animation", "Comedy"},
			Cast:     []string{"A", "B", "C", "D", "E", "F", "G"},
			Keywords: []string{"k1", "k2", "k3", "k4", "k5", "k6"},
		},
		{
			Title:  "Moana",
			Year:   2016,
			Genres: []string{"Animation"},
		},
	}

	context := FormatContext(docs)

	assert.Contains(t, context, "1. Zootopia (2016)")
	assert.Contains(t, context, "2. Moana (2016)")
	assert.Contains(t, context, "A bunny cop teams up with a fox.")
	assert.Contains(t, context, "Genres: Animation, Comedy")

	// Cast and keywords are capped at five entries each
	assert.Contains(t, context, "Cast: A, B, C, D, E")
	assert.NotContains(t, context, "F")
	assert.Contains(t, context, "Keywords: k1, k2, k3, k4, k5")
	assert.NotContains(t, context, "k6")

	// Missing overview gets the explicit placeholder
	assert.Contains(t, context, "No overview available.")

	// Entries separated by blank lines
	assert.Equal(t, 2, len(strings.Split(context, "\n\n")))
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, "No relevant titles found.", FormatContext(nil))
	assert.Equal(t, "No relevant titles found.", FormatContextWithScores(nil))
}

func TestFormatContextWithScores(t *testing.T) {
	docs := []models.Document{
		{Title: "Zootopia", Year: 2016, Overview: "Overview.", Relevance: 0.876},
		{Title: "Moana", Year: 2016, Overview: "Overview."},
	}

	context := FormatContextWithScores(docs)

	assert.Contains(t, context, "[Relevance: 87.6%]")
	// A zero relevance is omitted, not rendered as 0.0%
	assert.NotContains(t, context, "0.0%")
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt("1. Zootopia (2016)")

	assert.Contains(t, prompt, "movie recommendation assistant")
	assert.Contains(t, prompt, "ONLY the provided context")
	assert.True(t, strings.HasSuffix(prompt, "1. Zootopia (2016)"))
}

func TestNoContextSystemPrompt(t *testing.T) {
	prompt := NoContextSystemPrompt()

	assert.Contains(t, prompt, "could not be matched")
	assert.Contains(t, prompt, "rephrasing")
}
