package llm

import (
	"fmt"
	"strings"

	"github.com/screenwise/cinerag/internal/models"
)

// FormatContext renders retrieved documents into the numbered grounding
// block embedded in the system prompt.
func FormatContext(docs []models.Document) string {
	if len(docs) == 0 {
		return "No relevant titles found."
	}

	entries := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts := []string{
			fmt.Sprintf("%d. %s (%d)", i+1, doc.Title, doc.Year),
		}

		if doc.Overview != "" {
			parts = append(parts, doc.Overview)
		} else {
			parts = append(parts, "No overview available.")
		}
		parts = append(parts, "Genres: "+strings.Join(doc.Genres, ", "))

		if len(doc.Cast) > 0 {
			parts = append(parts, "Cast: "+strings.Join(capped(doc.Cast, 5), ", "))
		}
		if len(doc.Keywords) > 0 {
			parts = append(parts, "Keywords: "+strings.Join(capped(doc.Keywords, 5), ", "))
		}

		entries = append(entries, strings.Join(parts, ". "))
	}

	return strings.Join(entries, "\n\n")
}

// FormatContextWithScores is FormatContext with relevance annotations,
// used by the non-AI fallback so users can see why a title surfaced.
func FormatContextWithScores(docs []models.Document) string {
	if len(docs) == 0 {
		return "No relevant titles found."
	}

	entries := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts := []string{
			fmt.Sprintf("%d. %s (%d)", i+1, doc.Title, doc.Year),
		}

		if doc.Relevance > 0 {
			parts = append(parts, fmt.Sprintf("[Relevance: %.1f%%]", doc.Relevance*100))
		}

		if doc.Overview != "" {
			parts = append(parts, doc.Overview)
		} else {
			parts = append(parts, "No overview available.")
		}
		parts = append(parts, "Genres: "+strings.Join(doc.Genres, ", "))

		entries = append(entries, strings.Join(parts, " "))
	}

	return strings.Join(entries, "\n\n")
}

// SystemPrompt instructs the model to answer only from the supplied
// catalog context.
func SystemPrompt(context string) string {
	return `You are a helpful movie recommendation assistant specialized in catalog metadata.

Your role:
- Answer questions about movies and TV shows using ONLY the provided context
- Provide accurate, helpful, and concise recommendations
- If information is not available in the context, politely say so
- Focus on the most relevant information from the context
- Be conversational and friendly

Important rules:
- ONLY use information from the provided context
- Do not make up or infer information not in the context
- If asked about titles not in context, say you don't have that information
- Format your responses clearly and naturally

Context movies/shows:
` + context
}

// NoContextSystemPrompt is used when retrieval found nothing.
func NoContextSystemPrompt() string {
	return `You are a helpful movie recommendation assistant specialized in catalog metadata.

The user's query could not be matched with any movies or TV shows in the database.

Please politely inform the user that you couldn't find relevant information and suggest:
- They try rephrasing their query
- They be more specific about what they're looking for
- They check back later as the database is being updated

Be friendly and helpful.`
}

func capped(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
