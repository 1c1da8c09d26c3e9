package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/screenwise/cinerag/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// ChatModel is the slice of llms.Model the chat engine uses.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ChatConfig represents the configuration for the chat engine.
type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// Placeholder is a credential value treated as unconfigured.
	Placeholder string
}

// ChatEngine answers queries grounded in retrieved catalog documents,
// falling back to a deterministic rendering of the raw results whenever the
// provider is unreachable or unconfigured.
type ChatEngine struct {
	config ChatConfig
	model  ChatModel
}

// NewWithConfig creates a chat engine against an OpenAI-compatible
// chat-completion endpoint.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "llama-3.3-70b-versatile"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}

	var model ChatModel
	if configured(config.APIKey, config.Placeholder) {
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		model = llm
	} else {
		log.Printf("llm: chat provider not configured, falling back to raw results")
	}

	return NewWithModel(model, config), nil
}

// NewWithModel wires an explicit chat model; a nil model means unconfigured.
func NewWithModel(model ChatModel, config ChatConfig) *ChatEngine {
	return &ChatEngine{config: config, model: model}
}

// Chat generates an answer grounded in contextDocs. Provider failures never
// surface as errors; the caller always gets displayable text.
func (ce *ChatEngine) Chat(ctx context.Context, query string, contextDocs []models.Document) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "Please provide a query.", nil
	}

	if !ce.Configured() {
		return ce.fallbackResponse(query, contextDocs), nil
	}

	response, err := ce.model.GenerateContent(ctx, ce.messages(query, contextDocs),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		log.Printf("llm: chat completion failed: %v", err)
		return ce.fallbackResponse(query, contextDocs), nil
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "No response", nil
	}
	return response.Choices[0].Content, nil
}

// ChatStream generates the answer incrementally. The returned channel
// delivers text chunks and is closed once the answer is complete; a
// provider failure delivers the deterministic fallback as a single chunk.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, contextDocs []models.Document) (<-chan string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	chunks := make(chan string)

	go func() {
		defer close(chunks)

		if !ce.Configured() {
			chunks <- ce.fallbackResponse(query, contextDocs)
			return
		}

		streamed := false
		_, err := ce.model.GenerateContent(ctx, ce.messages(query, contextDocs),
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if len(chunk) > 0 {
					streamed = true
					select {
					case chunks <- string(chunk):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			}),
		)
		if err != nil && !streamed {
			log.Printf("llm: streaming chat failed: %v", err)
			chunks <- ce.fallbackResponse(query, contextDocs)
		}
	}()

	return chunks, nil
}

// Configured reports whether a provider model is wired up.
func (ce *ChatEngine) Configured() bool {
	return ce.model != nil
}

func (ce *ChatEngine) messages(query string, contextDocs []models.Document) []llms.MessageContent {
	systemPrompt := NoContextSystemPrompt()
	if len(contextDocs) > 0 {
		systemPrompt = SystemPrompt(FormatContext(contextDocs))
	}

	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, query),
	}
}

func (ce *ChatEngine) fallbackResponse(query string, contextDocs []models.Document) string {
	if len(contextDocs) == 0 {
		return "Sorry, I could not find any relevant titles based on your query. " +
			"Please try rephrasing your question or be more specific."
	}

	return fmt.Sprintf(
		"Based on your query %q, here are some relevant titles:\n\n%s\n\n"+
			"Note: the AI chat feature requires an API key. Currently showing raw search results.",
		query, FormatContextWithScores(contextDocs))
}
