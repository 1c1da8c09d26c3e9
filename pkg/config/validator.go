package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Catalog.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "catalog.base_url",
			Message: "catalog base URL is required",
		})
	} else if _, err := url.Parse(c.Catalog.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "catalog.base_url",
			Message: "invalid catalog base URL",
		})
	}

	if c.Catalog.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Catalog.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.timeout",
			Message: "timeout must be positive",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid LLM base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.RAG.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "rag.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.RAG.Threshold < -1 || c.RAG.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "rag.threshold",
			Message: "threshold must be a cosine similarity in [-1, 1]",
		})
	}

	if c.RAG.HybridThreshold > c.RAG.Threshold {
		errors = append(errors, ValidationError{
			Field:   "rag.hybrid_threshold",
			Message: "hybrid_threshold must not exceed threshold",
		})
	}

	if c.RAG.CollectWorkers < 1 {
		errors = append(errors, ValidationError{
			Field:   "rag.collect_workers",
			Message: "collect_workers must be positive",
		})
	}

	if c.Storage.SnapshotKey == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.snapshot_key",
			Message: "snapshot_key is required",
		})
	}

	return errors
}
