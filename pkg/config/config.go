package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderKey is the value template configs ship with; a credential
// equal to it is treated the same as a missing one.
const PlaceholderKey = "GROQ_API_KEY"

type Config struct {
	Catalog struct {
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"-"` // env only, never from file
		RateLimit float64       `yaml:"rate_limit"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"catalog"`

	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"-"` // env only, never from file
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"llm"`

	RAG struct {
		TopK            int     `yaml:"top_k"`
		Threshold       float64 `yaml:"threshold"`
		HybridThreshold float64 `yaml:"hybrid_threshold"`
		CollectWorkers  int     `yaml:"collect_workers"`
		CollectLimit    int     `yaml:"collect_limit"`
	} `yaml:"rag"`

	Storage struct {
		Path        string `yaml:"path"`
		SnapshotKey string `yaml:"snapshot_key"`
	} `yaml:"storage"`

	UI struct {
		Streaming bool `yaml:"streaming"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/cinerag/config.yaml"),
			"/etc/cinerag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Catalog.BaseURL == "" {
		config.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if config.Catalog.RateLimit == 0 {
		config.Catalog.RateLimit = 4.0
	}
	if config.Catalog.Timeout == 0 {
		config.Catalog.Timeout = 15 * time.Second
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "llama-3.3-70b-versatile"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1024
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.RAG.TopK == 0 {
		config.RAG.TopK = 5
	}
	if config.RAG.Threshold == 0 {
		config.RAG.Threshold = 0.5
	}
	if config.RAG.HybridThreshold == 0 {
		config.RAG.HybridThreshold = 0.3
	}
	if config.RAG.CollectWorkers == 0 {
		config.RAG.CollectWorkers = 8
	}
	if config.RAG.CollectLimit == 0 {
		config.RAG.CollectLimit = 100
	}

	if config.Storage.Path == "" {
		config.Storage.Path = "cinerag.db"
	}
	if config.Storage.SnapshotKey == "" {
		config.Storage.SnapshotKey = "rag_vector_store"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("TMDB_BASE_URL"); baseURL != "" {
		config.Catalog.BaseURL = baseURL
	}
	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		config.Catalog.APIKey = key
	}
	if baseURL := os.Getenv("GROQ_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
}
