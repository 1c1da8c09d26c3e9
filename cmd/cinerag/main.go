package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/screenwise/cinerag/internal/models"
	"github.com/screenwise/cinerag/pkg/catalog"
	"github.com/screenwise/cinerag/pkg/collector"
	cfgPkg "github.com/screenwise/cinerag/pkg/config"
	"github.com/screenwise/cinerag/pkg/llm"
	"github.com/screenwise/cinerag/pkg/rag"
	"github.com/screenwise/cinerag/pkg/store"
	"github.com/screenwise/cinerag/server"
)

type Flags struct {
	ConfigPath string
	InitLimit  int
	TV         bool
	ServeAddr  string
	Streaming  bool
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.IntVar(&flags.InitLimit, "init", 0, "Ingest this many popular titles before chatting")
	flag.BoolVar(&flags.TV, "tv", false, "Ingest TV shows instead of movies")
	flag.StringVar(&flags.ServeAddr, "serve", "", "Serve the websocket API on this address instead of chatting")
	flag.BoolVar(&flags.Streaming, "stream", true, "Enable streaming responses")
	flag.Parse()

	return flags
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("titles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags) error {
	// .env is optional; real deployments set the variables directly
	_ = godotenv.Load()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	// Initialize components
	client, err := catalog.NewWithConfig(catalog.ClientConfig{
		BaseURL:   config.Catalog.BaseURL,
		APIKey:    config.Catalog.APIKey,
		RateLimit: config.Catalog.RateLimit,
		Timeout:   config.Catalog.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize catalog client: %v", err)
	}

	coll := collector.NewWithConfig(client, collector.CollectorConfig{
		Workers: config.RAG.CollectWorkers,
	})

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		BaseURL:        config.LLM.BaseURL,
		APIKey:         config.LLM.APIKey,
		EmbeddingModel: config.LLM.EmbeddingModel,
		Workers:        config.RAG.CollectWorkers,
		Placeholder:    cfgPkg.PlaceholderKey,
	}, coll)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL:     config.LLM.BaseURL,
		APIKey:      config.LLM.APIKey,
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
		Placeholder: cfgPkg.PlaceholderKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	kv, err := store.OpenBoltKV(config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %v", err)
	}
	defer kv.Close()

	vectorStore := store.NewWithConfig(kv, store.VectorStoreConfig{
		SnapshotKey: config.Storage.SnapshotKey,
	})

	service := rag.NewWithConfig(coll, embedder, vectorStore, chatEngine, rag.ServiceConfig{
		TopK:            config.RAG.TopK,
		Threshold:       config.RAG.Threshold,
		HybridThreshold: config.RAG.HybridThreshold,
	})

	ctx := context.Background()
	kind := models.KindMovie
	if flags.TV {
		kind = models.KindTV
	}

	if flags.InitLimit > 0 {
		color.Blue("\nIngesting %d popular %s titles\n", flags.InitLimit, kind)

		bar := getProgressBar(flags.InitLimit, "📥 Collecting catalog documents...")
		added, err := service.InitializePopular(ctx, kind, flags.InitLimit, func(done, total int) {
			bar.Set(done)
		})
		if err != nil {
			return fmt.Errorf("failed to initialize index: %v", err)
		}
		bar.Finish()
		color.Green("\n✓ Indexed %d new documents (%d total)\n", added, service.DocumentCount())
	}

	if flags.ServeAddr != "" {
		ws := server.NewWSServer(service, server.Config{
			Streaming: flags.Streaming,
			InitLimit: config.RAG.CollectLimit,
		})
		color.Cyan("Serving websocket API on %s", flags.ServeAddr)
		return http.ListenAndServe(flags.ServeAddr, ws.Handler())
	}

	// Interactive chat loop with colored output
	color.Cyan("\nChat with the catalog (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := scanner.Text()
		if strings.ToLower(query) == "exit" {
			break
		}
		if strings.TrimSpace(query) == "" {
			continue
		}

		if flags.Streaming {
			stream, err := service.AnswerStream(ctx, query)
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}

			responseSpinner := getSpinner("🤖 Generating response...")
			firstChunk := true

			for chunk := range stream {
				if firstChunk {
					responseSpinner.Finish()
					firstChunk = false
					fmt.Print("\n")
					assistantPrompt("Assistant: ")
				}
				fmt.Print(chunk)
			}
			if firstChunk {
				responseSpinner.Finish()
			}
			fmt.Print("\n")
		} else {
			responseSpinner := getSpinner("🤖 Generating response...")
			answer := service.Answer(ctx, query)
			responseSpinner.Finish()
			fmt.Print("\r")

			assistantPrompt("Assistant: %s\n", answer)
		}
	}

	return nil
}
