// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/landvec/ai"
	"github.com/poiesic/landvec/ai/openai"
	"github.com/poiesic/landvec/chunk"
	"github.com/poiesic/landvec/config"
	"github.com/poiesic/landvec/core"
	"github.com/poiesic/landvec/embed"
	"github.com/poiesic/landvec/enrich"
	"github.com/poiesic/landvec/index"
	idxbadger "github.com/poiesic/landvec/index/badger"
	"github.com/poiesic/landvec/index/pinecone"
	"github.com/poiesic/landvec/ingest"
	"github.com/poiesic/landvec/record"
	recfile "github.com/poiesic/landvec/record/file"
	recrest "github.com/poiesic/landvec/record/rest"
	recsqlite "github.com/poiesic/landvec/record/sqlite"
)

func main() {
	// Missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "landvec",
		Usage: "Chunk, embed, and index landmark designation texts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Process entities through the pipeline and index their vectors",
				ArgsUsage: "[entity-id ...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Ingest every entity the record source lists",
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Index namespace to write into (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "delete-existing",
						Usage: "Delete an entity's previous vectors before storing",
					},
					&cli.BoolFlag{
						Name:  "skip-unchanged",
						Usage: "Skip entities whose text fingerprint is already indexed",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size for batch processing",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Wikipedia article title (single entity only; switches to wiki IDs)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Embed the query text and search the index",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of matches to return",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "landmark",
						Usage: "Restrict matches to one landmark ID",
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Index namespace to query (overrides config)",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete vectors by entity ID or by explicit vector IDs",
				ArgsUsage: "[vector-id ...]",
				Action:    deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "landmark",
						Usage: "Delete every vector belonging to this landmark ID",
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Index namespace (overrides config)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show index dimension and vector counts",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func buildIndexClient(cfg *config.AppConfig) (index.Client, error) {
	switch cfg.Index.Type {
	case "pinecone":
		return pinecone.NewClient(pinecone.Config{
			Host:    cfg.Index.Pinecone.Host,
			APIKey:  os.Getenv(cfg.Index.Pinecone.APIKeyEnv),
			Timeout: time.Duration(cfg.Index.Pinecone.TimeoutSecs) * time.Second,
		})
	case "badger":
		return idxbadger.Open(cfg.Index.Badger.Path)
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Index.Type)
	}
}

func buildGenerator(cfg *config.AppConfig) (*embed.Generator, error) {
	aiCfg := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.Embedding.Host),
		ai.WithEmbeddingModel(cfg.Embedding.Model),
		ai.WithAPIKey(os.Getenv(cfg.Embedding.APIKeyEnv)),
		ai.WithDimension(cfg.Embedding.Dimension),
	)
	embedder, err := openai.NewEmbedder(aiCfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embed.NewGenerator(embedder, cfg.Embedding.Dimension,
		embed.WithBatchSize(cfg.Embedding.BatchSize))
}

func buildChunker(cfg *config.AppConfig) (*chunk.TokenChunker, error) {
	var tokenizer chunk.Tokenizer
	if cfg.Chunking.Encoding == "words" {
		tokenizer = chunk.WordTokenizer{}
	} else {
		tk, err := chunk.NewTiktokenTokenizer(cfg.Chunking.Encoding)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer encoding %q: %w", cfg.Chunking.Encoding, err)
		}
		tokenizer = tk
	}
	return chunk.NewTokenChunker(tokenizer)
}

// recordSource bundles the providers a config selects, plus the optional
// ID lister used by ingest --all.
type recordSource struct {
	records   record.EntityRecordProvider
	texts     record.SourceTextProvider
	buildings record.BuildingProvider
	listIDs   func(ctx context.Context) ([]string, error)
	close     func() error
}

func buildRecordSource(cfg *config.AppConfig) (*recordSource, error) {
	src := &recordSource{close: func() error { return nil }}

	switch cfg.Records.Type {
	case "rest":
		provider, err := recrest.NewProvider(recrest.Config{
			BaseURL: cfg.Records.REST.BaseURL,
			APIKey:  os.Getenv(cfg.Records.REST.APIKeyEnv),
			Timeout: time.Duration(cfg.Records.REST.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		src.records = provider
		src.texts = provider
		src.buildings = provider
	case "sqlite":
		provider, err := recsqlite.NewProvider(cfg.Records.SQLite.Path)
		if err != nil {
			return nil, err
		}
		src.records = provider
		src.texts = provider
		src.buildings = provider
		src.listIDs = provider.ListIDs
		src.close = provider.Close
	default:
		return nil, fmt.Errorf("unknown records type %q", cfg.Records.Type)
	}

	// A text directory overrides the record source's own text, letting a
	// sqlite record extract pair with raw report files on disk.
	if cfg.Records.TextDir != "" {
		fileProvider, err := recfile.NewProvider(cfg.Records.TextDir)
		if err != nil {
			return nil, err
		}
		src.texts = fileProvider
		if src.listIDs == nil {
			src.listIDs = func(ctx context.Context) ([]string, error) {
				return fileProvider.ListIDs()
			}
		}
	}

	return src, nil
}

func namespaceFor(c *cli.Context, cfg *config.AppConfig) string {
	if ns := c.String("namespace"); ns != "" {
		return ns
	}
	return cfg.Index.Namespace
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	entityIDs := c.Args().Slice()
	if c.Bool("all") && len(entityIDs) > 0 {
		return fmt.Errorf("--all and explicit entity IDs are mutually exclusive")
	}
	if !c.Bool("all") && len(entityIDs) == 0 {
		return fmt.Errorf("nothing to ingest: pass entity IDs or --all")
	}
	title := c.String("title")
	if title != "" && len(entityIDs) != 1 {
		return fmt.Errorf("--title applies to exactly one entity")
	}

	source, err := buildRecordSource(cfg)
	if err != nil {
		return err
	}
	defer source.close()

	if c.Bool("all") {
		if source.listIDs == nil {
			return fmt.Errorf("the configured record source cannot list entity IDs")
		}
		entityIDs, err = source.listIDs(c.Context)
		if err != nil {
			return fmt.Errorf("listing entity IDs: %w", err)
		}
	}

	client, err := buildIndexClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	writer, err := index.NewWriter(client)
	if err != nil {
		return err
	}

	poolSize := cfg.Ingest.PoolSize
	if c.Int("pool-size") > 0 {
		poolSize = c.Int("pool-size")
	}

	opts := []ingest.Option{
		ingest.WithPoolSize(poolSize),
		ingest.WithNamespace(namespaceFor(c, cfg)),
		ingest.WithDeleteExisting(cfg.Ingest.DeleteExisting || c.Bool("delete-existing")),
		ingest.WithSkipUnchanged(cfg.Ingest.SkipUnchanged || c.Bool("skip-unchanged")),
	}

	var chunker *chunk.TokenChunker
	if cfg.Chunking.Mode == "paragraph" {
		paragraphChunker, err := chunk.NewParagraphChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithParagraphChunker(paragraphChunker))
	} else {
		chunker, err = buildChunker(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithChunkParams(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens))
	}
	if title != "" {
		opts = append(opts, ingest.WithTitleResolver(func(string) string { return title }))
	}

	orchestrator, err := ingest.NewOrchestrator(ingest.Deps{
		Texts:     source.texts,
		Records:   source.records,
		Chunker:   chunker,
		Enricher:  enrich.NewEnricher(enrich.WithBuildingSource(source.buildings)),
		Generator: generator,
		Writer:    writer,
		Index:     client,
	}, opts...)
	if err != nil {
		return err
	}
	defer orchestrator.Release()

	report := orchestrator.ProcessBatch(c.Context, entityIDs)

	fmt.Printf("processed %d entities: %d succeeded, %d failed, %d no content, %d skipped\n",
		report.Processed, report.Succeeded, report.Failed, report.NoContent, report.Skipped)
	for _, sample := range report.FailureSamples {
		fmt.Printf("  FAILED %s at %s: %v\n", sample.EntityID, sample.Stage, sample.Err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d entities failed", report.Failed, report.Processed)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("query text is required")
	}

	client, err := buildIndexClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	vector, err := generator.EmbedOne(c.Context, queryText)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	var filter map[string]any
	if landmark := c.String("landmark"); landmark != "" {
		filter = map[string]any{core.KeyLandmarkID: landmark}
	}

	matches, err := client.Query(c.Context, vector, c.Int("top-k"), filter, namespaceFor(c, cfg))
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for i, match := range matches {
		name, _ := match.Metadata["name"].(string)
		fmt.Printf("%2d. %-40s score=%.4f %s\n", i+1, match.ID, match.Score, name)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	landmark := c.String("landmark")
	ids := c.Args().Slice()
	if landmark == "" && len(ids) == 0 {
		return fmt.Errorf("pass vector IDs or --landmark")
	}

	client, err := buildIndexClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	namespace := namespaceFor(c, cfg)
	if landmark != "" {
		filter := map[string]any{core.KeyLandmarkID: landmark}
		if err := client.DeleteByFilter(c.Context, filter, namespace); err != nil {
			return err
		}
		fmt.Printf("deleted vectors for landmark %s\n", landmark)
	}
	if len(ids) > 0 {
		if err := client.DeleteByID(c.Context, ids, namespace); err != nil {
			return err
		}
		fmt.Printf("deleted %d vector IDs\n", len(ids))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	client, err := buildIndexClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	stats, err := client.Stats(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("dimension: %d\ntotal vectors: %d\n", stats.Dimension, stats.TotalVectorCount)
	namespaces := make([]string, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		label := ns
		if label == "" {
			label = "(default)"
		}
		fmt.Printf("  %s: %d\n", label, stats.Namespaces[ns])
	}
	return nil
}
