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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/chunk"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/readers"
	"github.com/poiesic/docchat/reembed"
	"github.com/poiesic/docchat/tokenize"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docchat",
		Usage: "Document ingestion and retrieval-grounded chat",
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
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DOCCHAT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override the configured data directory",
			},
			&cli.BoolFlag{
				Name:  "sql-log",
				Usage: "Log every document store statement",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and Messenger webhook",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address (defaults to the configured address)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files into a collection",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "db-type",
						Usage: "Storage backend (vector_index, document_store)",
						Value: string(core.BackendVectorIndex),
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Vector index name",
					},
					&cli.StringFlag{
						Name:  "namespace",
						Usage: "Vector index namespace",
					},
					&cli.StringFlag{
						Name:  "database",
						Usage: "Document store database name",
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Document store collection name",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Write mode (replace, upsert)",
						Value: "replace",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Existing session id (required for upsert)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source id distinguishing uploads within a session (required for upsert)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Ask a question against a session",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session id to search",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id keying conversation history (defaults to the session id)",
					},
					&cli.BoolFlag{
						Name:  "latest",
						Usage: "Fall back to the newest session when the id is unknown",
					},
				},
			},
			{
				Name:      "images",
				Usage:     "Find stored images that look like an image file",
				ArgsUsage: "FILE",
				Action:    imagesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session id to search",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum images to list",
						Value: 3,
					},
				},
			},
			{
				Name:   "sessions",
				Usage:  "List recent sessions",
				Action: sessionsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum sessions to list",
						Value: 20,
					},
				},
			},
			{
				Name:      "chunk",
				Usage:     "Print the chunks a file would be split into",
				ArgsUsage: "FILE",
				Action:    chunkCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Tokens per chunk (defaults to the configured size)",
					},
					&cli.IntFlag{
						Name:  "stride",
						Usage: "Tokens between chunk starts (defaults to the configured stride)",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed stored records with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "db-type",
						Usage: "Storage backend (vector_index, document_store)",
						Value: string(core.BackendVectorIndex),
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Collection to reembed (all collections when blank)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reembed records already tagged with the current model",
					},
				},
			},
			{
				Name:      "init-config",
				Usage:     "Write a configuration file with default values",
				ArgsUsage: "PATH",
				Action:    initConfigCommand,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*docchat.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := docchat.NewDatabase(cfg,
		docchat.WithLogger(slog.Default()),
		docchat.WithSQLLogging(c.Bool("sql-log")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := db.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	addr := c.String("listen")
	if addr == "" {
		addr = db.Config().Listen
	}
	return srv.Run(ctx, addr)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	backend, err := core.ParseBackend(c.String("db-type"))
	if err != nil {
		return err
	}
	mode, err := ingestion.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	req := &ingestion.Request{
		Backend: backend,
		Location: core.Location{
			Index:      c.String("index"),
			Namespace:  c.String("namespace"),
			Database:   c.String("database"),
			Collection: c.String("collection"),
		},
		Mode:      mode,
		SessionID: c.String("session"),
		SourceID:  c.String("source"),
	}
	for _, path := range c.Args().Slice() {
		units, err := readFile(path)
		if err != nil {
			return err
		}
		req.Units = append(req.Units, units...)
		req.Files = append(req.Files, filepath.Base(path))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	result, err := pipeline.Ingest(c.Context, req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Session: %s\n", result.SessionID)
	fmt.Printf("Collection: %s\n", result.Collection)
	fmt.Printf("Records: %d (text %d, images %d)\n", result.Records, result.TextRecords, result.ImageRecords)
	if result.FailedChunks > 0 || result.FailedImages > 0 {
		fmt.Printf("Failed: %d chunks, %d images\n", result.FailedChunks, result.FailedImages)
	}
	if result.DuplicateChunks > 0 {
		fmt.Printf("Duplicates skipped: %d\n", result.DuplicateChunks)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("a question is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewChatService()
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	q := chat.Question{
		SessionID: c.String("session"),
		UserID:    c.String("user"),
		Text:      text,
	}
	ask := service.Ask
	if c.Bool("latest") {
		ask = service.AskOrLatest
	}
	answer, err := ask(c.Context, q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Keywords) > 0 {
		fmt.Fprintf(os.Stderr, "Keywords: %s\n", strings.Join(answer.Keywords, ", "))
	}
	if answer.Degraded {
		fmt.Fprintln(os.Stderr, "Warning: the answer was produced without a completion")
	}
	return nil
}

func imagesCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one image file is required")
	}
	if c.Int("top-k") <= 0 {
		return fmt.Errorf("top-k must be greater than 0")
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.Args().First(), err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.FindSimilarImages(c.Context, c.String("session"), data, c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("image search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No stored images match")
		return nil
	}
	for _, result := range results {
		fmt.Printf("%.4f\t%s\t%s\n", result.Score, result.Record.ID, result.Record.RawText)
	}
	return nil
}

func sessionsCommand(c *cli.Context) error {
	if c.Int("limit") <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.Registry().List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Backend,
			s.Collection(),
			s.CreatedAt.Local().Format(time.DateTime),
			strings.Join(s.Files, ","),
		)
	}
	return nil
}

func chunkCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	maxTokens, stride := cfg.Chunk.MaxTokens, cfg.Chunk.Stride
	if c.IsSet("max-tokens") {
		maxTokens = c.Int("max-tokens")
	}
	if c.IsSet("stride") {
		stride = c.Int("stride")
	}

	tok, err := tokenize.NewTiktoken(cfg.AI.EmbeddingModel)
	if err != nil {
		return err
	}
	chunker, err := chunk.New(tok, chunk.WithMaxTokens(maxTokens), chunk.WithStride(stride))
	if err != nil {
		return err
	}

	units, err := readFile(c.Args().First())
	if err != nil {
		return err
	}
	for _, unit := range units {
		if unit.Kind == ingestion.UnitImage {
			continue
		}
		for _, ch := range chunker.Chunks(unit.Content()) {
			fmt.Printf("--- %s #%d [%d:%d]\n%s\n", unit.Source, ch.Index, ch.Start, ch.End, ch.Text)
		}
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	backend, err := core.ParseBackend(c.String("db-type"))
	if err != nil {
		return err
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Force:          c.Bool("force"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reembedder, err := db.NewReembedder(backend, reembedConfig, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Data dir: %s\n", db.Config().DataDir)
	fmt.Fprintf(os.Stderr, "Backend: %s\n", backend)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", db.Provider().Embedder().Model())
	fmt.Fprintln(os.Stderr)

	var results []*reembed.Result
	if collection := c.String("collection"); collection != "" {
		result, err := reembedder.Run(c.Context, collection)
		if err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		results = append(results, result)
	} else {
		results, err = reembedder.RunAll(c.Context)
		if err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
	}

	for _, r := range results {
		fmt.Printf("%s: reembedded %d, current %d, images %d\n", r.Collection, r.Reembedded, r.Current, r.Images)
	}
	return nil
}

func initConfigCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("a destination path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func readFile(path string) ([]ingestion.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	units, err := readers.Read(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return units, nil
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
