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


package docchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/chunk"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/conversation"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/embedding"
	"github.com/poiesic/docchat/escalation"
	"github.com/poiesic/docchat/inbox"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/keywords"
	"github.com/poiesic/docchat/messenger"
	"github.com/poiesic/docchat/reduce"
	"github.com/poiesic/docchat/reembed"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/server"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/storage/sqlstore"
	"github.com/poiesic/docchat/tokenize"
	"github.com/redis/go-redis/v9"
)

// ErrMessengerDisabled is returned by NewDispatcher when no page token is configured.
var ErrMessengerDisabled = errors.New("messenger is not configured")

// Database owns the stores, the AI provider and everything built on them.
type Database struct {
	cfg      *config.Config
	backend  *badger.Backend
	vectors  *badger.DocumentRepository
	store    *sqlstore.Store
	provider ai.AIProvider
	tok      tokenize.Tokenizer
	registry *session.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	closers []func() error
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider   ai.AIProvider
	tok        tokenize.Tokenizer
	logger     *slog.Logger
	inMemory   bool
	sqlLogging bool
}

// WithProvider injects an AI provider instead of dialing the configured one.
// The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithTokenizer overrides the tokenizer resolved from the embedding model.
func WithTokenizer(tok tokenize.Tokenizer) DatabaseOption {
	return func(o *databaseOptions) {
		o.tok = tok
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// WithInMemory keeps both stores in memory. Nothing is written to DataDir.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithSQLLogging logs every statement the document store runs.
func WithSQLLogging(enabled bool) DatabaseOption {
	return func(o *databaseOptions) {
		o.sqlLogging = enabled
	}
}

// NewDatabase opens the vector index and document store under cfg.DataDir.
// A nil cfg uses config.Default().
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	vectorPath, storePath := cfg.VectorIndexPath(), cfg.DocumentStorePath()
	if options.inMemory {
		vectorPath, storePath = "", ":memory:"
	} else if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: data dir: %w", storage.ErrStorage, err)
	}

	backend, err := badger.OpenBackend(vectorPath, options.inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: vector index: %w", storage.ErrStorage, err)
	}
	vectors, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	store, err := sqlstore.Open(storePath,
		sqlstore.WithLogger(options.logger),
		sqlstore.WithSQLLogging(options.sqlLogging),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AI.Provider())
		if err != nil {
			store.Close()
			backend.Close()
			return nil, err
		}
	}

	tok := options.tok
	if tok == nil {
		tok, err = tokenize.NewTiktoken(provider.Embedder().Model())
		if err != nil {
			provider.Close()
			store.Close()
			backend.Close()
			return nil, err
		}
	}

	registry, err := session.NewRegistry(store,
		session.WithSingleCorpusFallback(cfg.Retrieval.SingleCorpusFallback),
		session.WithLogger(options.logger),
	)
	if err != nil {
		provider.Close()
		store.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		cfg:      cfg,
		backend:  backend,
		vectors:  vectors,
		store:    store,
		provider: provider,
		tok:      tok,
		registry: registry,
		logger:   options.logger,
	}, nil
}

// Close stops everything the factories started, then closes the provider and
// both stores.
func (db *Database) Close() error {
	db.mu.Lock()
	closers := db.closers
	db.closers = nil
	db.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing document store", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) track(closer func() error) {
	db.mu.Lock()
	db.closers = append(db.closers, closer)
	db.mu.Unlock()
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

func (db *Database) Registry() *session.Registry {
	return db.registry
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Backends routes each session backend to its repository: the badger index
// serves vector_index sessions and SQLite serves document_store sessions.
func (db *Database) Backends() storage.Backends {
	return storage.Backends{
		core.BackendVectorIndex:   db.vectors,
		core.BackendDocumentStore: db.store,
	}
}

// Repository returns the repository for backend.
func (db *Database) Repository(backend core.Backend) (storage.DocumentRepository, error) {
	return db.Backends().For(backend)
}

// NewBatcher builds an embedding batcher from the configuration. The batcher
// is released when the database closes.
func (db *Database) NewBatcher(opts ...embedding.Option) (*embedding.Batcher, error) {
	base := []embedding.Option{
		embedding.WithBatchSize(db.cfg.Embedding.BatchSize),
		embedding.WithMaxInputTokens(db.cfg.Embedding.MaxInputTokens),
		embedding.WithImageEmbedder(db.provider.ImageEmbedder()),
		embedding.WithLogger(db.logger),
	}
	if db.cfg.Embedding.PoolSize > 0 {
		base = append(base, embedding.WithPoolSize(db.cfg.Embedding.PoolSize))
	}
	batcher, err := embedding.NewBatcher(db.provider.Embedder(), db.tok, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	db.track(func() error {
		batcher.Release()
		return nil
	})
	return batcher, nil
}

// NewChunker builds a sliding-window chunker from the configuration.
func (db *Database) NewChunker() (*chunk.Chunker, error) {
	return chunk.New(db.tok,
		chunk.WithMaxTokens(db.cfg.Chunk.MaxTokens),
		chunk.WithStride(db.cfg.Chunk.Stride),
	)
}

// NewPipeline builds the ingestion pipeline. It is released when the
// database closes.
func (db *Database) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	batcher, err := db.NewBatcher()
	if err != nil {
		return nil, err
	}
	chunker, err := db.NewChunker()
	if err != nil {
		return nil, err
	}
	pipeline, err := ingestion.NewPipeline(batcher, chunker, db.Backends(), db.registry,
		append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	db.track(func() error {
		pipeline.Release()
		return nil
	})
	return pipeline, nil
}

// NewRetrievers builds one retriever per backend, pinned to the embedding
// model the pipeline writes with.
func (db *Database) NewRetrievers() (chat.Retrievers, error) {
	retrievers := make(chat.Retrievers, 2)
	for backend := range db.Backends() {
		r, err := db.newRetriever(backend)
		if err != nil {
			return nil, err
		}
		retrievers[backend] = r
	}
	return retrievers, nil
}

func (db *Database) newRetriever(backend core.Backend) (*retrieval.Retriever, error) {
	policy, err := retrieval.ParseCrossModelPolicy(db.cfg.Retrieval.CrossModel)
	if err != nil {
		return nil, err
	}
	repo, err := db.Repository(backend)
	if err != nil {
		return nil, err
	}
	embedder := db.provider.Embedder()
	return retrieval.New(repo, embedder,
		retrieval.WithModel(embedder.Model()),
		retrieval.WithCrossModelPolicy(policy),
		retrieval.WithImageEmbedder(db.provider.ImageEmbedder()),
		retrieval.WithLogger(db.logger.With("backend", string(backend))),
	)
}

// FindSimilarImages returns the topK stored images of a session's corpus
// most similar to an encoded image.
func (db *Database) FindSimilarImages(ctx context.Context, sessionID string, image []byte, topK int) ([]*core.SearchResult, error) {
	sess, err := db.registry.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r, err := db.newRetriever(sess.Backend)
	if err != nil {
		return nil, err
	}
	return r.SearchImage(ctx, image, sess.Collection(), topK)
}

// NewChatService builds the question answering service.
func (db *Database) NewChatService(opts ...chat.Option) (*chat.Service, error) {
	retrievers, err := db.NewRetrievers()
	if err != nil {
		return nil, err
	}
	reducer, err := reduce.New(db.tok)
	if err != nil {
		return nil, err
	}
	profiles, err := conversation.NewProfileStore(db.cfg.Conversation.ProfileCapacity)
	if err != nil {
		return nil, err
	}
	engine, err := conversation.New(db.provider.Completer(), db.store, db.store,
		conversation.WithHistoryPairs(db.cfg.Conversation.HistoryPairs),
		conversation.WithProfiles(profiles, db.provider.ProfileExtractor()),
		conversation.WithLogger(db.logger),
	)
	if err != nil {
		return nil, err
	}
	extractor := keywords.New(
		keywords.WithTagger(keywords.ProseTagger{}),
		keywords.WithLogger(db.logger),
	)

	base := []chat.Option{
		chat.WithTopK(db.cfg.Retrieval.TopK),
		chat.WithContextBudget(db.cfg.Retrieval.ContextBudget),
		chat.WithKeywordExtractor(extractor),
		chat.WithLogger(db.logger),
	}
	return chat.NewService(db.registry, retrievers, reducer, engine, append(base, opts...)...)
}

// NewReembedder builds a reembedder over backend's repository. Progress is
// written to progress when it is non-nil.
func (db *Database) NewReembedder(backend core.Backend, cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	repo, err := db.Repository(backend)
	if err != nil {
		return nil, err
	}
	var opts []embedding.Option
	if cfg != nil && cfg.BatchSize > 0 {
		opts = append(opts, embedding.WithBatchSize(cfg.BatchSize))
	}
	batcher, err := db.NewBatcher(opts...)
	if err != nil {
		return nil, err
	}
	return reembed.NewReembedder(repo, batcher, cfg, progress)
}

// NewDeduplicator returns the message-id deduplicator the configuration asks
// for: Redis when an address is set, otherwise the local database swept on a
// cron schedule.
func (db *Database) NewDeduplicator(ctx context.Context) (inbox.Deduplicator, error) {
	dedup := db.cfg.Dedup
	if dedup.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     dedup.RedisAddr,
			Password: dedup.RedisPassword,
			DB:       dedup.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", dedup.RedisAddr, err)
		}
		db.track(client.Close)
		db.logger.Info("deduplicating with redis", "addr", dedup.RedisAddr, "ttl", dedup.TTL)
		return inbox.NewRedisDeduplicator(client, dedup.TTL), nil
	}

	store := inbox.NewStoreDeduplicator(db.store)
	sweeper := inbox.NewSweeper(db.logger)
	if err := sweeper.Add(dedup.SweepSchedule, store, dedup.TTL); err != nil {
		return nil, err
	}
	sweeper.Start()
	db.track(func() error {
		sweeper.Stop()
		return nil
	})
	return store, nil
}

// NewNotifier returns an SMTP notifier when a mail host is configured and a
// log notifier otherwise.
func (db *Database) NewNotifier() (escalation.Notifier, error) {
	smtp := db.cfg.SMTP
	if smtp.Host == "" {
		return escalation.NewLogNotifier(db.logger), nil
	}
	return escalation.NewSMTPNotifier(escalation.SMTPConfig{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
		To:       smtp.To,
	}, db.logger)
}

// NewDispatcher wires the Messenger webhook to asker. The dispatcher is
// closed when the database closes.
func (db *Database) NewDispatcher(ctx context.Context, asker messenger.Asker) (*messenger.Dispatcher, error) {
	mcfg := db.cfg.Messenger
	if !mcfg.Enabled() {
		return nil, ErrMessengerDisabled
	}

	client, err := messenger.NewClient(mcfg.PageToken,
		messenger.WithBaseURL(mcfg.GraphURL),
		messenger.WithClientLogger(db.logger),
	)
	if err != nil {
		return nil, err
	}
	dedup, err := db.NewDeduplicator(ctx)
	if err != nil {
		return nil, err
	}

	phrases := db.cfg.Escalation.Phrases
	if len(phrases) == 0 {
		phrases = escalation.DefaultPhrases
	}
	detector, err := escalation.NewDetector(phrases,
		escalation.WithEmbedder(db.provider.Embedder()),
		escalation.WithThreshold(db.cfg.Escalation.Threshold),
		escalation.WithLogger(db.logger),
	)
	if err != nil {
		return nil, err
	}
	notifier, err := db.NewNotifier()
	if err != nil {
		return nil, err
	}

	dispatcher, err := messenger.NewDispatcher(client, dedup, asker,
		messenger.WithEscalation(detector, notifier),
		messenger.WithTranscriber(db.provider.Transcriber(), mcfg.TranscribeTimeout),
		messenger.WithBufferDelay(mcfg.BufferDelay),
		messenger.WithDispatcherLogger(db.logger),
	)
	if err != nil {
		return nil, err
	}
	db.track(func() error {
		dispatcher.Close()
		return nil
	})
	return dispatcher, nil
}

// NewServer builds the HTTP API. The Messenger webhook is mounted when a
// page token is configured.
func (db *Database) NewServer(ctx context.Context, opts ...server.Option) (*server.Server, error) {
	pipeline, err := db.NewPipeline()
	if err != nil {
		return nil, err
	}
	service, err := db.NewChatService()
	if err != nil {
		return nil, err
	}

	base := []server.Option{
		server.WithSessions(db.registry),
		server.WithLogger(db.logger),
	}
	if db.cfg.Messenger.Enabled() {
		dispatcher, err := db.NewDispatcher(ctx, service)
		if err != nil {
			return nil, err
		}
		base = append(base, server.WithWebhook(dispatcher, db.cfg.Messenger.VerifyToken))
	} else {
		db.logger.Info("messenger webhook disabled: no page token")
	}
	return server.New(pipeline, service, append(base, opts...)...)
}
