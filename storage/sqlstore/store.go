package sqlstore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/poiesic/docchat/storage"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// insertBatchSize bounds the number of rows per INSERT statement. SQLite
// caps bound parameters per statement.
const insertBatchSize = 200

// Store is a gorm-backed implementation of the storage repositories.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ storage.DocumentRepository  = (*Store)(nil)
	_ storage.SessionRepository   = (*Store)(nil)
	_ storage.TurnRepository      = (*Store)(nil)
	_ storage.GreetingRepository  = (*Store)(nil)
	_ storage.ProcessedRepository = (*Store)(nil)
)

type openConfig struct {
	logger   *slog.Logger
	logLevel gormlogger.LogLevel
}

// Option configures Open.
type Option func(*openConfig)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *openConfig) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// WithSQLLogging turns on gorm's statement logging.
func WithSQLLogging(enabled bool) Option {
	return func(c *openConfig) {
		if enabled {
			c.logLevel = gormlogger.Info
		} else {
			c.logLevel = gormlogger.Silent
		}
	}
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
// Use ":memory:" for a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{logger: slog.Default(), logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", storage.ErrStorage, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases from splitting across connections.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&documentModel{},
		&sessionModel{},
		&turnModel{},
		&greetingModel{},
		&processedModel{},
	); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %w", storage.ErrStorage, err)
	}

	return &Store{
		db:     db,
		logger: cfg.logger.With("component", "sqlstore"),
	}, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wrap maps gorm errors onto storage sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %w", storage.ErrStorage, op, err)
}
