package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/conversation"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/keywords"
	"github.com/poiesic/docchat/reduce"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 3

	// DefaultContextBudget is the token budget of the reduced context.
	DefaultContextBudget = reduce.DefaultMaxTokens
)

// Retriever returns the raw text of the records closest to query.
type Retriever interface {
	Retrieve(ctx context.Context, query, collection string, topK int) ([]string, error)
}

// Retrievers routes a session backend to its retriever.
type Retrievers map[core.Backend]Retriever

// Question is one user question.
type Question struct {
	// SessionID names the corpus to search.
	SessionID string
	// UserID keys the conversation history. The session id is used when blank.
	UserID  string
	Text    string
	Emotion string
}

// Answer is the reply to a Question.
type Answer struct {
	Text      string
	SessionID string
	Keywords  []string
	// Context is the reduced reference text the reply was grounded on.
	Context   string
	FirstTurn bool
	Degraded  bool
}

// Service answers questions.
type Service struct {
	registry   *session.Registry
	retrievers Retrievers
	extractor  *keywords.Extractor
	reducer    *reduce.Reducer
	engine     *conversation.Engine
	topK       int
	budget     int
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets the number of chunks retrieved. Default is 3.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithContextBudget sets the token budget of the reduced context. Default is 1500.
func WithContextBudget(tokens int) Option {
	return func(s *Service) {
		if tokens > 0 {
			s.budget = tokens
		}
	}
}

// WithKeywordExtractor replaces the default keyword extractor.
func WithKeywordExtractor(extractor *keywords.Extractor) Option {
	return func(s *Service) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewService creates a Service.
func NewService(
	registry *session.Registry,
	retrievers Retrievers,
	reducer *reduce.Reducer,
	engine *conversation.Engine,
	opts ...Option,
) (*Service, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if reducer == nil {
		return nil, ErrReducerRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	s := &Service{
		registry:   registry,
		retrievers: retrievers,
		reducer:    reducer,
		engine:     engine,
		topK:       DefaultTopK,
		budget:     DefaultContextBudget,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = keywords.New(keywords.WithLogger(s.logger))
	}
	s.logger = s.logger.With("component", "chat")
	return s, nil
}

// Ask answers q against the session named by q.SessionID. An unknown
// session fails with ErrSessionNotFound before any provider is called.
func (s *Service) Ask(ctx context.Context, q Question) (*Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuestion
	}
	sess, err := s.registry.Resolve(ctx, q.SessionID)
	if err != nil {
		return nil, s.sessionError(q.SessionID, err)
	}
	return s.answer(ctx, q, sess)
}

// AskOrLatest is Ask with the registry's single-corpus fallback: when
// q.SessionID matches nothing and the fallback is enabled, the most recent
// session answers.
func (s *Service) AskOrLatest(ctx context.Context, q Question) (*Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuestion
	}
	sess, err := s.registry.ResolveOrLatest(ctx, q.SessionID)
	if err != nil {
		return nil, s.sessionError(q.SessionID, err)
	}
	return s.answer(ctx, q, sess)
}

func (s *Service) sessionError(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Info("unknown session", "session", id)
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return err
}

func (s *Service) answer(ctx context.Context, q Question, sess *core.Session) (*Answer, error) {
	retriever, ok := s.retrievers[sess.Backend]
	if !ok || retriever == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRetriever, sess.Backend)
	}
	userID := q.UserID
	if userID == "" {
		userID = sess.ID
	}
	logger := s.logger.With("session", sess.ID, "user", userID)

	kws := s.extractor.Keywords(q.Text)
	searchKey := q.Text
	if len(kws) > 0 {
		searchKey = strings.Join(kws, " ")
	}
	logger.Debug("keywords extracted", "keywords", kws, "search_key", searchKey)

	chunks, err := retriever.Retrieve(ctx, searchKey, sess.Collection(), s.topK)
	if err != nil {
		return nil, err
	}
	passage := s.reduceContext(logger, strings.Join(chunks, "\n"), kws)

	reply, err := s.engine.Respond(ctx, conversation.Request{
		UserID:  userID,
		Message: q.Text,
		Context: passage,
		Emotion: q.Emotion,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("question answered",
		"retrieved", len(chunks),
		"context_chars", len(passage),
		"degraded", reply.Degraded)
	return &Answer{
		Text:      reply.Text,
		SessionID: sess.ID,
		Keywords:  kws,
		Context:   passage,
		FirstTurn: reply.FirstTurn,
		Degraded:  reply.Degraded,
	}, nil
}

// reduceContext filters text to the lines holding a keyword and truncates
// it to the budget. When no line holds a keyword the unfiltered text is
// truncated instead so the retrieved chunks are not thrown away.
func (s *Service) reduceContext(logger *slog.Logger, text string, kws []string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	reduced := s.reducer.Reduce(text, s.budget, kws)
	if reduced == "" && len(kws) > 0 {
		logger.Debug("no retrieved line holds a keyword, using unfiltered context")
		reduced = s.reducer.Reduce(text, s.budget, nil)
	}
	return reduced
}
