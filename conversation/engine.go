package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// DefaultHistoryPairs is the number of past exchanges replayed to the model.
const DefaultHistoryPairs = 3

// Request is one inbound user turn.
type Request struct {
	UserID  string
	Message string
	// Context is the retrieved, already reduced reference text.
	Context string
	// Emotion is an optional tone hint derived outside the engine.
	Emotion string
}

// Reply is the engine's answer to a Request.
type Reply struct {
	Text string
	// FirstTurn reports whether this reply was the user's greeting turn.
	FirstTurn bool
	// Degraded is set when the completion failed and Text is the apology.
	Degraded bool
}

// Engine composes prompts, calls the completer and records the conversation.
type Engine struct {
	completer    ai.Completer
	turns        storage.TurnRepository
	greetings    storage.GreetingRepository
	profiles     *ProfileStore
	extractor    ai.ProfileExtractor
	stages       []Stage
	historyPairs int
	persona      string
	apology      string
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithHistoryPairs sets how many past user/assistant exchanges are replayed.
// Default is 3.
func WithHistoryPairs(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			n = 0
		}
		e.historyPairs = n
		return nil
	}
}

// WithProfiles enables profile tracking. After each successful turn the
// extractor reads the user's messages and the result is merged into store.
func WithProfiles(store *ProfileStore, extractor ai.ProfileExtractor) Option {
	return func(e *Engine) error {
		if store == nil || extractor == nil {
			return ErrProfileStoreRequired
		}
		e.profiles = store
		e.extractor = extractor
		return nil
	}
}

// WithStages runs the context through stages, in order, before answering.
func WithStages(stages ...Stage) Option {
	return func(e *Engine) error {
		e.stages = append(e.stages, stages...)
		return nil
	}
}

// WithPersona replaces the default role instructions.
func WithPersona(persona string) Option {
	return func(e *Engine) error {
		if strings.TrimSpace(persona) != "" {
			e.persona = persona
		}
		return nil
	}
}

// WithApology replaces the text sent when the completion fails.
func WithApology(apology string) Option {
	return func(e *Engine) error {
		if strings.TrimSpace(apology) != "" {
			e.apology = apology
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates an Engine.
func New(completer ai.Completer, turns storage.TurnRepository, greetings storage.GreetingRepository, opts ...Option) (*Engine, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if turns == nil {
		return nil, ErrTurnRepositoryRequired
	}
	if greetings == nil {
		return nil, ErrGreetingRepositoryRequired
	}

	e := &Engine{
		completer:    completer,
		turns:        turns,
		greetings:    greetings,
		historyPairs: DefaultHistoryPairs,
		persona:      DefaultPersona,
		apology:      DefaultApology,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "conversation")
	return e, nil
}

// Respond handles one user turn. Storage failures are returned; a failed
// completion yields the apology with Degraded set and a nil error, and
// leaves neither an assistant turn nor the greeting flag behind.
func (e *Engine) Respond(ctx context.Context, req Request) (Reply, error) {
	if req.UserID == "" {
		return Reply{}, ErrEmptyUserID
	}
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}
	logger := e.logger.With("user", req.UserID)

	firstTurn, err := e.greetings.IsFirstTurn(ctx, req.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("read greeting flag: %w", err)
	}

	if err := e.turns.AppendTurn(ctx, &core.Turn{UserID: req.UserID, Role: core.RoleUser, Content: req.Message}); err != nil {
		return Reply{}, fmt.Errorf("log user turn: %w", err)
	}

	// The newest turn is the one just appended.
	history, err := e.turns.RecentTurns(ctx, req.UserID, 2*e.historyPairs+1)
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}
	messages := toMessages(history)

	var profile core.Profile
	if e.profiles != nil {
		profile, _ = e.profiles.Get(req.UserID)
	}

	systemPrompt := buildSystemPrompt(promptInput{
		persona:   e.persona,
		emotion:   req.Emotion,
		profile:   profile,
		context:   e.runStages(ctx, logger, req.Message, req.Context),
		firstTurn: firstTurn,
	})

	text, err := e.completer.Complete(ctx, systemPrompt, messages)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Error("completion failed, sending apology", "err", err)
		// The apology answers the user turn so history keeps alternating.
		if err := e.turns.AppendTurn(ctx, &core.Turn{UserID: req.UserID, Role: core.RoleAssistant, Content: e.apology}); err != nil {
			logger.Warn("failed to log apology turn", "err", err)
		}
		return Reply{Text: e.apology, FirstTurn: firstTurn, Degraded: true}, nil
	}

	if err := e.turns.AppendTurn(ctx, &core.Turn{UserID: req.UserID, Role: core.RoleAssistant, Content: text}); err != nil {
		return Reply{}, fmt.Errorf("log assistant turn: %w", err)
	}
	if firstTurn {
		if err := e.greetings.MarkGreeted(ctx, req.UserID); err != nil {
			return Reply{}, fmt.Errorf("mark greeted: %w", err)
		}
	}

	e.updateProfile(ctx, logger, req.UserID, messages)
	return Reply{Text: text, FirstTurn: firstTurn}, nil
}

// runStages pipes passage through each stage. A failing stage is skipped
// and its input carried forward.
func (e *Engine) runStages(ctx context.Context, logger *slog.Logger, question, passage string) string {
	for _, stage := range e.stages {
		out, err := stage.Run(ctx, e.completer, question, passage)
		if err != nil {
			logger.Warn("context stage failed, keeping its input", "stage", stage.Name(), "err", err)
			continue
		}
		logger.Debug("context stage finished", "stage", stage.Name(), "in", len(passage), "out", len(out))
		passage = out
	}
	return passage
}

// updateProfile extracts profile facts from the user's own messages.
// Failures are logged and otherwise ignored.
func (e *Engine) updateProfile(ctx context.Context, logger *slog.Logger, userID string, messages []ai.Message) {
	if e.profiles == nil {
		return
	}
	userMessages := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == ai.RoleUser {
			userMessages = append(userMessages, m)
		}
	}
	extracted, err := e.extractor.ExtractProfile(ctx, userMessages)
	if err != nil {
		logger.Warn("profile extraction failed", "err", err)
		return
	}
	merged := e.profiles.Merge(userID, extracted)
	logger.Debug("profile updated", "known", !merged.IsZero())
}

func toMessages(turns []*core.Turn) []ai.Message {
	messages := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleUser
		if t.Role == core.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: t.Content})
	}
	return messages
}
