package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/conversation"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/keywords"
	"github.com/poiesic/docchat/reduce"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/storage/sqlstore"
	"github.com/poiesic/docchat/tokenize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nounTagger keeps every whitespace-separated word as a noun.
type nounTagger struct{}

func (nounTagger) Tag(text string) ([]keywords.TaggedToken, error) {
	var out []keywords.TaggedToken
	for _, w := range strings.Fields(text) {
		out = append(out, keywords.TaggedToken{Text: w, Tag: "NN"})
	}
	return out, nil
}

var faqTexts = []string{
	"คำถาม: ลืมรหัสผ่าน\nคำตอบ: ติดต่อห้อง 201",
	"คำถาม: wifi ใช้ไม่ได้\nคำตอบ: รีสตาร์ทเครื่อง",
}

type fixture struct {
	service   *Service
	registry  *session.Registry
	store     *sqlstore.Store
	embedder  *mock.MockEmbedder
	completer *mock.MockCompleter
	sessionID string
	queries   []string
}

func newFixture(t *testing.T, registryOpts ...session.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{}

	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	f.store = store

	index, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	records := make([]*core.DocumentRecord, len(faqTexts))
	for i, text := range faqTexts {
		records[i] = &core.DocumentRecord{
			ID:      core.ReplaceRecordID(i),
			Kind:    core.RecordKindText,
			Vector:  mock.DeterministicVector(text, mock.DefaultDimensions),
			Model:   mock.DefaultModel,
			RawText: text,
		}
	}
	require.NoError(t, index.ReplaceAll(ctx, "buu/faq", records))

	f.registry, err = session.NewRegistry(store, registryOpts...)
	require.NoError(t, err)
	f.sessionID, err = f.registry.Create(ctx, session.Config{
		Backend:  core.BackendVectorIndex,
		Location: core.Location{Index: "buu", Namespace: "faq"},
	})
	require.NoError(t, err)

	f.embedder = mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		f.queries = append(f.queries, text)
		return mock.DeterministicVector(text, mock.DefaultDimensions), nil
	})
	retriever, err := retrieval.New(index, f.embedder)
	require.NoError(t, err)

	reducer, err := reduce.New(tokenize.Runes{})
	require.NoError(t, err)

	f.completer = mock.NewMockCompleter()
	engine, err := conversation.New(f.completer, store, store)
	require.NoError(t, err)

	f.service, err = NewService(f.registry, Retrievers{core.BackendVectorIndex: retriever}, reducer, engine,
		WithKeywordExtractor(keywords.New(keywords.WithTagger(nounTagger{}))))
	require.NoError(t, err)
	return f
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	f := newFixture(t)
	_, err := NewService(nil, nil, f.service.reducer, f.service.engine)
	assert.ErrorIs(t, err, ErrRegistryRequired)
	_, err = NewService(f.registry, nil, nil, f.service.engine)
	assert.ErrorIs(t, err, ErrReducerRequired)
	_, err = NewService(f.registry, nil, f.service.reducer, nil)
	assert.ErrorIs(t, err, ErrEngineRequired)
}

func TestAskUnknownSessionCallsNoProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ask(context.Background(), Question{SessionID: "missing", UserID: "u1", Text: "ลืมรหัสผ่าน"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, f.embedder.CallCount())
	assert.Equal(t, 0, f.completer.CallCount())
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Ask(context.Background(), Question{SessionID: f.sessionID, Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskFiltersContextByKeywords(t *testing.T) {
	f := newFixture(t)

	answer, err := f.service.Ask(context.Background(), Question{
		SessionID: f.sessionID,
		UserID:    "u1",
		Text:      "ลืมรหัสผ่านครับ",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ลืม", "รหัสผ่าน"}, answer.Keywords)
	assert.Equal(t, []string{"ลืม รหัสผ่าน"}, f.queries, "keywords form the search key")
	assert.Equal(t, "คำถาม: ลืมรหัสผ่าน", answer.Context)
	assert.Equal(t, "echo: ลืมรหัสผ่านครับ", answer.Text)
	assert.Equal(t, f.sessionID, answer.SessionID)
	assert.True(t, answer.FirstTurn)
	assert.False(t, answer.Degraded)
	assert.Contains(t, f.completer.LastPrompt(), "คำถาม: ลืมรหัสผ่าน")
}

func TestAskFallsBackToRawQuery(t *testing.T) {
	f := newFixture(t)

	answer, err := f.service.Ask(context.Background(), Question{SessionID: f.sessionID, UserID: "u1", Text: "ครับ"})
	require.NoError(t, err)

	assert.Empty(t, answer.Keywords)
	assert.Equal(t, []string{"ครับ"}, f.queries)
	for _, text := range faqTexts {
		assert.Contains(t, answer.Context, text)
	}
}

func TestAskKeepsContextWhenNoLineMatches(t *testing.T) {
	f := newFixture(t)

	answer, err := f.service.Ask(context.Background(), Question{SessionID: f.sessionID, UserID: "u1", Text: "ไวไฟ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ไวไฟ"}, answer.Keywords)
	assert.NotEmpty(t, answer.Context)
}

func TestAskUsesSessionAsDefaultUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Ask(ctx, Question{SessionID: f.sessionID, Text: "ลืมรหัสผ่าน"})
	require.NoError(t, err)

	turns, err := f.store.RecentTurns(ctx, f.sessionID, 10)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestAskNoRetrieverForBackend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.registry.Create(ctx, session.Config{
		Backend:  core.BackendDocumentStore,
		Location: core.Location{Database: "buu", Collection: "faq"},
	})
	require.NoError(t, err)

	_, err = f.service.Ask(ctx, Question{SessionID: id, Text: "ลืมรหัสผ่าน"})
	assert.ErrorIs(t, err, ErrNoRetriever)
}

func TestAskOrLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback disabled", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AskOrLatest(ctx, Question{SessionID: "fb_123", UserID: "123", Text: "ลืมรหัสผ่าน"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("fallback enabled", func(t *testing.T) {
		f := newFixture(t, session.WithSingleCorpusFallback(true))
		answer, err := f.service.AskOrLatest(ctx, Question{SessionID: "fb_123", UserID: "123", Text: "ลืมรหัสผ่าน"})
		require.NoError(t, err)
		assert.Equal(t, f.sessionID, answer.SessionID)
	})
}
