package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "buu/faq"

func newRecord(id, model string, vector ...float32) *core.DocumentRecord {
	return &core.DocumentRecord{
		ID:      id,
		Kind:    core.RecordKindText,
		Vector:  vector,
		Model:   model,
		RawText: "text of " + id,
	}
}

func newFixture(t *testing.T, records ...*core.DocumentRecord) (storage.DocumentRepository, *mock.MockEmbedder) {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	if len(records) > 0 {
		require.NoError(t, repo.ReplaceAll(context.Background(), testCollection, records))
	}

	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	})
	return repo, embedder
}

// mixedRecords returns records in key order a..e.
func mixedRecords() []*core.DocumentRecord {
	return []*core.DocumentRecord{
		newRecord("a", mock.DefaultModel, 1, 0, 0, 0),
		newRecord("b", mock.DefaultModel, 0, 1, 0, 0),
		newRecord("c", mock.DefaultModel, 0.9, 0.1, 0, 0),
		newRecord("d", "other-model", 1, 0, 0, 0),
		newRecord("e", "", 1, 0),
	}
}

func ids(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.ID
	}
	return out
}

func TestNew(t *testing.T) {
	repo, embedder := newFixture(t)

	_, err := New(nil, embedder)
	assert.Equal(t, ErrRepositoryRequired, err)

	_, err = New(repo, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	r, err := New(repo, embedder, WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultModel, r.model)
	assert.Equal(t, Refuse, r.policy)
}

func TestSearchRefusesForeignRecords(t *testing.T) {
	repo, embedder := newFixture(t, mixedRecords()...)
	r, err := New(repo, embedder)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := r.SearchWithMonitor(context.Background(), "query", testCollection, 10, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, []string{"d", "e"}, monitor.refused)
	assert.Equal(t, 5, monitor.scanned)
}

func TestSearchReconcilesLegacyRecords(t *testing.T) {
	repo, embedder := newFixture(t, mixedRecords()...)
	r, err := New(repo, embedder, WithCrossModelPolicy(Reconcile))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := r.SearchWithMonitor(context.Background(), "query", testCollection, 10, monitor)
	require.NoError(t, err)
	// a, d and e all score 1 and keep scan order.
	assert.Equal(t, []string{"a", "d", "e", "c", "b"}, ids(results))
	assert.Empty(t, monitor.refused)
	assert.Equal(t, []int{2}, monitor.reconciledFrom)
}

func TestSearchTopK(t *testing.T) {
	repo, embedder := newFixture(t, mixedRecords()...)
	r, err := New(repo, embedder)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "query", testCollection, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(results))

	results, err = r.Search(context.Background(), "query", testCollection, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchIsDeterministic(t *testing.T) {
	records := make([]*core.DocumentRecord, 0, 20)
	for _, id := range []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"} {
		// Every record scores the same.
		records = append(records, newRecord(id, mock.DefaultModel, 1, 1, 0, 0))
	}
	repo, embedder := newFixture(t, records...)
	r, err := New(repo, embedder)
	require.NoError(t, err)

	first, err := r.Search(context.Background(), "q", testCollection, 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Search(context.Background(), "q", testCollection, 5)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
	}
	assert.Equal(t, []string{"k0", "k1", "k2", "k3", "k4"}, ids(first))
}

func TestSearchZeroVectorScoresZero(t *testing.T) {
	repo, embedder := newFixture(t,
		newRecord("a", mock.DefaultModel, 0, 1, 0, 0),
		newRecord("z", mock.DefaultModel, 0, 0, 0, 0),
	)
	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0, 0, 0, 0}, nil
	})
	r, err := New(repo, embedder)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "", testCollection, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, float32(0), result.Score)
	}
}

func TestRetrieveReturnsRawText(t *testing.T) {
	repo, embedder := newFixture(t, mixedRecords()...)
	r, err := New(repo, embedder)
	require.NoError(t, err)

	texts, err := r.Retrieve(context.Background(), "   ", testCollection, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"text of a", "text of c"}, texts)
}

func TestRetrieveEmptyCollection(t *testing.T) {
	repo, embedder := newFixture(t)
	r, err := New(repo, embedder)
	require.NoError(t, err)

	texts, err := r.Retrieve(context.Background(), "anything", "missing/collection", 3)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	repo, embedder := newFixture(t, mixedRecords()...)
	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	})
	r, err := New(repo, embedder)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "q", testCollection, 3)
	assert.ErrorIs(t, err, ErrQueryEmbedding)
}

func imageRecord(id, model string, vector ...float32) *core.DocumentRecord {
	record := newRecord(id, model, vector...)
	record.Kind = core.RecordKindImage
	record.RawText = "[image " + id + "]"
	return record
}

func TestSearchImage(t *testing.T) {
	ctx := context.Background()
	repo, embedder := newFixture(t,
		newRecord("a", mock.DefaultModel, 1, 0, 0, 0),
		imageRecord("img-0", "mock-image", 0, 1, 0, 0),
		imageRecord("img-1", "mock-image", 1, 0, 0, 0),
		imageRecord("img-2", "other-image", 1, 0, 0, 0),
		imageRecord("img-3", "mock-image", 1, 0),
	)
	images := mock.NewMockImageEmbedder()
	images.EmbedImageFunc = func(ctx context.Context, data []byte) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}

	t.Run("text queries skip images under refuse", func(t *testing.T) {
		r, err := New(repo, embedder, WithImageEmbedder(images))
		require.NoError(t, err)
		monitor := &recordingMonitor{}
		results, err := r.SearchWithMonitor(ctx, "query", testCollection, 10, monitor)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(results))
		assert.Empty(t, monitor.refused)
	})

	t.Run("image queries score images of the image model", func(t *testing.T) {
		r, err := New(repo, embedder, WithImageEmbedder(images))
		require.NoError(t, err)
		results, err := r.SearchImage(ctx, []byte("png"), testCollection, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"img-1", "img-0"}, ids(results))
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)

		results, err = r.SearchImage(ctx, []byte("png"), testCollection, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"img-1"}, ids(results))
	})

	t.Run("needs an image embedder", func(t *testing.T) {
		r, err := New(repo, embedder)
		require.NoError(t, err)
		_, err = r.SearchImage(ctx, []byte("png"), testCollection, 3)
		assert.ErrorIs(t, err, ErrImageEmbedderRequired)
	})

	t.Run("embedding failure", func(t *testing.T) {
		failing := mock.NewMockImageEmbedder()
		failing.EmbedImageFunc = func(ctx context.Context, data []byte) ([]float32, error) {
			return nil, errors.New("undecodable")
		}
		r, err := New(repo, embedder, WithImageEmbedder(failing))
		require.NoError(t, err)
		_, err = r.SearchImage(ctx, []byte("png"), testCollection, 3)
		assert.ErrorIs(t, err, ErrQueryEmbedding)
	})
}

type recordingMonitor struct {
	noopMonitor
	scanned        int
	refused        []string
	reconciledFrom []int
}

func (m *recordingMonitor) AfterScan(n int) { m.scanned = n }

func (m *recordingMonitor) Refused(record *core.DocumentRecord) {
	m.refused = append(m.refused, record.ID)
}

func (m *recordingMonitor) Reconciled(from, _, _ int) {
	m.reconciledFrom = append(m.reconciledFrom, from)
}

func TestParseCrossModelPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    CrossModelPolicy
		wantErr bool
	}{
		{in: "", want: Refuse},
		{in: "refuse", want: Refuse},
		{in: " Reconcile ", want: Reconcile},
		{in: "merge", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCrossModelPolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownPolicy)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
