package retrieval

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// CrossModelPolicy decides what happens to records that were not embedded
// by the query's model.
type CrossModelPolicy int

const (
	// Refuse skips records tagged with another model and untagged records of
	// another dimension.
	Refuse CrossModelPolicy = iota
	// Reconcile maps foreign vectors onto the query dimension and scores
	// them anyway. Only meaningful for legacy collections.
	Reconcile
)

func (p CrossModelPolicy) String() string {
	if p == Reconcile {
		return "reconcile"
	}
	return "refuse"
}

// ParseCrossModelPolicy parses "refuse" or "reconcile". Blank means Refuse.
func ParseCrossModelPolicy(s string) (CrossModelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "refuse":
		return Refuse, nil
	case "reconcile":
		return Reconcile, nil
	default:
		return Refuse, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Retriever ranks the records of a collection by similarity to a query.
// Text queries score text records; image records are scored by SearchImage,
// and by text queries only under Reconcile.
type Retriever struct {
	repo       storage.DocumentRepository
	embedder   ai.Embedder
	images     ai.ImageEmbedder
	model      string
	policy     CrossModelPolicy
	reconciler *Reconciler
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithModel overrides the model tag queries are compared under.
// Default is the embedder's Model().
func WithModel(model string) Option {
	return func(r *Retriever) error {
		r.model = model
		return nil
	}
}

// WithCrossModelPolicy sets how records from other models are handled.
// Default is Refuse.
func WithCrossModelPolicy(policy CrossModelPolicy) Option {
	return func(r *Retriever) error {
		r.policy = policy
		return nil
	}
}

// WithImageEmbedder enables SearchImage.
func WithImageEmbedder(embedder ai.ImageEmbedder) Option {
	return func(r *Retriever) error {
		r.images = embedder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a Retriever reading from repo and embedding queries with embedder.
func New(repo storage.DocumentRepository, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		repo:     repo,
		embedder: embedder,
		model:    embedder.Model(),
		policy:   Refuse,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	r.reconciler = NewReconciler(r.logger)
	return r, nil
}

// Retrieve returns the raw text of the topK records most similar to query.
func (r *Retriever) Retrieve(ctx context.Context, query, collection string, topK int) ([]string, error) {
	results, err := r.Search(ctx, query, collection, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Record.RawText
	}
	return texts, nil
}

// Search returns the topK records most similar to query, best first.
func (r *Retriever) Search(ctx context.Context, query, collection string, topK int) ([]*core.SearchResult, error) {
	return r.SearchWithMonitor(ctx, query, collection, topK, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
// Equal scores keep the collection's scan order.
func (r *Retriever) SearchWithMonitor(ctx context.Context, query, collection string, topK int, monitor Monitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query, collection)

	if topK < 1 {
		monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	// Blank queries are embedded like any other text.
	queryVector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error embedding query", "collection", collection, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}
	dim := len(queryVector)
	monitor.AfterQueryEmbedding(dim)

	records, err := r.repo.Scan(ctx, collection)
	if err != nil {
		r.logger.Error("error scanning collection", "collection", collection, "err", err)
		return nil, err
	}
	monitor.AfterScan(len(records))

	results := r.score(queryVector, records, monitor)
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	monitor.Finish(results)
	return results, nil
}

// score returns one result per usable record, in scan order.
func (r *Retriever) score(queryVector []float32, records []*core.DocumentRecord, monitor Monitor) []*core.SearchResult {
	dim := len(queryVector)
	scores := make([]float32, len(records))
	usable := make([]bool, len(records))
	pending := make(map[int][]int) // foreign dimension -> record positions
	refused, images := 0, 0

	for i, record := range records {
		if len(record.Vector) == 0 {
			continue
		}
		if record.Kind == core.RecordKindImage && r.policy == Refuse {
			images++
			continue
		}
		foreign := record.Model != "" && record.Model != r.model
		reshape := len(record.Vector) != dim

		if r.policy == Refuse && (foreign || reshape) {
			refused++
			monitor.Refused(record)
			continue
		}
		if reshape {
			pending[len(record.Vector)] = append(pending[len(record.Vector)], i)
			continue
		}
		scores[i] = Cosine(queryVector, record.Vector)
		usable[i] = true
	}

	if images > 0 {
		r.logger.Debug("skipped image records for a text query", "images", images)
	}
	if refused > 0 {
		r.logger.Warn("refused records embedded by another model",
			"model", r.model, "refused", refused, "scanned", len(records))
	}

	// Map iteration order does not matter: each group writes its own slots.
	for from, positions := range pending {
		group := make([][]float32, len(positions))
		for j, pos := range positions {
			group[j] = records[pos].Vector
		}
		projected := r.reconciler.Project(group, dim)
		for j, pos := range positions {
			scores[pos] = Cosine(queryVector, projected[j])
			usable[pos] = true
		}
		r.logger.Debug("reconciled vectors", "from", from, "to", dim, "records", len(positions))
		monitor.Reconciled(from, dim, len(positions))
	}

	results := make([]*core.SearchResult, 0, len(records))
	for i, record := range records {
		if usable[i] {
			results = append(results, &core.SearchResult{Record: record, Score: scores[i]})
		}
	}
	return results
}

// SearchImage returns the topK image records most similar to an encoded
// image, best first. Only image records tagged with the image embedder's
// model, or untagged records of the same dimension, are scored.
func (r *Retriever) SearchImage(ctx context.Context, data []byte, collection string, topK int) ([]*core.SearchResult, error) {
	if r.images == nil {
		return nil, ErrImageEmbedderRequired
	}
	if topK < 1 {
		return []*core.SearchResult{}, nil
	}

	queryVector, err := r.images.EmbedImage(ctx, data)
	if err != nil {
		r.logger.Error("error embedding query image", "collection", collection, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}

	records, err := r.repo.Scan(ctx, collection)
	if err != nil {
		r.logger.Error("error scanning collection", "collection", collection, "err", err)
		return nil, err
	}

	model := r.images.Model()
	results := make([]*core.SearchResult, 0)
	for _, record := range records {
		if record.Kind != core.RecordKindImage || len(record.Vector) != len(queryVector) {
			continue
		}
		if record.Model != "" && record.Model != model {
			continue
		}
		results = append(results, &core.SearchResult{Record: record, Score: Cosine(queryVector, record.Vector)})
	}
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
