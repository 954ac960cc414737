package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/chunk"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/embedding"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage"
)

// Mode selects how records reach the collection.
type Mode int

const (
	// ModeReplace wipes the collection before writing.
	ModeReplace Mode = iota
	// ModeUpsert overwrites records with matching ids and keeps the rest.
	ModeUpsert
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeUpsert:
		return "upsert"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts "replace" and "upsert". An empty string is replace.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return ModeReplace, nil
	case "upsert":
		return ModeUpsert, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Request describes one upload.
type Request struct {
	Units    []Unit
	Backend  core.Backend
	Location core.Location
	Mode     Mode
	// SessionID re-registers an existing session. Required for upserts,
	// whose record ids are derived from it.
	SessionID string
	// SourceID distinguishes uploads within a session. Required for upserts.
	SourceID string
	Files    []string
}

// Result summarises a completed upload.
type Result struct {
	SessionID       string
	Collection      string
	Records         int
	TextRecords     int
	ImageRecords    int
	FailedChunks    int
	FailedImages    int
	DuplicateChunks int
}

// Pipeline ingests uploads.
type Pipeline struct {
	batcher    *embedding.Batcher
	backends   storage.Backends
	registry   *session.Registry
	processors []processor
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many uploads IngestAsync runs concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	batcher *embedding.Batcher,
	chunker *chunk.Chunker,
	backends storage.Backends,
	registry *session.Registry,
	opts ...Option,
) (*Pipeline, error) {
	if batcher == nil {
		return nil, ErrBatcherRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if len(backends) == 0 {
		return nil, ErrBackendsRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		batcher:  batcher,
		backends: backends,
		registry: registry,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Processors are created after options so they get the final logger.
	p.processors = []processor{
		newChunkingProcessor(chunker, p.logger),
		newEmbeddingProcessor(batcher, p.logger),
	}
	return p, nil
}

// Ingest chunks, embeds and stores req, then registers the session.
func (p *Pipeline) Ingest(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	if req == nil || len(req.Units) == 0 {
		return nil, ErrNoUnits
	}

	target, err := p.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	repo, err := p.backends.For(target.Backend)
	if err != nil {
		return nil, err
	}

	b := &batch{req: req}
	for _, proc := range p.processors {
		if err := proc.process(ctx, b); err != nil {
			p.logger.Error("ingestion step failed", "step", proc.name(), "err", err)
			return nil, err
		}
	}

	records, result := p.buildRecords(b, req)
	if len(records) == 0 {
		if b.embedErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoEmbeddings, b.embedErr)
		}
		return nil, ErrNoEmbeddings
	}

	collection := target.Location.CollectionKey(target.Backend)
	switch req.Mode {
	case ModeUpsert:
		err = repo.Upsert(ctx, collection, records)
	default:
		err = repo.ReplaceAll(ctx, collection, records)
	}
	if err != nil {
		return nil, err
	}

	id, err := p.registry.Create(ctx, *target)
	if err != nil {
		return nil, err
	}
	result.SessionID = id
	result.Collection = collection

	p.logger.Info("upload ingested",
		"session", id,
		"collection", collection,
		"mode", req.Mode,
		"text_records", result.TextRecords,
		"image_records", result.ImageRecords,
		"failed_chunks", result.FailedChunks,
		"duplicates", result.DuplicateChunks,
		"elapsed", time.Since(start))
	return result, nil
}

// IngestAsync runs Ingest on the pipeline's worker pool and hands the
// outcome to done. The upload outlives cancellation of ctx.
func (p *Pipeline) IngestAsync(ctx context.Context, req *Request, done func(*Result, error)) error {
	ctx = context.WithoutCancel(ctx)
	return p.pool.Submit(func() {
		result, err := p.Ingest(ctx, req)
		if err != nil {
			p.logger.Error("async ingestion failed", "err", err)
		}
		if done != nil {
			done(result, err)
		}
	})
}

// resolveTarget works out the session config the upload registers. An
// existing session supplies the backend and location when the request
// leaves them blank, and its files are kept.
func (p *Pipeline) resolveTarget(ctx context.Context, req *Request) (*session.Config, error) {
	switch req.Mode {
	case ModeReplace:
	case ModeUpsert:
		if req.SessionID == "" || req.SourceID == "" {
			return nil, ErrUpsertRequiresIDs
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, req.Mode)
	}

	target := &session.Config{
		ID:       req.SessionID,
		Backend:  req.Backend,
		Location: req.Location,
		Files:    slices.Clone(req.Files),
	}
	if req.SessionID != "" {
		existing, err := p.registry.Resolve(ctx, req.SessionID)
		switch {
		case err == nil:
			if target.Backend == "" {
				target.Backend = existing.Backend
				target.Location = existing.Location
			}
			target.Files = mergeFiles(existing.Files, req.Files)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	if err := core.ValidateLocation(target.Backend, target.Location); err != nil {
		return nil, err
	}
	return target, nil
}

func mergeFiles(existing, added []string) []string {
	out := slices.Clone(existing)
	for _, f := range added {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// buildRecords pairs embedded chunks and images with ids and metadata.
// Text records come first, then image records.
func (p *Pipeline) buildRecords(b *batch, req *Request) ([]*core.DocumentRecord, *Result) {
	result := &Result{DuplicateChunks: b.duplicates, FailedImages: b.failedImages}
	now := time.Now().UTC()
	model := p.batcher.Model()
	records := make([]*core.DocumentRecord, 0, len(b.chunks)+len(b.imageVectors))

	for i, c := range b.chunks {
		if i >= len(b.vectors) || b.vectors[i] == nil {
			result.FailedChunks++
			continue
		}
		unit := req.Units[c.unit]
		records = append(records, &core.DocumentRecord{
			ID:          textRecordID(req, i),
			Kind:        core.RecordKindText,
			Vector:      b.vectors[i],
			Model:       model,
			Metadata:    unitMetadata(unit, c.index),
			RawText:     c.text,
			ContentHash: c.hash,
			CreatedAt:   now,
		})
	}
	result.TextRecords = len(records)

	imageModel := p.batcher.ImageModel()
	for i, vector := range b.imageVectors {
		unit := req.Units[b.imageUnits[i]]
		text := core.CleanText(unit.Text)
		if text == "" {
			text = fmt.Sprintf("[image %d from %s]", i, sourceName(unit))
		}
		records = append(records, &core.DocumentRecord{
			ID:          imageRecordID(req, i),
			Kind:        core.RecordKindImage,
			Vector:      vector,
			Model:       imageModel,
			Metadata:    unitMetadata(unit, 0),
			RawText:     text,
			ContentHash: core.ContentHash(string(unit.Image)),
			CreatedAt:   now,
		})
	}
	result.ImageRecords = len(records) - result.TextRecords
	result.Records = len(records)
	return records, result
}

func textRecordID(req *Request, n int) string {
	if req.Mode == ModeUpsert {
		return core.UpsertRecordID(req.SessionID, req.SourceID, n)
	}
	return core.ReplaceRecordID(n)
}

func imageRecordID(req *Request, n int) string {
	if req.Mode == ModeUpsert {
		return core.UpsertImageID(req.SessionID, req.SourceID, n)
	}
	return core.ReplaceImageID(n)
}

// unitMetadata carries a row's columns alongside the provenance keys.
// Provenance wins when a column shares its name.
func unitMetadata(unit Unit, chunkIndex int) map[string]string {
	metadata := make(map[string]string, len(unit.Fields)+3)
	if unit.Kind == UnitRow {
		for _, f := range unit.Fields {
			if f.Name != "" {
				metadata[f.Name] = f.Value
			}
		}
	}
	metadata["source"] = sourceName(unit)
	metadata["unit"] = unit.Kind.String()
	metadata["chunk"] = strconv.Itoa(chunkIndex)
	return metadata
}

func sourceName(unit Unit) string {
	if unit.Source == "" {
		return "upload"
	}
	return unit.Source
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
