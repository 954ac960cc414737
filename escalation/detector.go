package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/retrieval"
)

// DefaultThreshold is the cosine similarity at which a message escalates.
const DefaultThreshold = 0.7

// DefaultPhrases are the requests for staff the detector looks for.
var DefaultPhrases = []string{
	"ติดต่อเจ้าหน้าที่",
	"แจ้งเจ้าหน้าที่",
	"ขอคุยกับเจ้าหน้าที่",
	"อยากคุยกับแอดมิน",
	"ขอความช่วยเหลือจากเจ้าหน้าที่",
	"แอดมินอยู่ไหม",
	"รบกวนติดต่อเจ้าหน้าที่",
}

// Result describes one escalation decision.
type Result struct {
	Escalate bool
	// Direct is true when a phrase occurred literally in the message.
	Direct bool
	// Score is the best similarity against the phrases. It is 1 for a
	// direct match and 0 when no embedding was computed.
	Score float32
	// Phrase is the closest target phrase.
	Phrase string
}

// Detector flags messages that ask for a human.
type Detector struct {
	phrases   []string
	embedder  ai.Embedder
	threshold float32
	logger    *slog.Logger

	mu      sync.Mutex
	vectors [][]float32
}

// Option configures a Detector.
type Option func(*Detector) error

// WithEmbedder enables semantic matching. Without it only literal
// occurrences escalate.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(d *Detector) error {
		d.embedder = embedder
		return nil
	}
}

// WithThreshold sets the similarity threshold. Default is 0.7.
func WithThreshold(threshold float32) Option {
	return func(d *Detector) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		d.threshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDetector creates a detector for phrases. Blank phrases are ignored.
func NewDetector(phrases []string, opts ...Option) (*Detector, error) {
	kept := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoPhrases
	}

	d := &Detector{
		phrases:   kept,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "escalation")
	return d, nil
}

// Threshold returns the configured similarity threshold.
func (d *Detector) Threshold() float32 {
	return d.threshold
}

// Detect decides whether text asks for a human. Embedding failures are
// logged and treated as no escalation.
func (d *Detector) Detect(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}
	}

	for _, phrase := range d.phrases {
		if strings.Contains(text, phrase) {
			d.logger.Info("escalation matched", "phrase", phrase, "direct", true)
			return Result{Escalate: true, Direct: true, Score: 1, Phrase: phrase}
		}
	}
	if d.embedder == nil {
		return Result{}
	}

	phraseVectors, err := d.phraseVectors(ctx)
	if err != nil {
		d.logger.Warn("phrase embedding failed", "err", err)
		return Result{}
	}
	query, err := d.embedder.EmbedText(ctx, text)
	if err != nil {
		d.logger.Warn("message embedding failed", "err", err)
		return Result{}
	}

	var best Result
	for i, vector := range phraseVectors {
		if score := retrieval.Cosine(query, vector); score > best.Score || best.Phrase == "" {
			best.Score = score
			best.Phrase = d.phrases[i]
		}
	}
	best.Escalate = best.Score >= d.threshold
	d.logger.Debug("escalation scored", "score", best.Score, "phrase", best.Phrase, "escalate", best.Escalate)
	if best.Escalate {
		d.logger.Info("escalation matched", "phrase", best.Phrase, "score", best.Score, "direct", false)
	}
	return best
}

// phraseVectors embeds the phrases on first use. A failed attempt is not
// cached, so the next call retries.
func (d *Detector) phraseVectors(ctx context.Context) ([][]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vectors != nil {
		return d.vectors, nil
	}
	vectors, err := d.embedder.EmbedTexts(ctx, d.phrases)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(d.phrases) {
		return nil, fmt.Errorf("expected %d phrase vectors, received %d", len(d.phrases), len(vectors))
	}
	d.vectors = vectors
	return vectors, nil
}
