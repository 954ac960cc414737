// Package vision provides a local, deterministic image embedder.
//
// Images are embedded as normalized colour histograms so that image records
// can live alongside text records without a network round trip. The vectors
// are only comparable with other histogram vectors; records carry the model
// tag "rgb-histogram-64" to keep them apart from text embeddings.
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/poiesic/docchat/ai"
)

// ModelName is the model tag written on image records.
const ModelName = "rgb-histogram-64"

// binsPerChannel is the number of buckets for each of R, G and B.
const binsPerChannel = 4

// Dimensions is the length of every vector produced by HistogramEmbedder.
const Dimensions = binsPerChannel * binsPerChannel * binsPerChannel

var (
	ErrEmptyImage  = errors.New("empty image data")
	ErrDecodeImage = errors.New("unable to decode image")
)

// HistogramEmbedder implements ai.ImageEmbedder with a 64-bin RGB histogram.
type HistogramEmbedder struct{}

var _ ai.ImageEmbedder = (*HistogramEmbedder)(nil)

// NewHistogramEmbedder returns a ready embedder. It holds no state.
func NewHistogramEmbedder() *HistogramEmbedder {
	return &HistogramEmbedder{}
}

// Model returns ModelName.
func (h *HistogramEmbedder) Model() string {
	return ModelName
}

// EmbedImage decodes data (PNG, JPEG or GIF) and returns its L2-normalized
// colour histogram. Fully transparent pixels are ignored.
func (h *HistogramEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeImage, err)
	}

	hist := make([]float64, Dimensions)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			hist[bin(r)*binsPerChannel*binsPerChannel+bin(g)*binsPerChannel+bin(b)]++
		}
	}

	var sumSquares float64
	for _, v := range hist {
		sumSquares += v * v
	}
	vector := make([]float32, Dimensions)
	if sumSquares == 0 {
		return vector, nil
	}
	norm := math.Sqrt(sumSquares)
	for i, v := range hist {
		vector[i] = float32(v / norm)
	}
	return vector, nil
}

// bin maps a 16-bit colour channel onto [0, binsPerChannel).
func bin(c uint32) int {
	return int(c>>8) * binsPerChannel / 256
}
