// Package sampler derives a representative colour from artwork by
// downsampling it into a small fixed canvas.
package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"sync"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// CanvasSize is the edge of the square canvas artwork is scaled into
	CanvasSize = 32

	pixelStride    = 4  // Sample every 4th pixel
	alphaThreshold = 64 // Pixels below this alpha are ignored
	baseWeight     = 0.5
)

// Sampling strategies
const (
	ModeWeighted = "weighted"
	ModeKmeans   = "kmeans"
)

// PixelSampler fetches artwork and averages its pixels, weighting vivid
// colours above desaturated backgrounds
type PixelSampler struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	mode    string

	mu     sync.Mutex // Guards canvas
	canvas *image.NRGBA
}

// NewPixelSampler creates a sampler using the configured strategy
func NewPixelSampler(logger *zap.Logger, fetcher domain.Fetcher, cfg domain.Config) *PixelSampler {
	mode := cfg.GetSamplerMode()
	if mode != ModeKmeans {
		mode = ModeWeighted
	}
	return &PixelSampler{
		logger:  logger,
		fetcher: fetcher,
		mode:    mode,
		canvas:  image.NewNRGBA(image.Rect(0, 0, CanvasSize, CanvasSize)),
	}
}

// Sample fetches url and returns its representative colour.
// A nil colour with a nil error means the image decoded but had nothing to
// sample (for example it was fully transparent).
func (s *PixelSampler) Sample(ctx context.Context, url string) (*domain.Color, error) {
	if url == "" {
		return nil, nil
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	return s.SampleImage(img), nil
}

// SampleImage draws img into the shared canvas and samples it
func (s *PixelSampler) SampleImage(img image.Image) *domain.Color {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Clear, then scale the whole image into the canvas
	draw.Draw(s.canvas, s.canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(s.canvas, s.canvas.Bounds(), img, bounds, draw.Over, nil)

	weighted := WeightedAverage(s.canvas.Pix)
	if weighted == nil || s.mode != ModeKmeans {
		return weighted
	}

	if c := s.kmeans(); c != nil {
		return c
	}
	return weighted
}

// kmeans picks the most populated k-means cluster of the canvas
func (s *PixelSampler) kmeans() *domain.Color {
	items, err := prominentcolor.KmeansWithArgs(prominentcolor.ArgumentNoCropping, s.canvas)
	if err != nil {
		s.logger.Debug("K-means clustering failed, using weighted average", zap.Error(err))
		return nil
	}

	var best *prominentcolor.ColorItem
	for i := range items {
		if best == nil || items[i].Cnt > best.Cnt {
			best = &items[i]
		}
	}
	if best == nil {
		return nil
	}
	return &domain.Color{R: float64(best.Color.R), G: float64(best.Color.G), B: float64(best.Color.B)}
}

// WeightedAverage averages non-premultiplied RGBA pixels, visiting every
// pixelStride-th pixel and skipping near-transparent ones. Each pixel is
// weighted by baseWeight plus its saturation, (max-min)/max.
// It returns nil when no pixel qualified.
func WeightedAverage(pix []uint8) *domain.Color {
	var r, g, b, total float64

	for i := 0; i+3 < len(pix); i += 4 * pixelStride {
		if pix[i+3] < alphaThreshold {
			continue
		}
		pr, pg, pb := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])

		hi := max(pr, pg, pb)
		lo := min(pr, pg, pb)
		saturation := 0.0
		if hi > 0 {
			saturation = (hi - lo) / hi
		}

		weight := baseWeight + saturation
		r += pr * weight
		g += pg * weight
		b += pb * weight
		total += weight
	}

	if total == 0 {
		return nil
	}
	return &domain.Color{R: r / total, G: g / total, B: b / total}
}

// decode turns raw bytes into an image, converting decoder panics on
// malformed input into errors
func decode(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", domain.ErrNotImage, r)
		}
	}()

	img, _, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotImage, err)
	}
	return img, nil
}
