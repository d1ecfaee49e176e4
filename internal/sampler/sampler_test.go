package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/zap"
)

// mapFetcher serves canned payloads keyed by URL
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, ok := m[url]
	if !ok {
		return nil, fmt.Errorf("unexpected status code: 404")
	}
	return data, nil
}

// stubConfig overrides the sampler mode; other getters are never called
type stubConfig struct {
	domain.Config
	mode string
}

func (c stubConfig) GetSamplerMode() string { return c.mode }

// createTestPNG generates an image where fill decides each pixel's colour
func createTestPNG(width, height int, fill func(x, y int) color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill(x, y))
		}
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		panic("failed to create test PNG: " + err.Error())
	}
	return buf.Bytes()
}

func solid(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1.5
}

func TestPixelSampler_Sample(t *testing.T) {
	fetch := mapFetcher{
		"red":         createTestPNG(100, 100, solid(color.NRGBA{R: 255, A: 255})),
		"large-green": createTestPNG(640, 480, solid(color.NRGBA{G: 200, A: 255})),
		"transparent": createTestPNG(50, 50, solid(color.NRGBA{R: 255, A: 10})),
		"garbage":     []byte("not-an-image"),
		"corrupt":     {0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
	}

	tests := []struct {
		name          string
		url           string
		expectNil     bool
		expectedError string
		check         func(t *testing.T, r, g, b float64)
	}{
		{
			name: "Solid Red",
			url:  "red",
			check: func(t *testing.T, r, g, b float64) {
				if !near(r, 255) || !near(g, 0) || !near(b, 0) {
					t.Errorf("expected red, got (%f, %f, %f)", r, g, b)
				}
			},
		},
		{
			name: "Large Image Downsampled",
			url:  "large-green",
			check: func(t *testing.T, r, g, b float64) {
				if !near(r, 0) || !near(g, 200) || !near(b, 0) {
					t.Errorf("expected green, got (%f, %f, %f)", r, g, b)
				}
			},
		},
		{
			name:      "Fully Transparent",
			url:       "transparent",
			expectNil: true,
		},
		{
			name:          "Undecodable",
			url:           "garbage",
			expectNil:     true,
			expectedError: "failed to decode image",
		},
		{
			name:          "Truncated PNG",
			url:           "corrupt",
			expectNil:     true,
			expectedError: "failed to decode image",
		},
		{
			name:          "Fetch Failure",
			url:           "missing",
			expectNil:     true,
			expectedError: "failed to fetch artwork",
		},
		{
			name:      "Empty URL",
			url:       "",
			expectNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPixelSampler(zap.NewNop(), fetch, stubConfig{})
			c, err := s.Sample(context.Background(), tt.url)

			if tt.expectedError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectedError) {
					t.Fatalf("expected error containing %q, got %v", tt.expectedError, err)
				}
				if tt.expectedError == domain.ErrNotImage.Error() && !errors.Is(err, domain.ErrNotImage) {
					t.Errorf("expected ErrNotImage in chain, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.expectNil {
				if c != nil {
					t.Errorf("expected no colour, got %+v", *c)
				}
				return
			}
			if c == nil {
				t.Fatal("expected a colour, got nil")
			}
			tt.check(t, c.R, c.G, c.B)
		})
	}
}

func TestPixelSampler_CanvasIsClearedBetweenSamples(t *testing.T) {
	fetch := mapFetcher{
		"opaque":      createTestPNG(32, 32, solid(color.NRGBA{B: 255, A: 255})),
		"transparent": createTestPNG(32, 32, solid(color.NRGBA{})),
	}
	s := NewPixelSampler(zap.NewNop(), fetch, stubConfig{})

	if c, _ := s.Sample(context.Background(), "opaque"); c == nil {
		t.Fatal("expected colour for opaque image")
	}
	// Leftover blue pixels would make this sample non-nil
	if c, _ := s.Sample(context.Background(), "transparent"); c != nil {
		t.Errorf("expected nil after clearing, got %+v", *c)
	}
}

func TestPixelSampler_ZeroDimensions(t *testing.T) {
	s := NewPixelSampler(zap.NewNop(), mapFetcher{}, stubConfig{})
	if c := s.SampleImage(image.NewNRGBA(image.Rect(0, 0, 0, 0))); c != nil {
		t.Errorf("expected nil for empty image, got %+v", *c)
	}
}

func TestPixelSampler_KmeansMode(t *testing.T) {
	fetch := mapFetcher{
		"blue": createTestPNG(64, 64, solid(color.NRGBA{R: 20, G: 40, B: 220, A: 255})),
	}
	s := NewPixelSampler(zap.NewNop(), fetch, stubConfig{mode: ModeKmeans})

	c, err := s.Sample(context.Background(), "blue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected a colour")
	}
	if c.B <= c.R || c.B <= c.G {
		t.Errorf("expected a blue-dominant colour, got %+v", *c)
	}
}

func TestWeightedAverage(t *testing.T) {
	pixel := func(r, g, b, a uint8) []uint8 {
		// One sampled pixel followed by stride padding that is never read
		out := []uint8{r, g, b, a}
		return append(out, make([]uint8, 4*(pixelStride-1))...)
	}

	t.Run("Saturation Bias", func(t *testing.T) {
		var pix []uint8
		pix = append(pix, pixel(128, 128, 128, 255)...) // grey, weight 0.5
		pix = append(pix, pixel(255, 0, 0, 255)...)     // red, weight 1.5

		c := WeightedAverage(pix)
		if c == nil {
			t.Fatal("expected a colour")
		}
		// (128*0.5 + 255*1.5) / 2 = 223.25
		if !near(c.R, 223.25) || !near(c.G, 32) || !near(c.B, 32) {
			t.Errorf("unexpected weighted colour %+v", *c)
		}
	})

	t.Run("Alpha Threshold", func(t *testing.T) {
		var pix []uint8
		pix = append(pix, pixel(255, 255, 255, 63)...)
		pix = append(pix, pixel(0, 0, 255, 64)...)

		c := WeightedAverage(pix)
		if c == nil || !near(c.B, 255) || !near(c.R, 0) {
			t.Errorf("expected only the opaque blue pixel to count, got %+v", c)
		}
	})

	t.Run("Black Pixels Count With Base Weight", func(t *testing.T) {
		c := WeightedAverage(pixel(0, 0, 0, 255))
		if c == nil || c.R != 0 || c.G != 0 || c.B != 0 {
			t.Errorf("expected black, got %+v", c)
		}
	})

	t.Run("Nothing Sampled", func(t *testing.T) {
		if c := WeightedAverage(nil); c != nil {
			t.Errorf("expected nil, got %+v", *c)
		}
	})
}
