package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // GIF format support
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/palette"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	defaultBlurRadius = 15.0
	coverHeightRatio  = 0.40 // Cover size as percentage of screen height
	tintOpacity       = 0.55 // Accent gradient strength over the blurred cover
	gradientSteps     = 64
	backdropFilename  = "musicbar_backdrop.jpg"
)

// Gradient lightness at the top and bottom of the screen
const (
	topLightness    = 0.42
	bottomLightness = 0.08
)

// Style tunes how artwork shows through the backdrop
type Style struct {
	Blur       float64
	CoverRatio float64 // of screen height
	Tint       float64 // gradient opacity over the blurred artwork
}

// BackdropProcessor renders a wallpaper from the accent colour: a vertical
// accent gradient, laid over the blurred artwork with the sharp cover
// centred when artwork is available.
type BackdropProcessor struct {
	logger *zap.Logger
	res    *domain.ScreenResolution
	style  Style
	cfg    domain.Config
}

// NewBackdropProcessor creates a backdrop renderer for the given screen
func NewBackdropProcessor(logger *zap.Logger, res *domain.ScreenResolution, cfg domain.Config) *BackdropProcessor {
	return &BackdropProcessor{
		logger: logger,
		res:    res,
		cfg:    cfg,
		style:  Style{Blur: defaultBlurRadius, CoverRatio: coverHeightRatio, Tint: tintOpacity},
	}
}

// Render composes the backdrop image. Undecodable artwork is ignored and
// the plain gradient is returned.
func (p *BackdropProcessor) Render(cover []byte, accent domain.Color) (image.Image, error) {
	w, h := p.res.Width, p.res.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid screen resolution: %dx%d", w, h)
	}

	tint := Gradient(accent, w, h)

	img, err := decodeCover(cover)
	if err != nil {
		p.logger.Debug("Rendering backdrop without artwork", zap.Error(err))
		return tint, nil
	}

	// Blurred artwork fills the screen, the accent gradient tints it
	background := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	background = imaging.Blur(background, p.style.Blur)
	background = imaging.Overlay(background, tint, image.Pt(0, 0), p.style.Tint)

	// Sharp cover centred, keeping its aspect ratio
	bounds := img.Bounds()
	coverHeight := int(float64(h) * p.style.CoverRatio)
	coverWidth := coverHeight * bounds.Dx() / bounds.Dy()
	if coverHeight <= 0 || coverWidth <= 0 {
		return background, nil
	}

	sharp := imaging.Resize(img, coverWidth, coverHeight, imaging.Lanczos)
	return imaging.Paste(background, sharp, image.Pt((w-coverWidth)/2, (h-coverHeight)/2)), nil
}

// Process renders the backdrop and encodes it as JPEG
func (p *BackdropProcessor) Process(cover []byte, accent domain.Color) ([]byte, error) {
	img, err := p.Render(cover, accent)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	p.logger.Debug("Backdrop rendered", zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// Generate renders the backdrop and saves it to the output directory.
// This method satisfies the domain.Processor interface.
func (p *BackdropProcessor) Generate(cover []byte, accent domain.Color) (string, error) {
	data, err := p.Process(cover, accent)
	if err != nil {
		return "", fmt.Errorf("failed to render backdrop: %w", err)
	}

	outputDir := p.cfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write then rename so the desktop never loads a half-written file
	outputPath := filepath.Join(outputDir, backdropFilename)
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backdrop file: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return "", fmt.Errorf("failed to replace backdrop file: %w", err)
	}

	p.logger.Info("Backdrop generated",
		zap.String("path", outputPath),
		zap.Int("size", len(data)),
		zap.String("accent", palette.Hex(accent)))

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil
	}
	return absPath, nil
}

// Gradient returns a w x h vertical gradient in the accent's hue, from a
// mid lightness at the top to near black at the bottom
func Gradient(accent domain.Color, w, h int) *image.NRGBA {
	hsl := palette.ToHSL(accent)

	strip := image.NewNRGBA(image.Rect(0, 0, 1, gradientSteps))
	for y := 0; y < gradientSteps; y++ {
		t := float64(y) / float64(gradientSteps-1)
		step := hsl
		step.L = topLightness + (bottomLightness-topLightness)*t
		r, g, b := palette.Round(palette.FromHSL(step))
		strip.SetNRGBA(0, y, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return imaging.Resize(strip, w, h, imaging.Linear)
}

func decodeCover(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no artwork")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}
