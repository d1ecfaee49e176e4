package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/genricoloni/musicbar/internal/palette"
	"go.uber.org/zap"
)

// CSSFilename is the stylesheet written into the output directory
const CSSFilename = "musicbar.css"

// Accent variants published next to the plain accent
const (
	dimAlpha  = 0.35
	glowAlpha = 0.6
)

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\A `, "\r", "")

// CSSFile publishes the state as custom properties on :root in a stylesheet
// that themes can @import
type CSSFile struct {
	logger *zap.Logger
	path   string

	mu      sync.Mutex
	cover   string
	accent  *domain.Color
	written []byte
}

// NewCSSFile creates a sink writing musicbar.css into dir
func NewCSSFile(logger *zap.Logger, dir string) *CSSFile {
	return &CSSFile{
		logger: logger,
		path:   filepath.Join(dir, CSSFilename),
	}
}

// Path returns the stylesheet location
func (s *CSSFile) Path() string {
	return s.path
}

// PublishCover implements domain.Sink
func (s *CSSFile) PublishCover(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cover = url
	return s.flushLocked()
}

// PublishAccent implements domain.Sink
func (s *CSSFile) PublishAccent(c *domain.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == nil {
		s.accent = nil
	} else {
		accent := *c
		s.accent = &accent
	}
	return s.flushLocked()
}

func (s *CSSFile) flushLocked() error {
	data := Render(s.cover, s.accent)
	if bytes.Equal(data, s.written) {
		return nil
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("css sink: %w", err)
	}
	s.written = data

	s.logger.Debug("Stylesheet updated",
		zap.String("path", s.path),
		zap.Bool("cover", s.cover != ""),
		zap.Bool("accent", s.accent != nil))
	return nil
}

// Render produces the stylesheet for a cover url and accent. Cleared values
// leave their properties out so the theme's fallbacks apply.
func Render(cover string, accent *domain.Color) []byte {
	var b bytes.Buffer
	b.WriteString("/* generated by musicbar */\n:root {\n")

	if cover != "" {
		fmt.Fprintf(&b, "  --music-bar-cover-url: url(\"%s\");\n", cssEscaper.Replace(cover))
		b.WriteString("  --music-bar-cover-opacity: 1;\n")
		b.WriteString("  --music-bar-cover-active: 1;\n")
	} else {
		b.WriteString("  --music-bar-cover-opacity: 0;\n")
		b.WriteString("  --music-bar-cover-active: 0;\n")
	}

	if accent != nil {
		fmt.Fprintf(&b, "  --music-bar-accent: %s;\n", palette.CSS(*accent))
		fmt.Fprintf(&b, "  --music-bar-accent-dim: %s;\n", palette.CSSAlpha(*accent, dimAlpha))
		fmt.Fprintf(&b, "  --music-bar-accent-glow: %s;\n", palette.CSSAlpha(*accent, glowAlpha))
		b.WriteString("  --music-bar-accent-active: 1;\n")
	} else {
		b.WriteString("  --music-bar-accent-active: 0;\n")
	}

	b.WriteString("}\n")
	return b.Bytes()
}

// writeAtomic replaces path through a temp file in the same directory so
// readers never observe a partial write
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
