package processor

import (
	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var fallbackResolution = domain.ScreenResolution{Width: 1920, Height: 1080}

// NewScreenResolution detects the resolution backdrops are rendered at: the
// largest active display, since one wallpaper is stretched across all of
// them
func NewScreenResolution(logger *zap.Logger) *domain.ScreenResolution {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		logger.Warn("No active displays detected, falling back to default resolution",
			zap.Int("width", fallbackResolution.Width),
			zap.Int("height", fallbackResolution.Height))
		res := fallbackResolution
		return &res
	}

	res := &domain.ScreenResolution{}
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		if bounds.Dx()*bounds.Dy() > res.Width*res.Height {
			res.Width, res.Height = bounds.Dx(), bounds.Dy()
		}
	}

	logger.Info("Screen resolution detected",
		zap.Int("displays", n),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return res
}
