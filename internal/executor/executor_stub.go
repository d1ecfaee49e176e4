//go:build !linux && !windows
// +build !linux,!windows

package executor

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrUnsupportedPlatform is returned by every StubExecutor call
var ErrUnsupportedPlatform = errors.New("wallpaper control not available on this platform")

// StubExecutor backs the backdrop sink on platforms without a wallpaper setter
type StubExecutor struct {
	logger *zap.Logger
}

// NewExecutor creates a stub executor
func NewExecutor(logger *zap.Logger) (*StubExecutor, error) {
	logger.Warn("Backdrop sink has no wallpaper setter on this platform")
	return &StubExecutor{logger: logger}, nil
}

// SetWallpaper always fails
func (e *StubExecutor) SetWallpaper(ctx context.Context, imagePath string) error {
	return ErrUnsupportedPlatform
}

// GetCurrentWallpaper always fails
func (e *StubExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	return "", ErrUnsupportedPlatform
}
