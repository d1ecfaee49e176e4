//go:build windows
// +build windows

package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const (
	setScript = `Add-Type -TypeDefinition 'using System.Runtime.InteropServices; public class W { [DllImport("user32.dll", CharSet=CharSet.Unicode)] public static extern int SystemParametersInfo(int a, int b, string c, int d); }'; [W]::SystemParametersInfo(20, 0, '%s', 3) | Out-Null`
	getScript = `(Get-ItemProperty -Path 'HKCU:\Control Panel\Desktop' -Name Wallpaper).Wallpaper`
)

// WindowsExecutor sets the wallpaper through PowerShell
type WindowsExecutor struct {
	logger *zap.Logger
}

// NewExecutor creates the Windows wallpaper executor
func NewExecutor(logger *zap.Logger) (*WindowsExecutor, error) {
	if _, err := exec.LookPath("powershell"); err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}
	logger.Info("Wallpaper setter detected", zap.String("name", "powershell"))
	return &WindowsExecutor{logger: logger}, nil
}

// SetWallpaper calls SystemParametersInfo(SPI_SETDESKWALLPAPER)
func (e *WindowsExecutor) SetWallpaper(ctx context.Context, imagePath string) error {
	script := fmt.Sprintf(setScript, strings.ReplaceAll(imagePath, "'", "''"))
	output, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set wallpaper: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	e.logger.Info("Wallpaper set", zap.String("path", imagePath))
	return nil
}

// GetCurrentWallpaper reads the wallpaper path from the user's registry hive
func (e *WindowsExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", getScript).Output()
	if err != nil {
		return "", fmt.Errorf("failed to query wallpaper: %w", err)
	}
	path := strings.TrimSpace(string(output))
	if path == "" {
		return "", fmt.Errorf("no wallpaper configured")
	}
	return path, nil
}
