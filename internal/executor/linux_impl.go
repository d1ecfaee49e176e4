//go:build linux
// +build linux

package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrQueryUnsupported is returned when the detected setter cannot report the
// wallpaper currently shown
var ErrQueryUnsupported = errors.New("wallpaper query not supported by this setter")

// Setter describes a wallpaper tool. Set and Query are argument templates
// where %s stands for the image path.
type Setter struct {
	Name   string
	Binary string
	Set    []string
	Query  []string
	// URI setters take and report file:// URIs instead of paths
	URI bool
	// Parse extracts the wallpaper path from the query output
	Parse func(out string) string
}

// Ordered list of setters to try (highest priority first)
var setters = []Setter{
	{Name: "swww", Binary: "swww", Set: []string{"img", "%s"}, Query: []string{"query"}, Parse: parseSwwwQuery},
	{Name: "hyprpaper", Binary: "hyprctl", Set: []string{"hyprpaper", "wallpaper", ",%s"}, Query: []string{"hyprpaper", "listactive"}, Parse: parseHyprpaperQuery},
	{Name: "swaybg", Binary: "swaybg", Set: []string{"-i", "%s", "-m", "fill"}},
	{
		Name: "gnome", Binary: "gsettings", URI: true,
		Set:   []string{"set", "org.gnome.desktop.background", "picture-uri-dark", "%s"},
		Query: []string{"get", "org.gnome.desktop.background", "picture-uri-dark"},
		Parse: parseGSettingsValue,
	},
	{Name: "feh", Binary: "feh", Set: []string{"--bg-fill", "%s"}},
	{Name: "nitrogen", Binary: "nitrogen", Set: []string{"--set-zoom-fill", "%s"}},
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LinuxExecutor drives the wallpaper setter found on this desktop
type LinuxExecutor struct {
	logger *zap.Logger
	setter Setter
	run    runner
}

// NewExecutor detects a wallpaper setter for the running session
func NewExecutor(logger *zap.Logger) (*LinuxExecutor, error) {
	setter, ok := detectSetter(logger, exists)
	if !ok {
		return nil, fmt.Errorf("no supported wallpaper command found on this system")
	}

	logger.Info("Wallpaper setter detected",
		zap.String("name", setter.Name),
		zap.String("binary", setter.Binary))

	return &LinuxExecutor{logger: logger, setter: setter, run: runCommand}, nil
}

func exists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// detectSetter picks a setter from session hints, falling back to the first
// installed one
func detectSetter(logger *zap.Logger, installed func(string) bool) (Setter, bool) {
	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	wayland := os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("XDG_SESSION_TYPE") == "wayland"
	hyprland := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != ""

	logger.Debug("Detecting wallpaper setter",
		zap.String("desktop", desktop),
		zap.Bool("wayland", wayland),
		zap.Bool("hyprland", hyprland))

	var preferred []string
	switch {
	case hyprland:
		preferred = []string{"swww", "hyprpaper"}
	case strings.Contains(desktop, "gnome"):
		preferred = []string{"gnome"}
	case wayland:
		preferred = []string{"swww", "swaybg"}
	}

	for _, name := range preferred {
		for _, s := range setters {
			if s.Name == name && installed(s.Binary) {
				return s, true
			}
		}
	}

	for _, s := range setters {
		if installed(s.Binary) {
			logger.Info("Using fallback wallpaper setter", zap.String("name", s.Name))
			return s, true
		}
	}
	return Setter{}, false
}

func expand(template []string, value string) []string {
	args := make([]string, len(template))
	for i, arg := range template {
		args[i] = strings.ReplaceAll(arg, "%s", value)
	}
	return args
}

// SetWallpaper shows imagePath as the desktop wallpaper
func (e *LinuxExecutor) SetWallpaper(ctx context.Context, imagePath string) error {
	target := imagePath
	if e.setter.URI && !strings.HasPrefix(target, "file://") {
		target = "file://" + target
	}
	args := expand(e.setter.Set, target)

	e.logger.Debug("Setting wallpaper",
		zap.String("command", e.setter.Binary),
		zap.Strings("args", args))

	output, err := e.run(ctx, e.setter.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to set wallpaper with %s: %w (output: %s)",
			e.setter.Name, err, strings.TrimSpace(string(output)))
	}

	e.logger.Info("Wallpaper set",
		zap.String("command", e.setter.Name),
		zap.String("path", imagePath))
	return nil
}

// GetCurrentWallpaper reports the image the desktop is showing, so it can be
// put back on shutdown
func (e *LinuxExecutor) GetCurrentWallpaper(ctx context.Context) (string, error) {
	if len(e.setter.Query) == 0 || e.setter.Parse == nil {
		return "", fmt.Errorf("%s: %w", e.setter.Name, ErrQueryUnsupported)
	}

	output, err := e.run(ctx, e.setter.Binary, e.setter.Query...)
	if err != nil {
		return "", fmt.Errorf("failed to query wallpaper with %s: %w", e.setter.Name, err)
	}

	path := e.setter.Parse(string(output))
	path = strings.TrimPrefix(path, "file://")
	if path == "" {
		return "", fmt.Errorf("%s reported no wallpaper", e.setter.Name)
	}
	return filepath.Clean(path), nil
}

// parseGSettingsValue unquotes "'file:///x.jpg'\n"
func parseGSettingsValue(out string) string {
	return strings.Trim(strings.TrimSpace(out), "'\"")
}

// parseSwwwQuery reads the first "image: <path>" field of `swww query`
func parseSwwwQuery(out string) string {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		_, rest, found := strings.Cut(scanner.Text(), "image: ")
		if found {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// parseHyprpaperQuery reads "<monitor> = <path>" from `hyprctl hyprpaper listactive`
func parseHyprpaperQuery(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	_, path, found := strings.Cut(line, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(path)
}
