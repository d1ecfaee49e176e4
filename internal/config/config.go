package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOutputDir         = "/tmp/musicbar"
	defaultSamplerMode       = "weighted"
	defaultPollInterval      = 1800 * time.Millisecond
	defaultDiscoveryInterval = 250 * time.Millisecond
	defaultPageTTL           = 10 * time.Second
)

// Sink names accepted in MUSICBAR_SINKS
const (
	SinkCSS      = "css"
	SinkState    = "state"
	SinkBackdrop = "backdrop"
)

var defaultSinks = []string{SinkCSS, SinkState}

// AppConfig holds application configuration
type AppConfig struct {
	outputDir         string
	samplerMode       string
	sinks             []string
	pollInterval      time.Duration
	discoveryInterval time.Duration
	selectorsPath     string
	pageTTL           time.Duration
}

// NewAppConfig reads the MUSICBAR_* environment variables, falling back to
// defaults for anything unset
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	cfg := &AppConfig{
		outputDir:     expandPath(envOr("MUSICBAR_OUTPUT_DIR", defaultOutputDir)),
		samplerMode:   strings.ToLower(envOr("MUSICBAR_SAMPLER", defaultSamplerMode)),
		selectorsPath: expandPath(os.Getenv("MUSICBAR_SELECTORS")),
	}

	switch cfg.samplerMode {
	case "weighted", "kmeans":
	default:
		return nil, fmt.Errorf("MUSICBAR_SAMPLER: unknown mode %q (want weighted or kmeans)", cfg.samplerMode)
	}

	sinks, err := parseSinks(os.Getenv("MUSICBAR_SINKS"))
	if err != nil {
		return nil, err
	}
	cfg.sinks = sinks

	if cfg.pollInterval, err = envDuration("MUSICBAR_POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.discoveryInterval, err = envDuration("MUSICBAR_DISCOVERY_INTERVAL", defaultDiscoveryInterval); err != nil {
		return nil, err
	}
	if cfg.pageTTL, err = envDuration("MUSICBAR_PAGE_TTL", defaultPageTTL); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("outputDir", cfg.outputDir),
		zap.String("sampler", cfg.samplerMode),
		zap.Strings("sinks", cfg.sinks),
		zap.Duration("pollInterval", cfg.pollInterval),
		zap.Duration("discoveryInterval", cfg.discoveryInterval),
		zap.String("selectors", cfg.selectorsPath),
		zap.Duration("pageTTL", cfg.pageTTL))

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}

// expandPath expands environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func parseSinks(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultSinks...), nil
	}

	var sinks []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case SinkCSS, SinkState, SinkBackdrop:
		default:
			return nil, fmt.Errorf("MUSICBAR_SINKS: unknown sink %q", name)
		}
		seen[name] = true
		sinks = append(sinks, name)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("MUSICBAR_SINKS: no sinks enabled")
	}
	return sinks, nil
}

// GetSamplerMode returns the colour sampling strategy
func (c *AppConfig) GetSamplerMode() string {
	return c.samplerMode
}

// GetOutputDir returns the directory published files are written to
func (c *AppConfig) GetOutputDir() string {
	return c.outputDir
}

// GetSinks returns the enabled presentation sinks
func (c *AppConfig) GetSinks() []string {
	return c.sinks
}

// HasSink reports whether the named sink is enabled
func (c *AppConfig) HasSink(name string) bool {
	for _, s := range c.sinks {
		if s == name {
			return true
		}
	}
	return false
}

// GetPollInterval returns the fallback refresh interval while bound
func (c *AppConfig) GetPollInterval() time.Duration {
	return c.pollInterval
}

// GetDiscoveryInterval returns the delay between media host lookups
func (c *AppConfig) GetDiscoveryInterval() time.Duration {
	return c.discoveryInterval
}

// GetSelectorsPath returns the selector table override, "" for the built-in one
func (c *AppConfig) GetSelectorsPath() string {
	return c.selectorsPath
}

// GetPageTTL returns how long a fetched page snapshot stays fresh
func (c *AppConfig) GetPageTTL() time.Duration {
	return c.pageTTL
}
