package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	_maxImageSize = 10 << 20
	_maxPageSize  = 4 << 20

	_requestTimeout = 10 * time.Second
	_userAgent      = "musicbar/1.0"
)

var (
	// ErrUnsupportedContent is returned when the response is not of an accepted type
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor file
	ErrUnsupportedScheme = errors.New("unsupported protocol")
)

// StatusError reports a non-200 response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// HTTPFetcher downloads bounded payloads over http(s) and reads file:// URLs.
// Bodies beyond the size cap are truncated, not rejected.
type HTTPFetcher struct {
	logger  *zap.Logger
	client  *http.Client
	accept  []string
	maxSize int64
}

func newFetcher(logger *zap.Logger, maxSize int64, accept ...string) *HTTPFetcher {
	return &HTTPFetcher{
		logger:  logger,
		client:  &http.Client{Timeout: _requestTimeout},
		accept:  accept,
		maxSize: maxSize,
	}
}

// NewHTTPFetcher creates the artwork fetcher, which only accepts images
func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	return newFetcher(logger, _maxImageSize, "image/")
}

// NewPageFetcher creates the fetcher surfaces use to load HTML documents
func NewPageFetcher(logger *zap.Logger) *HTTPFetcher {
	return newFetcher(logger, _maxPageSize, "text/html", "application/xhtml+xml")
}

// Fetch returns the body behind rawURL
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.get(ctx, u)
	case "file":
		return f.open(ctx, u.Path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

func (f *HTTPFetcher) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", _userAgent)
	req.Header.Set("Accept", strings.Join(f.accept, ","))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); !f.accepts(ct) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}

	body, err := f.readCapped(resp.Body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Fetched", zap.String("url", u.Redacted()), zap.Int("bytes", len(body)))
	return body, nil
}

// open serves file:// URLs, which players use for locally cached artwork
func (f *HTTPFetcher) open(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	body, err := f.readCapped(file)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Read local file", zap.String("path", path), zap.Int("bytes", len(body)))
	return body, nil
}

func (f *HTTPFetcher) readCapped(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func (f *HTTPFetcher) accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, prefix := range f.accept {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
