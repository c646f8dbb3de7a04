// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest loads IIIF presentation manifests from local files or
// over HTTP.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.yaml.in/yaml/v3"
	"golang.org/x/time/rate"

	"github.com/pdiddy/eda-transcribe/internal/httputil"
	"github.com/pdiddy/eda-transcribe/pkg/types"
)

var (
	// ErrNotFound is returned when a manifest file or URL does not exist.
	ErrNotFound = errors.New("manifest not found")

	// ErrUnsupportedSource is returned for sources that are neither a path
	// nor an http(s) or file URL.
	ErrUnsupportedSource = errors.New("unsupported manifest source")
)

const (
	acceptHeader = "application/ld+json, application/json;q=0.9"

	// maxManifestBytes bounds the size of a fetched manifest body.
	maxManifestBytes = 64 << 20
)

// Loader reads manifests. HTTP fetches are rate limited and cached by URL.
// Returned documents may be shared between callers and must not be modified.
type Loader struct {
	client  *http.Client
	cfg     types.FetchConfig
	limiter *rate.Limiter
	cache   *cache.Cache
}

// NewLoader creates a Loader. A nil client uses an http.Client with the
// configured timeout.
func NewLoader(cfg types.FetchConfig, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	l := &Loader{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
	if cfg.CacheTTL > 0 {
		l.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return l
}

// Load reads the manifest named by source: an http(s) URL, a file URL, or a
// filesystem path.
func (l *Loader) Load(ctx context.Context, source string) (*types.ManifestDocument, error) {
	u, err := url.Parse(source)
	if err != nil {
		return loadFile(source)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l.fetch(ctx, source)
	case "file":
		return loadFile(u.Path)
	case "":
		return loadFile(source)
	default:
		// Single-letter schemes are Windows drive letters.
		if len(u.Scheme) == 1 {
			return loadFile(source)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*types.ManifestDocument, error) {
	if l.cache != nil {
		if doc, ok := l.cache.Get(rawURL); ok {
			return doc.(*types.ManifestDocument), nil
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating manifest request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if l.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", l.cfg.UserAgent)
	}
	if l.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, l.client, req, l.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching manifest %s: HTTP %d", rawURL, resp.StatusCode)
	}

	doc, err := Decode(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", rawURL, err)
	}

	if l.cache != nil {
		l.cache.Set(rawURL, doc, cache.DefaultExpiration)
	}
	return doc, nil
}

// Decode parses a JSON manifest.
func Decode(r io.Reader) (*types.ManifestDocument, error) {
	var doc types.ManifestDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// loadFile reads a manifest from disk. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func loadFile(path string) (*types.ManifestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var doc types.ManifestDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &doc, nil
}

// CanvasIDs returns the identifiers of the manifest's canvases in order.
func CanvasIDs(doc *types.ManifestDocument) []string {
	if doc == nil {
		return nil
	}
	ids := make([]string, 0, len(doc.Items))
	for _, c := range doc.Items {
		ids = append(ids, c.ID)
	}
	return ids
}

// Cached reports whether a manifest fetched from rawURL is cached, and when
// the entry expires.
func (l *Loader) Cached(rawURL string) (time.Time, bool) {
	if l.cache == nil {
		return time.Time{}, false
	}
	_, exp, ok := l.cache.GetWithExpiration(rawURL)
	return exp, ok
}
