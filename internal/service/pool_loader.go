package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dictation/internal/config"

	"github.com/xeipuuv/gojsonschema"
)

const (
	poolRequestTimeout = 10 * time.Second
	maxPoolPayload     = 5 * 1024 * 1024 // 5MB
)

// itemListSchema describes the accepted payload: {"items": ["...", ...]}
const itemListSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

// PoolLoader fetches the item list for a language and grade. Relative
// resource paths are resolved against baseURL, which may be an http(s) URL
// or a local directory.
type PoolLoader struct {
	sources *config.Sources
	baseURL string
	client  *http.Client
	schema  *gojsonschema.Schema
}

type itemList struct {
	Items []string `json:"items"`
}

// NewPoolLoader creates a new pool loader
func NewPoolLoader(sources *config.Sources, baseURL string, client *http.Client) (*PoolLoader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(itemListSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile item list schema: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: poolRequestTimeout}
	}
	return &PoolLoader{
		sources: sources,
		baseURL: baseURL,
		client:  client,
		schema:  schema,
	}, nil
}

// Load returns a fresh copy of the items configured for (language, grade).
// Responses are never served from a cache.
func (l *PoolLoader) Load(ctx context.Context, language, grade string) ([]string, error) {
	path, ok := l.sources.Path(language, grade)
	if !ok {
		return nil, fmt.Errorf("%w: no data path for %s/%s", ErrConfiguration, language, grade)
	}

	body, err := l.fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	return l.decode(path, body)
}

func (l *PoolLoader) fetch(ctx context.Context, path string) ([]byte, error) {
	location := l.resolve(path)
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrFetch, location, err)
		}
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, poolRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request for %s: %v", ErrFetch, location, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %v", ErrFetch, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d from %s", ErrFetch, resp.StatusCode, location)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPoolPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body from %s: %v", ErrFetch, location, err)
	}
	return data, nil
}

func (l *PoolLoader) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(l.baseURL, "http://") || strings.HasPrefix(l.baseURL, "https://") {
		base, err := url.Parse(strings.TrimSuffix(l.baseURL, "/") + "/")
		if err == nil {
			if ref, err := url.Parse(path); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
		return strings.TrimSuffix(l.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if filepath.IsAbs(path) || l.baseURL == "" {
		return path
	}
	return filepath.Join(l.baseURL, path)
}

func (l *PoolLoader) decode(path string, body []byte) ([]string, error) {
	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrFormat, path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrFormat, path, strings.Join(msgs, "; "))
	}

	var list itemList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}

	items := make([]string, len(list.Items))
	copy(items, list.Items)
	return items, nil
}
