package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPAdapter translates read params into query strings against a REST
// endpoint returning `{"items": [...], "meta": {...}}`. Timeout and
// cancellation come from the caller's context; the collection layer
// owns the fetch timeout.
type HTTPAdapter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAdapter creates an adapter for the given endpoint URL.
func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		// No client-level timeout: the per-fetch context carries it.
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConns:    8,
			IdleConnTimeout: 30 * time.Second,
		}},
	}
}

// Read implements Adapter.
func (a *HTTPAdapter) Read(ctx context.Context, params Params) (*Result, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("http adapter: parse url: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(params.Limit))
	switch params.Strategy {
	case "page":
		q.Set("page", strconv.Itoa(params.Page))
	case "offset":
		q.Set("offset", strconv.Itoa(params.Offset))
	case "cursor":
		if params.Cursor != "" {
			q.Set("cursor", params.Cursor)
		}
	default:
		return nil, fmt.Errorf("http adapter: unsupported strategy %q", params.Strategy)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("http adapter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http adapter: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("http adapter: unexpected status %d: %s", resp.StatusCode, body)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("http adapter: decode response: %w", err)
	}

	return &result, nil
}
