package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRateLimited is returned when a provider asks the caller to back off.
var ErrRateLimited = errors.New("trivia provider rate limit")

const defaultTimeout = 5 * time.Second

// provider is the HTTP plumbing shared by every trivia source.
type provider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

func newProvider(name, baseURL, fallbackURL string, httpClient *http.Client) provider {
	if baseURL == "" {
		baseURL = fallbackURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return provider{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		header:     http.Header{},
	}
}

// getJSON issues GET baseURL+path?query and decodes the body into out.
func (p provider) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", p.name, err)
	}
	for k, v := range p.header {
		req.Header[k] = v
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s: unexpected status %d", p.name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	return nil
}
