// Package search queries SerpAPI for organic web results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://serpapi.com"

// ErrMalformedResponse is returned when the body cannot be decoded or carries
// no organic_results field.
var ErrMalformedResponse = errors.New("malformed search response")

// Result is one organic search hit.
type Result struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

type response struct {
	OrganicResults *[]Result `json:"organic_results"`
	Error          string    `json:"error"`
}

// Client is a thin SerpAPI client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. baseURL may be empty for the public endpoint.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("search API key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Search returns the organic results for query in ranked order, as sent.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error embeds the full URL including the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("search request: %w", uerr.Err)
		}
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search API returned %s", resp.Status)
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decoded.OrganicResults == nil {
		if decoded.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, decoded.Error)
		}
		return nil, ErrMalformedResponse
	}

	return *decoded.OrganicResults, nil
}

// Top keeps the first n ranked results, then drops those missing a title or
// link. Nothing past position n is ever promoted into the window.
func Top(results []Result, n int) []Result {
	if len(results) > n {
		results = results[:n]
	}
	top := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Title == "" || r.Link == "" {
			continue
		}
		top = append(top, r)
	}
	return top
}

// FormatTop renders Top(results, n) under a header, one "- title: link" line
// each.
func FormatTop(results []Result, n int) string {
	results = Top(results, n)
	var b strings.Builder
	b.WriteString("Top search results:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Link)
	}
	return b.String()
}
