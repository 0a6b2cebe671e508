package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"funnel-canvas-be/pkg/rag"
)

const (
	serperAPIURL     = "https://google.serper.dev/search"
	serperAPITimeout = 30 * time.Second
)

// Provider is the contract for a ranked web search backend.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error)
}

// Client implements Provider on top of the Serper API (serper.dev).
type Client struct {
	apiKey     string
	maxResults int
	httpClient *http.Client
}

var _ Provider = &Client{}

func NewClient(apiKey string, maxResults int) *Client {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Client{
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: serperAPITimeout,
		},
	}
}

// serperRequest represents the request body for Serper API
type serperRequest struct {
	Q       string `json:"q"`             // Search query
	Num     int    `json:"num,omitempty"` // Number of results (default: 10, max: 100)
	GL      string `json:"gl,omitempty"`  // Country code (e.g., "kr", "us")
	HL      string `json:"hl,omitempty"`  // Language code (e.g., "ko", "en")
	AutoCor bool   `json:"autocorrect"`   // Auto-correct spelling
}

// serperResult represents a single organic search result
type serperResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
	Date     string `json:"date,omitempty"`
}

// serperResponse represents the response from Serper API
type serperResponse struct {
	Organic []serperResult `json:"organic"`
}

// Search executes one paid web search call.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]rag.WebSearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("web search API key not configured")
	}

	maxResults := c.maxResults
	if limit > 0 && limit < maxResults {
		maxResults = limit
	}

	serperReq := serperRequest{
		Q:       query,
		Num:     maxResults,
		AutoCor: true,
	}

	body, err := json.Marshal(serperReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", serperAPIURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from serper, code %d, body %s", res.StatusCode, string(resByte))
	}

	var parsed serperResponse
	if err := json.Unmarshal(resByte, &parsed); err != nil {
		return nil, err
	}

	results := make([]rag.WebSearchResult, 0, len(parsed.Organic))
	for _, item := range parsed.Organic {
		score := positionScore(item.Position)
		results = append(results, rag.WebSearchResult{
			Title:          item.Title,
			URL:            item.Link,
			Snippet:        item.Snippet,
			Source:         hostOf(item.Link),
			RelevanceScore: score,
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

// positionScore maps a 1-based rank onto (0, 1], higher is better.
func positionScore(position int) float64 {
	if position <= 0 {
		return 0
	}
	return 1.0 / float64(position)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
