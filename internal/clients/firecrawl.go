package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const firecrawlBaseURL = "https://api.firecrawl.dev/v1"

// FirecrawlClient backs the web_search tool: search with scraped markdown
// summaries, trimmed to something an SMS-bound agent can digest.
type FirecrawlClient struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewFirecrawlClient(apiKey string) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: firecrawlBaseURL,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
}

func (c *FirecrawlClient) Search(ctx context.Context, query string) (string, error) {
	b, err := json.Marshal(searchRequest{Query: query, Limit: 3})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("firecrawl status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var sr searchResponse
	if err := json.Unmarshal(payload, &sr); err != nil {
		return "", fmt.Errorf("decode firecrawl response: %w", err)
	}
	if !sr.Success || len(sr.Data) == 0 {
		return "", fmt.Errorf("no results for %q", query)
	}

	var sb strings.Builder
	for i, item := range sr.Data {
		fmt.Fprintf(&sb, "%d. %s", i+1, item.Title)
		if item.Description != "" {
			sb.WriteString(" - ")
			sb.WriteString(item.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
