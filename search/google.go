package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"charm.land/log/v2"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// googleMaxPageSize is the API's hard cap on results per request.
const googleMaxPageSize = 10

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	cseID      string
	logger     *log.Logger
}

// NewGoogleProvider reads GOOGLE_API_KEY and GOOGLE_CSE_ID from the
// environment.
func NewGoogleProvider(logger *log.Logger) (*GoogleProvider, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	cseID := os.Getenv("GOOGLE_CSE_ID")
	if apiKey == "" || cseID == "" {
		return nil, fmt.Errorf("%w: set GOOGLE_API_KEY and GOOGLE_CSE_ID", ErrMissingCredentials)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &GoogleProvider{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   googleEndpoint,
		apiKey:     apiKey,
		cseID:      cseID,
		logger:     logger,
	}, nil
}

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

func (g *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > googleMaxPageSize {
		limit = googleMaxPageSize
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.cseID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google search: build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("google search: decode response: %w", err)
	}

	urls := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	g.logger.Debug("google search done", "query", query, "results", len(urls))
	return urls, nil
}
