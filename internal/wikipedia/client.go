package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"heri-science-api/internal/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent = "Heri-Science/1.0 (Educational Archaeological Platform)"

	maxAttempts = 3
)

// ErrNotFound is returned when an article does not exist
var ErrNotFound = errors.New("wikipedia article not found")

// SearchResult is one opensearch hit
type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Article is the intro of a single page
type Article struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// Client talks to the MediaWiki action API
type Client struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another api.php
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryDelay sets the base delay between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithRateLimit caps requests per second
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewClient creates a Wikipedia client
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs an opensearch query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {strconv.Itoa(limit)},
		"namespace": {"0"},
		"format":    {"json"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	// [query, [titles], [descriptions], [urls]]
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode opensearch: %w", err)
	}

	column := func(i int) []string {
		var out []string
		if i < len(raw) {
			_ = json.Unmarshal(raw[i], &out)
		}
		return out
	}
	titles, descs, urls := column(1), column(2), column(3)

	results := make([]SearchResult, len(titles))
	for i, title := range titles {
		results[i].Title = title
		if i < len(descs) {
			results[i].Description = descs[i]
		}
		if i < len(urls) {
			results[i].URL = urls[i]
		}
	}
	return results, nil
}

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			Extract   string `json:"extract"`
			FullURL   string `json:"fullurl"`
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// Summary fetches the plain-text intro, URL and thumbnail of title
func (c *Client) Summary(ctx context.Context, title string) (*Article, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"titles":      {title},
		"prop":        {"extracts|info|pageimages"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"pithumbsize": {"500"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}

	for id, page := range parsed.Query.Pages {
		if id == "-1" {
			return nil, ErrNotFound
		}
		return &Article{
			Title:     page.Title,
			Extract:   page.Extract,
			URL:       page.FullURL,
			Thumbnail: page.Thumbnail.Source,
		}, nil
	}
	return nil, ErrNotFound
}

// get issues a GET with retries on transport errors and 5xx responses
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"action":  params.Get("action"),
			"error":   err.Error(),
		}).Debug("Retrying Wikipedia request")
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("wikipedia server error: status code %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("wikipedia client error: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

func joinQuery(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
