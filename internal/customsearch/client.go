// Package customsearch calls the Google Custom Search JSON API.
package customsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/cloo-solutions/buscador/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Custom Search JSON API endpoint.
	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	// DefaultTimeout bounds a single request when no client is supplied.
	DefaultTimeout = 30 * time.Second

	maxErrorBodyBytes = 64 * 1024
)

// Searcher is the operation every workflow funnels through.
type Searcher interface {
	PerformSearch(ctx context.Context, query, engineID string) ([]domain.SearchResult, error)
}

// TransportError is a network failure or a non-2xx answer from the API.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("search api returned status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("search api returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("search api request failed: %v", e.Err)
	default:
		return "search api request failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL     string
	Credentials config.Credentials
	HTTPClient  *http.Client
	Metrics     *metrics.Metrics
	Logger      *zerolog.Logger
}

// Client issues one GET per search. It never retries.
type Client struct {
	baseURL    string
	creds      config.Credentials
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "customsearch").Logger()
	}
	return &Client{
		baseURL:    baseURL,
		creds:      cfg.Credentials,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		log:        logger,
	}
}

type apiItem struct {
	Title   *string `json:"title"`
	Link    *string `json:"link"`
	Snippet *string `json:"snippet"`
}

type apiResponse struct {
	Items []apiItem `json:"items"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// PerformSearch runs query against engineID and returns the items in the
// order the API ranked them. A successful answer without items yields an
// empty, non-nil slice.
func (c *Client) PerformSearch(ctx context.Context, query, engineID string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if !c.creds.HasEngine(engineID) {
		return nil, domain.ErrUnknownEngine
	}

	scope := string(c.creds.ScopeOf(engineID))
	ctx, span := telemetry.StartSpan(ctx, "customsearch.perform_search", telemetry.SpanAttributes{
		Scope:     scope,
		Operation: "perform_search",
	})
	defer span.End()

	start := time.Now()
	results, err := c.do(ctx, query, engineID)
	elapsed := time.Since(start)

	c.metrics.ObserveSearch(scope, string(domain.OutcomeOf(results, err).Status), elapsed)

	if err != nil {
		span.SetError(err)
		c.log.Warn().
			Err(err).
			Str("scope", scope).
			Dur("duration", elapsed).
			Msg("search failed")
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, domain.ErrSearchUnavailable.Message, err)
	}

	c.log.Debug().
		Str("scope", scope).
		Int("results", len(results)).
		Dur("duration", elapsed).
		Msg("search completed")
	return results, nil
}

func (c *Client) do(ctx context.Context, query, engineID string) ([]domain.SearchResult, error) {
	reqURL, err := c.requestURL(query, engineID)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: redactError(err, c.creds.APIKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	results := make([]domain.SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, domain.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

func (c *Client) requestURL(query, engineID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	params := u.Query()
	params.Set("key", c.creds.APIKey)
	params.Set("cx", engineID)
	params.Set("q", query)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func errorMessage(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:197] + "..."
	}
	return msg
}

// redactError keeps the API key out of *url.Error messages, which embed the
// full request URL.
func redactError(err error, apiKey string) error {
	if apiKey == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, apiKey) {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(msg, apiKey, "REDACTED"), cause: err}
}

type redactedError struct {
	msg   string
	cause error
}

func (e redactedError) Error() string { return e.msg }

func (e redactedError) Unwrap() error { return e.cause }
