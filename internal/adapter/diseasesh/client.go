// Package diseasesh is a client for the disease.sh COVID-19 API (v3).
package diseasesh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-tracker-service/internal/domain"
)

// ErrNotFound is returned when the API has no data for the requested country.
var ErrNotFound = errors.New("disease.sh: not found")

const userAgent = "covid-tracker-service/1.0"

// Client fetches raw statistics from disease.sh.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given base URL, e.g.
// "https://disease.sh/v3/covid-19".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Global fetches the worldwide snapshot.
func (c *Client) Global(ctx context.Context) (domain.RawGlobal, error) {
	var out domain.RawGlobal
	if err := c.getJSON(ctx, "/all", nil, &out); err != nil {
		return domain.RawGlobal{}, fmt.Errorf("fetch global: %w", err)
	}
	return out, nil
}

// Countries fetches every country snapshot in upstream order.
func (c *Client) Countries(ctx context.Context) ([]domain.RawCountry, error) {
	var out []domain.RawCountry
	if err := c.getJSON(ctx, "/countries", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	return out, nil
}

// Country fetches one country by ISO2 code.
func (c *Client) Country(ctx context.Context, code string) (domain.RawCountry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.RawCountry{}, errors.New("fetch country: empty code")
	}
	var out domain.RawCountry
	params := url.Values{"strict": {"true"}}
	if err := c.getJSON(ctx, "/countries/"+url.PathEscape(code), params, &out); err != nil {
		return domain.RawCountry{}, fmt.Errorf("fetch country %s: %w", code, err)
	}
	return out, nil
}

// History fetches worldwide cumulative totals for the last days.
func (c *Client) History(ctx context.Context, days int) (domain.RawHistory, error) {
	var out domain.RawHistory
	params := url.Values{"lastdays": {strconv.Itoa(days)}}
	if err := c.getJSON(ctx, "/historical/all", params, &out); err != nil {
		return domain.RawHistory{}, fmt.Errorf("fetch history: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("disease.sh response",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("disease.sh API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
