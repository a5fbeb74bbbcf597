// Package nominatim provides the external geocoder fallback backed by a
// Nominatim-compatible search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietwatch/report-triage/internal/domain"
)

// Client queries a Nominatim /search endpoint for free-text Vietnamese locations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Nominatim client against the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Geocode looks up a free-text query, restricted to Vietnam. found is false
// when the service answered with no results.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodingResult, bool, error) {
	params := url.Values{
		"q":            {query},
		"format":       {"jsonv2"},
		"limit":        {"1"},
		"countrycodes": {"vn"},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", "report-triage/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.GeocodingResult{}, false, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		return domain.GeocodingResult{}, false, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}

	result := domain.GeocodingResult{
		Lat:         lat,
		Lon:         lon,
		Accuracy:    domain.AccuracyExternal,
		Confidence:  confidenceFrom(p.Importance),
		MatchedName: p.Name,
		Source:      domain.GeoSourceExternal,
	}
	if result.MatchedName == "" {
		result.MatchedName = p.DisplayName
	}
	return result, true, nil
}

// confidenceFrom maps Nominatim's open-ended importance to a [0,1] confidence.
func confidenceFrom(importance float64) float64 {
	switch {
	case importance <= 0:
		return 0.5
	case importance > 1:
		return 1
	default:
		return importance
	}
}

// Nominatim /search response entry. Coordinates arrive as strings.
type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}
