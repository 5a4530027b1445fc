// Package geocode resolves coordinates to a city name via OpenStreetMap Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deliciousroute/delicious-route/internal/config"
)

// ErrNoCity is returned when the response carries no city-like field
var ErrNoCity = errors.New("no city in reverse geocoding result")

// Geocoder resolves a coordinate pair to a city name
type Geocoder interface {
	ReverseCity(ctx context.Context, lat, lng float64) (string, error)
}

// Client queries the Nominatim reverse endpoint
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a Nominatim client from the geocoding config
func NewClient(cfg config.GeocodingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// ReverseCity returns the first of city, town, village or municipality
func (c *Client) ReverseCity(ctx context.Context, lat, lng float64) (string, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("nominatim request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("nominatim bad status: %s", resp.Status)
	}

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("nominatim decode: %w", err)
	}

	for _, candidate := range []string{
		payload.Address.City,
		payload.Address.Town,
		payload.Address.Village,
		payload.Address.Municipality,
	} {
		if city := strings.TrimSpace(candidate); city != "" {
			return city, nil
		}
	}
	return "", ErrNoCity
}

// Disabled never resolves a city
type Disabled struct{}

// ReverseCity always reports ErrNoCity
func (Disabled) ReverseCity(context.Context, float64, float64) (string, error) {
	return "", ErrNoCity
}
