package geocode

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the geocoding gateway
type Config struct {
	BaseURL string
	APIKey  string
}

// Client proxies forward-geocoding lookups so the API key never
// reaches the browser
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new geocoding client
func NewClient(config Config) *Client {
	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Result represents a single geocoding match
type Result struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type forwardResponse struct {
	Data []struct {
		Label     string  `json:"label"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Forward resolves a free-text address into coordinate candidates
func (c *Client) Forward(address string) ([]Result, error) {
	if address == "" {
		return nil, fmt.Errorf("geocode: address is required")
	}

	params := url.Values{}
	params.Set("access_key", c.apiKey)
	params.Set("query", address)

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/forward?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var parsed forwardResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error.Message != "" {
			return nil, fmt.Errorf("geocode gateway returned %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("geocode gateway returned %d", resp.StatusCode)
	}

	results := make([]Result, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		results = append(results, Result{
			Label:     d.Label,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
		})
	}
	return results, nil
}
