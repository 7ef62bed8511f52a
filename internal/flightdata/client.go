// Package flightdata looks up arrival times for a flight from an external
// flight-status API. Lookups are best effort: listings are created without
// arrival times when the provider is unavailable.
package flightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Flight holds the arrival times reported by the provider.
type Flight struct {
	Carrier          string     `json:"carrier"`
	Number           string     `json:"number"`
	ScheduledArrival *time.Time `json:"scheduledArrival"`
	EstimatedArrival *time.Time `json:"estimatedArrival"`
}

// Lookup resolves a flight's arrival times.
type Lookup interface {
	Lookup(ctx context.Context, carrier, number string) (*Flight, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Lookup(ctx context.Context, carrier, number string) (*Flight, error) {
	u := fmt.Sprintf("%s/flights?carrier=%s&number=%s",
		c.baseURL, url.QueryEscape(carrier), url.QueryEscape(number))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build flight request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flight lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flight lookup returned status %d", resp.StatusCode)
	}

	var f Flight
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode flight response: %w", err)
	}
	return &f, nil
}
