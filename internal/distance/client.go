// Package distance scores how far apart two traveler destinations are, so
// airport search results can be ordered nearest-first. Scoring is advisory:
// a failed lookup yields Unknown and never blocks a response.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Unknown is returned when no distance could be computed; listings with an
// unknown distance sort after scored ones.
const Unknown = float64(-1)

// Scorer computes the distance in meters between two opaque location
// identifiers.
type Scorer interface {
	Score(ctx context.Context, from, to string) (float64, error)
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

func (c *Client) Score(ctx context.Context, from, to string) (float64, error) {
	u := fmt.Sprintf("%s/distance?from=%s&to=%s",
		c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Unknown, fmt.Errorf("failed to build distance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Unknown, fmt.Errorf("distance lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unknown, fmt.Errorf("distance lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Meters float64 `json:"meters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Unknown, fmt.Errorf("failed to decode distance response: %w", err)
	}
	return body.Meters, nil
}
