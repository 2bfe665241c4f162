package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const geoapifyBaseURL = "https://api.geoapify.com"

// GeoapifyClient resolves place names and fetches walking/driving routes
// for the directions tool.
type GeoapifyClient struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewGeoapifyClient(apiKey string) *GeoapifyClient {
	return &GeoapifyClient{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: geoapifyBaseURL,
	}
}

type geocodeResponse struct {
	Features []struct {
		Properties struct {
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
			Formatted string  `json:"formatted"`
		} `json:"properties"`
	} `json:"features"`
}

type routeResponse struct {
	Features []struct {
		Properties struct {
			Distance float64 `json:"distance"` // meters
			Time     float64 `json:"time"`     // seconds
			Legs     []struct {
				Steps []struct {
					Instruction struct {
						Text string `json:"text"`
					} `json:"instruction"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"properties"`
	} `json:"features"`
}

// Directions geocodes both endpoints and returns a compact text route
// suitable for an SMS reply. The caller chooses the mode; the directions
// tool defaults it to "drive".
func (c *GeoapifyClient) Directions(ctx context.Context, from, to, mode string) (string, error) {
	if mode == "" {
		return "", fmt.Errorf("travel mode is required")
	}

	fromLat, fromLon, fromName, err := c.geocode(ctx, from)
	if err != nil {
		return "", fmt.Errorf("geocode %q: %w", from, err)
	}
	toLat, toLon, toName, err := c.geocode(ctx, to)
	if err != nil {
		return "", fmt.Errorf("geocode %q: %w", to, err)
	}

	q := url.Values{}
	q.Set("waypoints", fmt.Sprintf("%f,%f|%f,%f", fromLat, fromLon, toLat, toLon))
	q.Set("mode", mode)
	q.Set("apiKey", c.apiKey)

	var rr routeResponse
	if err := c.get(ctx, "/v1/routing?"+q.Encode(), &rr); err != nil {
		return "", err
	}
	if len(rr.Features) == 0 {
		return "", fmt.Errorf("no route found between %q and %q", from, to)
	}

	props := rr.Features[0].Properties
	out := fmt.Sprintf("%s -> %s: %.1f km, about %d min.", fromName, toName, props.Distance/1000, int(props.Time/60))
	for _, leg := range props.Legs {
		for i, step := range leg.Steps {
			if i >= 8 { // keep it SMS-sized
				out += " (...)"
				break
			}
			if step.Instruction.Text != "" {
				out += " " + step.Instruction.Text + "."
			}
		}
	}
	return out, nil
}

func (c *GeoapifyClient) geocode(ctx context.Context, place string) (lat, lon float64, name string, err error) {
	q := url.Values{}
	q.Set("text", place)
	q.Set("limit", "1")
	q.Set("apiKey", c.apiKey)

	var gr geocodeResponse
	if err := c.get(ctx, "/v1/geocode/search?"+q.Encode(), &gr); err != nil {
		return 0, 0, "", err
	}
	if len(gr.Features) == 0 {
		return 0, 0, "", fmt.Errorf("place not found")
	}

	p := gr.Features[0].Properties
	return p.Lat, p.Lon, p.Formatted, nil
}

func (c *GeoapifyClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("geoapify status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode geoapify response: %w", err)
	}
	return nil
}
