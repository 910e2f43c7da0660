// Package calendar talks to the scheduling provider that creates meeting
// events for booked appointments. Calls are best effort at every call site:
// a failure here must never block fulfillment.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/creatorhq/marketplace/config"
)

type Client struct {
	url    string
	token  string
	client *http.Client
}

func New(cfg config.Calendar) *Client {
	return &Client{
		url:    cfg.URL,
		token:  cfg.APIToken,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type Event struct {
	Title         string    `json:"title"`
	StartDateTime time.Time `json:"startDateTime"`
	DurationMins  int       `json:"durationMinutes"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
}

type Created struct {
	EventID  string `json:"eventId"`
	MeetLink string `json:"meetLink"`
}

// CreateEvent books an event on the seller's calendar and returns the
// meeting link the provider minted for it.
func (c *Client) CreateEvent(ctx context.Context, sellerID string, evt Event) (Created, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Created{}, fmt.Errorf("marshaling event: %w", err)
	}

	url := fmt.Sprintf("%s/sellers/%s/events", c.url, sellerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Created{}, fmt.Errorf("building event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Created{}, fmt.Errorf("calling calendar provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Created{}, fmt.Errorf("calendar provider replied with status %s", resp.Status)
	}

	var created Created
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Created{}, fmt.Errorf("decoding calendar response: %w", err)
	}
	return created, nil
}
