package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"guestdesk/internal/domain/entity"
	"guestdesk/pkg/errors"
)

// Client is the read-only HTTP client for the external booking service. It
// is used only to enrich conversation responses; lookup failures never gate
// conversation logic.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) GetBooking(ctx context.Context, bookingID string) (*entity.Booking, error) {
	endpoint := fmt.Sprintf("%s/bookings/%s", c.baseURL, url.PathEscape(bookingID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Internal("Failed to build booking request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.StorageUnavailable("Booking service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NotFound("Booking", nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Internal(fmt.Sprintf("Booking service returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var booking entity.Booking
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		return nil, errors.Internal("Failed to decode booking response", err)
	}

	return &booking, nil
}
