package commerce

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Show is a scheduled livestream.
type Show struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	ScheduledTime time.Time `json:"scheduled_time"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	SellerHandle  string    `json:"seller_handle,omitempty"`
}

// CreateShowParams carries the fields for scheduling a show.
type CreateShowParams struct {
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	ScheduledTime time.Time `json:"scheduled_time"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
}

// CreateShow schedules a show and returns its ID. The API expects the
// payload wrapped as {"show": {...}}.
func (c *Client) CreateShow(ctx context.Context, params CreateShowParams) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]CreateShowParams{"show": params}
	if err := c.post(ctx, "/shows", payload, &resp); err != nil {
		return "", fmt.Errorf("create show: %w", err)
	}
	return resp.ID, nil
}

// ListAllShows fetches every upcoming show across sellers.
func (c *Client) ListAllShows(ctx context.Context) ([]Show, error) {
	var shows []Show
	if err := c.get(ctx, "/shows/all", &shows); err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

// ListMyShows fetches the authenticated seller's shows.
func (c *Client) ListMyShows(ctx context.Context) ([]Show, error) {
	var shows []Show
	if err := c.get(ctx, "/shows", &shows); err != nil {
		return nil, fmt.Errorf("list my shows: %w", err)
	}
	return shows, nil
}

// CancelShow cancels a scheduled show.
func (c *Client) CancelShow(ctx context.Context, showID string) error {
	if err := c.delete(ctx, "/shows/cancel/"+url.PathEscape(showID)); err != nil {
		return fmt.Errorf("cancel show %s: %w", showID, err)
	}
	return nil
}
