package commerce

import (
	"context"
	"fmt"
	"net/url"
)

// Reservation statuses. A pending reservation holds inventory until
// payment completes or the hold expires server-side.
const (
	ReservationStatusPending   = "pending"
	ReservationStatusCompleted = "completed"
	ReservationStatusReleased  = "released"
)

// Reservation is an inventory hold created at checkout time.
type Reservation struct {
	ReservationID string `json:"reservation_id"`
	ReferenceID   string `json:"reference_id"`
	Status        string `json:"status,omitempty"`
}

// CreateReservation holds quantity units of a listing. The reference ID
// ties the eventual payment back to the hold.
func (c *Client) CreateReservation(ctx context.Context, listingID string, quantity int) (Reservation, error) {
	payload := map[string]interface{}{
		"listing_id": listingID,
		"quantity":   quantity,
	}
	var reservation Reservation
	if err := c.post(ctx, "/reservations", payload, &reservation); err != nil {
		return Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	return reservation, nil
}

// GetReservationStatus fetches the current status of a reservation.
func (c *Client) GetReservationStatus(ctx context.Context, reservationID string) (string, error) {
	var resp struct {
		Reservation struct {
			Status string `json:"status"`
		} `json:"reservation"`
	}
	if err := c.get(ctx, "/reservations/"+url.PathEscape(reservationID), &resp); err != nil {
		return "", fmt.Errorf("get reservation %s: %w", reservationID, err)
	}
	return resp.Reservation.Status, nil
}

// ReleaseReservation returns held inventory to the shop.
func (c *Client) ReleaseReservation(ctx context.Context, reservationID string) error {
	if err := c.delete(ctx, "/reservations/"+url.PathEscape(reservationID)+"/release"); err != nil {
		return fmt.Errorf("release reservation %s: %w", reservationID, err)
	}
	return nil
}
