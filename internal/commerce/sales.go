package commerce

import (
	"context"
	"fmt"
	"net/url"

	"github.com/firmsnap/liveshop/internal/money"
)

// Sale statuses as served by the API.
const (
	SaleStatusPendingDelivery = "pending_delivery"
	SaleStatusDelivered       = "delivered"
	SaleStatusRefunded        = "refunded"
	SaleStatusUnderDispute    = "under_dispute"
)

// Sale is a completed purchase from the seller's perspective, including
// the buyer's shipping address and tracking info once assigned.
type Sale struct {
	ID                    string      `json:"id"`
	ListingTitle          string      `json:"listing_title"`
	ListingPictureURL     string      `json:"listing_picture_url,omitempty"`
	Quantity              int         `json:"quantity"`
	FinalPriceForItems    money.Money `json:"final_price_for_items"`
	FinalPriceForShipping money.Money `json:"final_price_for_shipping"`
	Status                string      `json:"status"`
	BuyerAddrLine1        string      `json:"buyer_addr_line1"`
	BuyerAddrLine2        string      `json:"buyer_addr_line2,omitempty"`
	BuyerAddrCity         string      `json:"buyer_addr_city"`
	BuyerAddrState        string      `json:"buyer_addr_state,omitempty"`
	BuyerAddrPostalCode   string      `json:"buyer_addr_postal_code"`
	BuyerAddrCountry      string      `json:"buyer_addr_country"`
	TrackingNumber        string      `json:"tracking_number,omitempty"`
	Carrier               string      `json:"carrier,omitempty"`
}

// SalesAsSeller fetches the authenticated seller's sales records.
func (c *Client) SalesAsSeller(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	if err := c.get(ctx, "/sales/as_seller", &sales); err != nil {
		return nil, fmt.Errorf("get sales: %w", err)
	}
	return sales, nil
}

// UpdateTracking records carrier and tracking number on a sale.
func (c *Client) UpdateTracking(ctx context.Context, saleID, carrier, trackingNumber string) error {
	payload := map[string]string{
		"carrier":         carrier,
		"tracking_number": trackingNumber,
	}
	if err := c.put(ctx, "/sales/"+url.PathEscape(saleID)+"/tracking", payload, nil); err != nil {
		return fmt.Errorf("update tracking for sale %s: %w", saleID, err)
	}
	return nil
}
