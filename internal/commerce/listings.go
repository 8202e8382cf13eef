package commerce

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/firmsnap/liveshop/internal/money"
)

// ListingType distinguishes the three kinds of shop listings.
type ListingType string

const (
	ListingTypeAuction  ListingType = "auction"
	ListingTypeBIN      ListingType = "bin"
	ListingTypeGiveaway ListingType = "giveaway"
)

// Listing is a shop listing as returned by the API. Giveaways carry no
// price; auction prices reflect the current or starting bid.
type Listing struct {
	ID                    string       `json:"id"`
	Title                 string       `json:"title"`
	Description           string       `json:"description"`
	Type                  ListingType  `json:"type"`
	Quantity              int          `json:"quantity,omitempty"`
	Category              string       `json:"category,omitempty"`
	Price                 *money.Money `json:"price,omitempty"`
	PictureURL            string       `json:"picture_url,omitempty"`
	SellerCountry         string       `json:"seller_country"`
	ShippingDomesticPrice money.Money  `json:"shipping_domestic_price"`
	ShippingEUPrice       money.Money  `json:"shipping_eu_price"`
}

// CreateListingParams carries the fields for a new listing. Amounts are
// in cents. Auction and BIN fields apply only to their respective types.
type CreateListingParams struct {
	Title                 string      `json:"title"`
	Description           string      `json:"description,omitempty"`
	Type                  ListingType `json:"type"`
	Quantity              int         `json:"quantity,omitempty"`
	Category              string      `json:"category"`
	ShippingDomesticPrice int64       `json:"shipping_domestic_price"`
	ShippingEUPrice       int64       `json:"shipping_eu_price"`

	// Auction-specific fields
	AuctionStartingBid int64 `json:"auction_starting_bid,omitempty"`
	AuctionDuration    int64 `json:"auction_duration,omitempty"`
	AuctionSuddenDeath bool  `json:"auction_sudden_death,omitempty"`

	// BIN-specific fields
	BINPrice        int64 `json:"bin_price,omitempty"`
	BINAcceptOffers bool  `json:"bin_accept_offers,omitempty"`

	PictureURL string `json:"picture_url,omitempty"`
}

// ShopListings groups a seller's listings the way the API serves them.
type ShopListings struct {
	BuyItNow  []Listing `json:"buy_it_now"`
	Auctions  []Listing `json:"auctions"`
	Giveaways []Listing `json:"giveaways"`
}

// All returns the grouped listings as one slice.
func (s ShopListings) All() []Listing {
	all := make([]Listing, 0, len(s.BuyItNow)+len(s.Auctions)+len(s.Giveaways))
	all = append(all, s.BuyItNow...)
	all = append(all, s.Auctions...)
	all = append(all, s.Giveaways...)
	return all
}

// CreateListing creates a listing and returns its ID. The API expects the
// payload wrapped as {"listing": {...}}.
func (c *Client) CreateListing(ctx context.Context, params CreateListingParams) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]CreateListingParams{"listing": params}
	if err := c.post(ctx, "/listings", payload, &resp); err != nil {
		return "", fmt.Errorf("create listing: %w", err)
	}
	return resp.ID, nil
}

// GetListing fetches a listing by ID, serving repeat lookups from the
// cache. Checkout hits this on every buy click.
func (c *Client) GetListing(ctx context.Context, listingID string) (Listing, error) {
	if cached, ok := c.listingCache.Get(listingID); ok {
		return cached.(Listing), nil
	}

	var listing Listing
	if err := c.get(ctx, "/listings/"+url.PathEscape(listingID), &listing); err != nil {
		return Listing{}, fmt.Errorf("get listing %s: %w", listingID, err)
	}

	c.listingCache.Add(listingID, listing)
	return listing, nil
}

// GetShopListings fetches a seller's listings grouped by type.
func (c *Client) GetShopListings(ctx context.Context, sellerHandle string) (ShopListings, error) {
	var shop ShopListings
	if err := c.get(ctx, "/listings/shop/"+url.PathEscape(sellerHandle), &shop); err != nil {
		return ShopListings{}, fmt.Errorf("get shop listings for %s: %w", sellerHandle, err)
	}
	return shop, nil
}

// DeleteListing removes a listing, e.g. to compensate a failed image
// upload after the record was already created.
func (c *Client) DeleteListing(ctx context.Context, listingID string) error {
	if err := c.delete(ctx, "/listings/"+url.PathEscape(listingID)); err != nil {
		return fmt.Errorf("delete listing %s: %w", listingID, err)
	}
	c.listingCache.Remove(listingID)
	return nil
}

// titleSource adapts listings for fuzzy matching on the title.
type titleSource []Listing

func (s titleSource) String(i int) string {
	return strings.ToLower(s[i].Title)
}

func (s titleSource) Len() int {
	return len(s)
}

// descriptionSource adapts listings for fuzzy matching on the
// description.
type descriptionSource []Listing

func (s descriptionSource) String(i int) string {
	return strings.ToLower(s[i].Description)
}

func (s descriptionSource) Len() int {
	return len(s)
}

// SearchListings ranks listings against a free-text query. Title matches
// rank ahead of description-only matches so searching "vintage" surfaces
// the vintage handbag before a scarf whose description mentions a
// vintage pattern. An empty query returns the input unchanged.
func SearchListings(listings []Listing, query string) []Listing {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return listings
	}

	results := make([]Listing, 0, len(listings))
	seen := make(map[int]bool, len(listings))
	for _, m := range fuzzy.FindFrom(query, titleSource(listings)) {
		results = append(results, listings[m.Index])
		seen[m.Index] = true
	}
	for _, m := range fuzzy.FindFrom(query, descriptionSource(listings)) {
		if seen[m.Index] {
			continue
		}
		results = append(results, listings[m.Index])
	}
	return results
}
