package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/firmsnap/liveshop/internal/money"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestClient_BearerTokenSent(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(User{ID: "u1", Username: "alice"})
	}))
	client.SetToken("tok-123")

	user, err := client.Me(context.Background())
	check.Nil(t, err)
	check.Equal(t, "Bearer tok-123", gotAuth)
	check.Equal(t, "alice", user.Username)
}

func TestClient_LoginInstallsToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/log_in":
			var body struct {
				User struct {
					Email    string `json:"email"`
					Password string `json:"password"`
				} `json:"user"`
			}
			check.Nil(t, json.NewDecoder(r.Body).Decode(&body))
			check.Equal(t, "alice@example.com", body.User.Email)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok-456",
				"user":  User{ID: "u1", Username: "alice", IsSeller: true},
			})
		case "/me":
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(User{ID: "u1"})
		}
	}))

	token, user, err := client.Login(context.Background(), "alice@example.com", "secret")
	check.Nil(t, err)
	check.Equal(t, "tok-456", token)
	check.True(t, user.IsSeller)

	_, err = client.Me(context.Background())
	check.Nil(t, err)
	check.Equal(t, "Bearer tok-456", gotAuth)
}

func TestClient_CreateListingWrapsPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, http.MethodPost, r.Method)
		check.Equal(t, "/listings", r.URL.Path)

		var body map[string]CreateListingParams
		check.Nil(t, json.NewDecoder(r.Body).Decode(&body))
		listing, ok := body["listing"]
		check.True(t, ok)
		check.Equal(t, ListingTypeAuction, listing.Type)
		check.Equal(t, int64(500), listing.AuctionStartingBid)

		json.NewEncoder(w).Encode(map[string]string{"id": "listing-1"})
	}))

	id, err := client.CreateListing(context.Background(), CreateListingParams{
		Title:                 "Vintage Designer Handbag",
		Type:                  ListingTypeAuction,
		Category:              "fashion",
		ShippingDomesticPrice: 500,
		ShippingEUPrice:       1200,
		AuctionStartingBid:    500,
		AuctionDuration:       165000,
	})
	check.Nil(t, err)
	check.Equal(t, "listing-1", id)
}

func TestClient_GetListingUsesCache(t *testing.T) {
	hits := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		price := money.New(2500, "EUR")
		json.NewEncoder(w).Encode(Listing{
			ID:    "listing-1",
			Title: "Vintage Designer Handbag",
			Type:  ListingTypeBIN,
			Price: &price,
		})
	}))

	first, err := client.GetListing(context.Background(), "listing-1")
	check.Nil(t, err)
	second, err := client.GetListing(context.Background(), "listing-1")
	check.Nil(t, err)

	check.Equal(t, 1, hits)
	check.Equal(t, first, second)
	check.Equal(t, int64(2500), second.Price.Amount)
}

func TestClient_DeleteListingInvalidatesCache(t *testing.T) {
	hits := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		hits++
		json.NewEncoder(w).Encode(Listing{ID: "listing-1"})
	}))

	_, err := client.GetListing(context.Background(), "listing-1")
	check.Nil(t, err)
	check.Nil(t, client.DeleteListing(context.Background(), "listing-1"))
	_, err = client.GetListing(context.Background(), "listing-1")
	check.Nil(t, err)
	check.Equal(t, 2, hits)
}

func TestClient_ReservationFlow(t *testing.T) {
	released := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/reservations":
			var body map[string]interface{}
			check.Nil(t, json.NewDecoder(r.Body).Decode(&body))
			check.Equal(t, "listing-1", body["listing_id"])
			json.NewEncoder(w).Encode(Reservation{
				ReservationID: "res-1",
				ReferenceID:   "ref-1",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/reservations/res-1":
			json.NewEncoder(w).Encode(map[string]map[string]string{
				"reservation": {"status": ReservationStatusPending},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/reservations/res-1/release":
			released = true
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))

	reservation, err := client.CreateReservation(context.Background(), "listing-1", 1)
	check.Nil(t, err)
	check.Equal(t, "res-1", reservation.ReservationID)
	check.Equal(t, "ref-1", reservation.ReferenceID)

	status, err := client.GetReservationStatus(context.Background(), "res-1")
	check.Nil(t, err)
	check.Equal(t, ReservationStatusPending, status)

	check.Nil(t, client.ReleaseReservation(context.Background(), "res-1"))
	check.True(t, released)
}

func TestClient_ErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "inventory unavailable", http.StatusBadRequest)
	}))

	_, err := client.CreateReservation(context.Background(), "listing-1", 99)
	check.Error(t, err)
}

func TestSearchListings(t *testing.T) {
	listings := []Listing{
		{ID: "1", Title: "Vintage Designer Handbag", Description: "Leather, gold hardware"},
		{ID: "2", Title: "Retro Sneakers", Description: "Size 42"},
		{ID: "3", Title: "Handmade Scarf", Description: "Wool, vintage pattern"},
	}

	// The title match outranks the description-only match.
	results := SearchListings(listings, "vintage")
	check.Equal(t, 2, len(results))
	check.Equal(t, "1", results[0].ID)
	check.Equal(t, "3", results[1].ID)

	// Empty query returns everything unchanged.
	check.Equal(t, 3, len(SearchListings(listings, "  ")))

	// No match returns empty.
	check.Equal(t, 0, len(SearchListings(listings, "xyzzy")))
}
