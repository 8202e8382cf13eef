package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/check"

	"github.com/firmsnap/liveshop/internal/commerce"
	"github.com/firmsnap/liveshop/internal/money"
)

type fakeCommerce struct {
	mu sync.Mutex

	listing    commerce.Listing
	listingErr error

	reservation   commerce.Reservation
	reserveErr    error
	status        string
	statusChecked chan struct{}
	released      []string
}

func (f *fakeCommerce) GetListing(ctx context.Context, listingID string) (commerce.Listing, error) {
	return f.listing, f.listingErr
}

func (f *fakeCommerce) CreateReservation(ctx context.Context, listingID string, quantity int) (commerce.Reservation, error) {
	return f.reservation, f.reserveErr
}

func (f *fakeCommerce) GetReservationStatus(ctx context.Context, reservationID string) (string, error) {
	f.mu.Lock()
	status := f.status
	f.mu.Unlock()
	if f.statusChecked != nil {
		f.statusChecked <- struct{}{}
	}
	return status, nil
}

func (f *fakeCommerce) ReleaseReservation(ctx context.Context, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, reservationID)
	return nil
}

func (f *fakeCommerce) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type fakePayments struct {
	mu         sync.Mutex
	session    Session
	createErr  error
	lastParams SessionParams
	expired    chan string
}

func (f *fakePayments) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastParams = params
	if f.createErr != nil {
		return Session{}, f.createErr
	}
	return f.session, nil
}

func (f *fakePayments) ExpireSession(ctx context.Context, sessionID string) error {
	if f.expired != nil {
		f.expired <- sessionID
	}
	return nil
}

func (f *fakePayments) params() SessionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastParams
}

func domesticListing() commerce.Listing {
	price := money.New(2500, "EUR")
	return commerce.Listing{
		ID:                    "listing-1",
		Title:                 "Vintage Designer Handbag",
		Type:                  commerce.ListingTypeBIN,
		Price:                 &price,
		SellerCountry:         "Germany",
		ShippingDomesticPrice: money.New(500, "EUR"),
		ShippingEUPrice:       money.New(1200, "EUR"),
	}
}

func TestCreateCheckout_DomesticShipping(t *testing.T) {
	fc := &fakeCommerce{
		listing:     domesticListing(),
		reservation: commerce.Reservation{ReservationID: "res-1", ReferenceID: "ref-1"},
		status:      commerce.ReservationStatusCompleted,
	}
	fp := &fakePayments{session: Session{ID: "sess-1", URL: "https://pay.example/sess-1"}}

	svc := NewService(Config{
		Commerce:   fc,
		Payments:   fp,
		Clock:      clockwork.NewFakeClock(),
		SuccessURL: "https://firmsnap.com/checkout/success",
	})

	url, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "Germany")
	check.Nil(t, err)
	check.Equal(t, "https://pay.example/sess-1", url)

	params := fp.params()
	check.Equal(t, "ref-1", params.ReferenceID)
	check.Equal(t, int64(2500), params.UnitAmount.Amount)
	check.Equal(t, int64(500), params.Shipping.Cost.Amount)
	check.Equal(t, []string{"DE"}, params.Shipping.AllowedCountries)
	check.Equal(t, 0, len(fc.releasedIDs()))
}

func TestCreateCheckout_EUShipping(t *testing.T) {
	fc := &fakeCommerce{
		listing:     domesticListing(),
		reservation: commerce.Reservation{ReservationID: "res-1", ReferenceID: "ref-1"},
	}
	fp := &fakePayments{session: Session{ID: "sess-1", URL: "https://pay.example/sess-1"}}

	svc := NewService(Config{
		Commerce: fc,
		Payments: fp,
		Clock:    clockwork.NewFakeClock(),
	})

	_, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "France")
	check.Nil(t, err)

	params := fp.params()
	check.Equal(t, "EU Shipping", params.Shipping.DisplayName)
	check.Equal(t, int64(1200), params.Shipping.Cost.Amount)
	check.Equal(t, 27, len(params.Shipping.AllowedCountries))
}

func TestCreateCheckout_SessionFailureReleasesReservation(t *testing.T) {
	fc := &fakeCommerce{
		listing:     domesticListing(),
		reservation: commerce.Reservation{ReservationID: "res-1", ReferenceID: "ref-1"},
	}
	fp := &fakePayments{createErr: errors.New("provider down")}

	svc := NewService(Config{
		Commerce: fc,
		Payments: fp,
		Clock:    clockwork.NewFakeClock(),
	})

	_, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "Germany")
	check.Error(t, err)
	check.Equal(t, []string{"res-1"}, fc.releasedIDs())
}

func TestCreateCheckout_GiveawayHasNoPrice(t *testing.T) {
	listing := domesticListing()
	listing.Price = nil
	fc := &fakeCommerce{
		listing:     listing,
		reservation: commerce.Reservation{ReservationID: "res-1"},
	}

	svc := NewService(Config{
		Commerce: fc,
		Payments: &fakePayments{},
		Clock:    clockwork.NewFakeClock(),
	})

	_, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "Germany")
	check.True(t, errors.Is(err, ErrNoPrice))
	check.Equal(t, []string{"res-1"}, fc.releasedIDs())
}

func TestWatchdog_ExpiresPendingSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fc := &fakeCommerce{
		listing:       domesticListing(),
		reservation:   commerce.Reservation{ReservationID: "res-1", ReferenceID: "ref-1"},
		status:        commerce.ReservationStatusPending,
		statusChecked: make(chan struct{}, 1),
	}
	fp := &fakePayments{
		session: Session{ID: "sess-1", URL: "https://pay.example/sess-1"},
		expired: make(chan string, 1),
	}

	svc := NewService(Config{
		Commerce:      fc,
		Payments:      fp,
		Clock:         clock,
		PendingWindow: 5 * time.Minute,
	})

	_, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "Germany")
	check.Nil(t, err)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	<-fc.statusChecked
	check.Equal(t, "sess-1", <-fp.expired)
}

func TestWatchdog_CompletedReservationLeavesSessionAlone(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fc := &fakeCommerce{
		listing:       domesticListing(),
		reservation:   commerce.Reservation{ReservationID: "res-1", ReferenceID: "ref-1"},
		status:        commerce.ReservationStatusCompleted,
		statusChecked: make(chan struct{}, 1),
	}
	fp := &fakePayments{
		session: Session{ID: "sess-1", URL: "https://pay.example/sess-1"},
		expired: make(chan string, 1),
	}

	svc := NewService(Config{
		Commerce:      fc,
		Payments:      fp,
		Clock:         clock,
		PendingWindow: 5 * time.Minute,
	})

	_, err := svc.CreateCheckout(context.Background(), "listing-1", 1, "Germany")
	check.Nil(t, err)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)
	<-fc.statusChecked

	select {
	case id := <-fp.expired:
		t.Fatalf("session %s expired for completed reservation", id)
	default:
	}
}

func TestCountryToISOCode(t *testing.T) {
	code, err := CountryToISOCode("Czech Republic")
	check.Nil(t, err)
	check.Equal(t, "CZ", code)

	_, err = CountryToISOCode("Atlantis")
	check.Error(t, err)
}
