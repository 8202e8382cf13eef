package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/commerce"
	"github.com/firmsnap/liveshop/internal/money"
)

// DefaultPendingWindow is how long a reservation may stay pending before
// the hosted payment session is expired. The server-side inventory hold
// expires on its own; this only closes the payment page.
const DefaultPendingWindow = 5 * time.Minute

// ErrNoPrice means the listing cannot be bought (e.g. a giveaway).
var ErrNoPrice = errors.New("checkout: listing has no price")

// SessionParams describe the hosted payment session to create.
type SessionParams struct {
	ListingTitle string
	UnitAmount   money.Money
	Quantity     int
	Shipping     ShippingOption

	// ReferenceID ties the payment back to the inventory reservation.
	ReferenceID string
	SuccessURL  string
}

// Session is a created hosted payment session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentProvider creates and expires hosted payment sessions.
type PaymentProvider interface {
	CreateSession(ctx context.Context, params SessionParams) (Session, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// CommerceAPI is the slice of the commerce client checkout needs.
type CommerceAPI interface {
	GetListing(ctx context.Context, listingID string) (commerce.Listing, error)
	CreateReservation(ctx context.Context, listingID string, quantity int) (commerce.Reservation, error)
	GetReservationStatus(ctx context.Context, reservationID string) (string, error)
	ReleaseReservation(ctx context.Context, reservationID string) error
}

// Service runs the checkout flow: reserve inventory, create a hosted
// payment session, and watchdog sessions whose reservation never
// completes.
type Service struct {
	commerce      CommerceAPI
	payments      PaymentProvider
	clock         clockwork.Clock
	successURL    string
	pendingWindow time.Duration
}

// Config wires a checkout Service. A nil Clock uses the real clock; a
// zero PendingWindow uses DefaultPendingWindow.
type Config struct {
	Commerce      CommerceAPI
	Payments      PaymentProvider
	Clock         clockwork.Clock
	SuccessURL    string
	PendingWindow time.Duration
}

// NewService creates a checkout service.
func NewService(cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	window := cfg.PendingWindow
	if window == 0 {
		window = DefaultPendingWindow
	}
	return &Service{
		commerce:      cfg.Commerce,
		payments:      cfg.Payments,
		clock:         clock,
		successURL:    cfg.SuccessURL,
		pendingWindow: window,
	}
}

// CreateCheckout reserves inventory and creates a hosted payment session,
// returning the redirect URL for a 303 response. The reservation is
// released if the session cannot be created.
func (s *Service) CreateCheckout(ctx context.Context, listingID string, quantity int, buyerCountry string) (string, error) {
	reservation, err := s.commerce.CreateReservation(ctx, listingID, quantity)
	if err != nil {
		return "", fmt.Errorf("reserve inventory: %w", err)
	}

	url, err := s.createSession(ctx, listingID, quantity, buyerCountry, reservation)
	if err != nil {
		if releaseErr := s.commerce.ReleaseReservation(ctx, reservation.ReservationID); releaseErr != nil {
			log.Error().
				Err(releaseErr).
				Str("reservation_id", reservation.ReservationID).
				Msg("failed to release reservation after checkout failure")
		}
		return "", err
	}
	return url, nil
}

func (s *Service) createSession(ctx context.Context, listingID string, quantity int, buyerCountry string, reservation commerce.Reservation) (string, error) {
	listing, err := s.commerce.GetListing(ctx, listingID)
	if err != nil {
		return "", fmt.Errorf("get listing: %w", err)
	}
	if listing.Price == nil {
		return "", ErrNoPrice
	}

	shipping, err := BuildShippingOption(buyerCountry, listing)
	if err != nil {
		return "", fmt.Errorf("build shipping option: %w", err)
	}

	session, err := s.payments.CreateSession(ctx, SessionParams{
		ListingTitle: listing.Title,
		UnitAmount:   *listing.Price,
		Quantity:     quantity,
		Shipping:     shipping,
		ReferenceID:  reservation.ReferenceID,
		SuccessURL:   s.successURL,
	})
	if err != nil {
		return "", fmt.Errorf("create payment session: %w", err)
	}

	log.Info().
		Str("listing_id", listingID).
		Str("reservation_id", reservation.ReservationID).
		Str("session_id", session.ID).
		Msg("checkout session created")

	go s.watchSession(reservation.ReservationID, session.ID)

	return session.URL, nil
}

// watchSession expires the payment session if the reservation is still
// pending after the window. A completed or released reservation means the
// session resolved itself.
func (s *Service) watchSession(reservationID, sessionID string) {
	<-s.clock.After(s.pendingWindow)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := s.commerce.GetReservationStatus(ctx, reservationID)
	if err != nil {
		log.Error().
			Err(err).
			Str("reservation_id", reservationID).
			Msg("failed to check reservation status")
		return
	}
	if status != commerce.ReservationStatusPending {
		return
	}

	if err := s.payments.ExpireSession(ctx, sessionID); err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("failed to expire payment session")
		return
	}

	log.Info().
		Str("reservation_id", reservationID).
		Str("session_id", sessionID).
		Msg("expired stale payment session")
}
