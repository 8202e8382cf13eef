package checkout

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handler exposes the checkout flow over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a checkout HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCreateCheckout handles POST /api/checkout. On success the buyer
// is redirected (303) to the hosted payment page.
func (h *Handler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	listingID := r.FormValue("listing_id")
	buyerCountry := r.FormValue("buyer_country")
	quantity, err := strconv.Atoi(r.FormValue("quantity"))
	if listingID == "" || buyerCountry == "" || err != nil || quantity < 1 {
		http.Error(w, "listing_id, quantity and buyer_country are required", http.StatusBadRequest)
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), listingID, quantity, buyerCountry)
	if err != nil {
		log.Error().Err(err).Str("listing_id", listingID).Msg("checkout failed")
		http.Error(w, "Inventory unavailable", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}

// RegisterRoutes registers checkout HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/checkout", h.HandleCreateCheckout)
}
