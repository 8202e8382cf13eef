package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/commerce"
)

const maxImageSize = 10 << 20 // 10 MiB

// Handler exposes listing and show creation over HTTP. Requests are
// multipart: a JSON part with the record fields plus the image file.
type Handler struct {
	service *Service
}

// NewHandler creates a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleCreateListing handles POST /api/listings with parts "listing"
// (JSON) and "file" (image).
func (h *Handler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var params commerce.CreateListingParams
	if err := json.Unmarshal([]byte(r.FormValue("listing")), &params); err != nil {
		http.Error(w, "listing data is missing", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	listingID, err := h.service.CreateListingWithImage(r.Context(), params, Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create listing")
		http.Error(w, "failed to create listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"listing_id": listingID})
}

// HandleCreateShow handles POST /api/shows with parts "show" (JSON) and
// "thumbnail" (image).
func (h *Handler) HandleCreateShow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var params commerce.CreateShowParams
	if err := json.Unmarshal([]byte(r.FormValue("show")), &params); err != nil {
		http.Error(w, "show data is missing", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		http.Error(w, "thumbnail image is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	showID, err := h.service.CreateShowWithThumbnail(r.Context(), params, Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create show")
		http.Error(w, "failed to create show", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"show_id": showID})
}

// RegisterRoutes registers catalog HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/listings", h.HandleCreateListing)
	mux.HandleFunc("/api/shows", h.HandleCreateShow)
}
