package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/commerce"
)

// CommerceAPI is the slice of the commerce client catalog needs.
type CommerceAPI interface {
	CreateListing(ctx context.Context, params commerce.CreateListingParams) (string, error)
	DeleteListing(ctx context.Context, listingID string) error
	CreateShow(ctx context.Context, params commerce.CreateShowParams) (string, error)
	CancelShow(ctx context.Context, showID string) error
}

// ImageStore is the slice of the media uploader catalog needs.
type ImageStore interface {
	ObjectKey(filename string) string
	PublicURL(key string) string
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

// Image is an uploaded file attached to a listing or show.
type Image struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service creates listings and shows together with their images. The
// record is created first with the derived image URL, then the image is
// uploaded; a failed upload deletes the record again so the shop never
// shows a listing with a broken picture.
type Service struct {
	commerce CommerceAPI
	images   ImageStore
}

// NewService creates a catalog service.
func NewService(commerce CommerceAPI, images ImageStore) *Service {
	return &Service{commerce: commerce, images: images}
}

// CreateListingWithImage creates a listing record and uploads its image,
// returning the listing ID.
func (s *Service) CreateListingWithImage(ctx context.Context, params commerce.CreateListingParams, image Image) (string, error) {
	key := s.images.ObjectKey(image.Filename)
	params.PictureURL = s.images.PublicURL(key)

	listingID, err := s.commerce.CreateListing(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create listing record: %w", err)
	}

	if err := s.images.Put(ctx, key, image.ContentType, image.Body); err != nil {
		if deleteErr := s.commerce.DeleteListing(ctx, listingID); deleteErr != nil {
			log.Error().
				Err(deleteErr).
				Str("listing_id", listingID).
				Msg("failed to delete listing after image upload failure")
		}
		return "", fmt.Errorf("upload listing image: %w", err)
	}

	log.Info().Str("listing_id", listingID).Str("image_key", key).Msg("listing created")
	return listingID, nil
}

// CreateShowWithThumbnail schedules a show and uploads its thumbnail,
// returning the show ID.
func (s *Service) CreateShowWithThumbnail(ctx context.Context, params commerce.CreateShowParams, image Image) (string, error) {
	key := s.images.ObjectKey(image.Filename)
	params.ThumbnailURL = s.images.PublicURL(key)

	showID, err := s.commerce.CreateShow(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create show record: %w", err)
	}

	if err := s.images.Put(ctx, key, image.ContentType, image.Body); err != nil {
		if cancelErr := s.commerce.CancelShow(ctx, showID); cancelErr != nil {
			log.Error().
				Err(cancelErr).
				Str("show_id", showID).
				Msg("failed to cancel show after thumbnail upload failure")
		}
		return "", fmt.Errorf("upload show thumbnail: %w", err)
	}

	log.Info().Str("show_id", showID).Str("image_key", key).Msg("show created")
	return showID, nil
}
