package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/firmsnap/liveshop/internal/commerce"
)

type fakeCommerce struct {
	createdListing commerce.CreateListingParams
	deletedListing string
	createdShow    commerce.CreateShowParams
	cancelledShow  string
	createErr      error
}

func (f *fakeCommerce) CreateListing(ctx context.Context, params commerce.CreateListingParams) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdListing = params
	return "listing-1", nil
}

func (f *fakeCommerce) DeleteListing(ctx context.Context, listingID string) error {
	f.deletedListing = listingID
	return nil
}

func (f *fakeCommerce) CreateShow(ctx context.Context, params commerce.CreateShowParams) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdShow = params
	return "show-1", nil
}

func (f *fakeCommerce) CancelShow(ctx context.Context, showID string) error {
	f.cancelledShow = showID
	return nil
}

type fakeImages struct {
	putKeys []string
	putErr  error
}

func (f *fakeImages) ObjectKey(filename string) string {
	return "1700000000000-" + filename
}

func (f *fakeImages) PublicURL(key string) string {
	return "https://pub.example.com/" + key
}

func (f *fakeImages) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return nil
}

func listingImage() Image {
	return Image{
		Filename:    "handbag.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	}
}

func TestCreateListingWithImage(t *testing.T) {
	fc := &fakeCommerce{}
	fi := &fakeImages{}
	svc := NewService(fc, fi)

	id, err := svc.CreateListingWithImage(context.Background(), commerce.CreateListingParams{
		Title: "Vintage Designer Handbag",
		Type:  commerce.ListingTypeAuction,
	}, listingImage())
	check.Nil(t, err)
	check.Equal(t, "listing-1", id)

	// The record carries the URL derived from the upload key.
	check.Equal(t, "https://pub.example.com/1700000000000-handbag.jpg", fc.createdListing.PictureURL)
	check.Equal(t, []string{"1700000000000-handbag.jpg"}, fi.putKeys)
	check.Equal(t, "", fc.deletedListing)
}

func TestCreateListingWithImage_UploadFailureDeletesRecord(t *testing.T) {
	fc := &fakeCommerce{}
	fi := &fakeImages{putErr: errors.New("storage down")}
	svc := NewService(fc, fi)

	_, err := svc.CreateListingWithImage(context.Background(), commerce.CreateListingParams{
		Title: "Vintage Designer Handbag",
	}, listingImage())
	check.Error(t, err)
	check.Equal(t, "listing-1", fc.deletedListing)
}

func TestCreateListingWithImage_RecordFailureSkipsUpload(t *testing.T) {
	fc := &fakeCommerce{createErr: errors.New("API down")}
	fi := &fakeImages{}
	svc := NewService(fc, fi)

	_, err := svc.CreateListingWithImage(context.Background(), commerce.CreateListingParams{}, listingImage())
	check.Error(t, err)
	check.Equal(t, 0, len(fi.putKeys))
}

func TestCreateShowWithThumbnail_UploadFailureCancelsShow(t *testing.T) {
	fc := &fakeCommerce{}
	fi := &fakeImages{putErr: errors.New("storage down")}
	svc := NewService(fc, fi)

	_, err := svc.CreateShowWithThumbnail(context.Background(), commerce.CreateShowParams{
		Title: "Friday Night Drop",
	}, listingImage())
	check.Error(t, err)
	check.Equal(t, "show-1", fc.cancelledShow)
}
