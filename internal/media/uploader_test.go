package media

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/check"
)

func TestObjectKeyAndPublicURL(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))

	u, err := NewUploader(context.Background(), Config{
		Endpoint:        "https://r2.example.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "media",
		PublicBaseURL:   "https://pub.example.com/",
	}, clock)
	check.Nil(t, err)

	key := u.ObjectKey("handbag.jpg")
	check.Equal(t, "1700000000000-handbag.jpg", key)
	check.Equal(t, "https://pub.example.com/1700000000000-handbag.jpg", u.PublicURL(key))

	// Same filename at a later instant gets a distinct key.
	clock.Advance(time.Millisecond)
	check.NotEqual(t, key, u.ObjectKey("handbag.jpg"))
}
