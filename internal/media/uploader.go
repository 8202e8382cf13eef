package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config holds the S3-compatible storage settings. Cloudflare R2 is the
// production target; any S3 endpoint works.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// PublicBaseURL is where uploaded objects are served from,
	// e.g. "https://pub-xxxx.r2.dev".
	PublicBaseURL string
}

// Uploader stores listing and show images.
type Uploader struct {
	client *s3.Client
	bucket string
	public string
	clock  clockwork.Clock
}

// NewUploader creates an uploader against an S3-compatible endpoint. A
// nil clock uses the real clock.
func NewUploader(ctx context.Context, cfg Config, clock clockwork.Clock) (*Uploader, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})

	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		public: strings.TrimRight(cfg.PublicBaseURL, "/"),
		clock:  clock,
	}, nil
}

// Upload stores an image under a timestamp-unique key and returns its
// public URL. The URL is written to the listing/show record before the
// upload runs, so keys must be derived the same way on both sides.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key := u.ObjectKey(filename)
	if err := u.Put(ctx, key, contentType, body); err != nil {
		return "", err
	}

	url := u.PublicURL(key)
	log.Info().Str("key", key).Str("url", url).Msg("image uploaded")
	return url, nil
}

// Put stores an object under an explicit key.
func (u *Uploader) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Delete removes an object, used when the record behind it could not be
// created.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds the timestamp-unique key for a filename.
func (u *Uploader) ObjectKey(filename string) string {
	return fmt.Sprintf("%d-%s", u.clock.Now().UnixMilli(), filename)
}

// PublicURL returns the serving URL for an object key.
func (u *Uploader) PublicURL(key string) string {
	return u.public + "/" + key
}
