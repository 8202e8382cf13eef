package main

import (
	"context"
	"fmt"
	"os"

	"github.com/firmsnap/liveshop/internal/catalog"
	"github.com/firmsnap/liveshop/internal/checkout"
	"github.com/firmsnap/liveshop/internal/commerce"
	"github.com/firmsnap/liveshop/internal/gateway"
	"github.com/firmsnap/liveshop/internal/media"
)

type Services struct {
	Gateway  *gateway.Service
	Commerce *commerce.Client
	Checkout *checkout.Service
	Catalog  *catalog.Service
	Media    *media.Uploader
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Commerce API client
	commerceClient, err := commerce.NewClient(config.Commerce.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create commerce client: %w", err)
	}

	// Realtime gateway
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = config.NATS.URL
	if config.NATS.StreamName != "" {
		gatewayConfig.JetStreamConfig.StreamName = config.NATS.StreamName
	}
	if config.NATS.ConsumerName != "" {
		gatewayConfig.JetStreamConfig.ConsumerName = config.NATS.ConsumerName
	}
	if config.NATS.SubjectFilter != "" {
		gatewayConfig.JetStreamConfig.SubjectFilter = config.NATS.SubjectFilter
	}
	if config.NATS.IntentSubjectPrefix != "" {
		gatewayConfig.IntentSubjectPrefix = config.NATS.IntentSubjectPrefix
	}

	gatewayService, err := gateway.NewService(gatewayConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	// Checkout flow
	paymentProvider := checkout.NewRESTProvider(
		config.Payments.BaseURL,
		os.Getenv("PAYMENTS_API_KEY"),
	)
	checkoutService := checkout.NewService(checkout.Config{
		Commerce:   commerceClient,
		Payments:   paymentProvider,
		SuccessURL: config.Payments.SuccessURL,
	})

	// Media uploads
	uploader, err := media.NewUploader(ctx, media.Config{
		Endpoint:        config.Media.Endpoint,
		AccessKeyID:     os.Getenv("CLOUDFLARE_R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("CLOUDFLARE_R2_SECRET_ACCESS_KEY"),
		Bucket:          config.Media.Bucket,
		PublicBaseURL:   config.Media.PublicBaseURL,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create media uploader: %w", err)
	}

	return &Services{
		Gateway:  gatewayService,
		Commerce: commerceClient,
		Checkout: checkoutService,
		Catalog:  catalog.NewService(commerceClient, uploader),
		Media:    uploader,
	}, nil
}
