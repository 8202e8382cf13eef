package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RESTProvider implements PaymentProvider against the payments service,
// which fronts the hosted-checkout product (Stripe in production).
type RESTProvider struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

// NewRESTProvider creates a provider for the payments service at baseURL.
func NewRESTProvider(baseURL, apiKey string) *RESTProvider {
	return &RESTProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey: apiKey,
	}
}

// CreateSession creates a hosted payment session and returns its ID and
// redirect URL.
func (p *RESTProvider) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	body := map[string]interface{}{
		"line_item": map[string]interface{}{
			"name":        params.ListingTitle,
			"unit_amount": params.UnitAmount.Amount,
			"currency":    params.UnitAmount.Currency,
			"quantity":    params.Quantity,
		},
		"shipping_option": map[string]interface{}{
			"display_name":      params.Shipping.DisplayName,
			"amount":            params.Shipping.Cost.Amount,
			"currency":          params.Shipping.Cost.Currency,
			"allowed_countries": params.Shipping.AllowedCountries,
		},
		"client_reference_id": params.ReferenceID,
		"transfer_group":      params.ReferenceID,
		"success_url":         params.SuccessURL,
	}

	var session Session
	if err := p.do(ctx, http.MethodPost, "/sessions", body, &session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ExpireSession closes a hosted payment session.
func (p *RESTProvider) ExpireSession(ctx context.Context, sessionID string) error {
	endpoint := "/sessions/" + url.PathEscape(sessionID) + "/expire"
	if err := p.do(ctx, http.MethodPost, endpoint, nil, nil); err != nil {
		return fmt.Errorf("expire session %s: %w", sessionID, err)
	}
	return nil
}

func (p *RESTProvider) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("payments API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}
