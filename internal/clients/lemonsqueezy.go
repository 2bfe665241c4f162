package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const lemonSqueezyBaseURL = "https://api.lemonsqueezy.com/v1"

// LemonSqueezyClient creates one-off IQ top-up checkouts and verifies
// webhook signatures.
type LemonSqueezyClient struct {
	apiKey        string
	storeID       string
	variantID     string
	webhookSecret string
	client        *http.Client
	baseURL       string
}

func NewLemonSqueezyClient(apiKey, storeID, variantID, webhookSecret string) *LemonSqueezyClient {
	return &LemonSqueezyClient{
		apiKey:        apiKey,
		storeID:       storeID,
		variantID:     variantID,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
		baseURL:       lemonSqueezyBaseURL,
	}
}

// VerifySignature checks the X-Signature header: hex(HMAC-SHA256(body)),
// constant-time compare. Must pass before any payload field is trusted.
func (c *LemonSqueezyClient) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the narrow slice of the webhook payload we act on.
type WebhookEvent struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID   string `json:"user_id"`
			IQAmount string `json:"iq_amount"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Total  int64  `json:"total"`
		} `json:"attributes"`
	} `json:"data"`
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &evt, nil
}

type checkoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
		} `json:"attributes"`
		Relationships struct {
			Store   relationship `json:"store"`
			Variant relationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type relationship struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout returns a hosted checkout URL carrying the user id and IQ
// amount as custom metadata, echoed back in the order_created webhook.
func (c *LemonSqueezyClient) CreateCheckout(ctx context.Context, userID int, iqAmount float64) (string, error) {
	var reqBody checkoutRequest
	reqBody.Data.Type = "checkouts"
	reqBody.Data.Attributes.CheckoutData.Custom = map[string]string{
		"user_id":   fmt.Sprintf("%d", userID),
		"iq_amount": fmt.Sprintf("%g", iqAmount),
	}
	reqBody.Data.Relationships.Store.Data.Type = "stores"
	reqBody.Data.Relationships.Store.Data.ID = c.storeID
	reqBody.Data.Relationships.Variant.Data.Type = "variants"
	reqBody.Data.Relationships.Variant.Data.ID = c.variantID

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkouts", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("lemonsqueezy status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var cr checkoutResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if cr.Data.Attributes.URL == "" {
		return "", fmt.Errorf("missing checkout url in response")
	}
	return cr.Data.Attributes.URL, nil
}
