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
	"strings"
	"time"
)

const paddleBaseURL = "https://api.paddle.com"

// PaddleClient syncs subscription state and charges saved payment methods
// for automatic recharges.
type PaddleClient struct {
	apiKey        string
	webhookSecret string
	priceID       string
	client        *http.Client
	baseURL       string
}

func NewPaddleClient(apiKey, webhookSecret, priceID string) *PaddleClient {
	return &PaddleClient{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		priceID:       priceID,
		client:        &http.Client{Timeout: 15 * time.Second},
		baseURL:       paddleBaseURL,
	}
}

// VerifySignature checks the Paddle-Signature header, formatted as
// "ts=<unix>;h1=<hex hmac>" where the MAC covers "<ts>:<body>".
func (c *PaddleClient) VerifySignature(body []byte, header string) bool {
	var ts, h1 string
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "h1":
			h1 = v
		}
	}
	if ts == "" || h1 == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(h1))
}

// SubscriptionEvent is the slice of subscription webhook payloads we store.
type SubscriptionEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		ID           string `json:"id"`
		CustomerID   string `json:"customer_id"`
		Status       string `json:"status"`
		NextBilledAt string `json:"next_billed_at"`
		CustomData   struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
		ScheduledChange *struct {
			Action string `json:"action"`
		} `json:"scheduled_change"`
	} `json:"data"`
}

func ParseSubscriptionEvent(body []byte) (*SubscriptionEvent, error) {
	var evt SubscriptionEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode paddle event: %w", err)
	}
	return &evt, nil
}

type chargeRequest struct {
	Items []struct {
		PriceID  string `json:"price_id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

type chargeResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// ChargeSubscription creates a one-time charge on an active subscription's
// saved payment method. Used by the auto-recharge outbox job.
func (c *PaddleClient) ChargeSubscription(ctx context.Context, subscriptionID string, quantity int) (string, error) {
	var reqBody chargeRequest
	reqBody.Items = append(reqBody.Items, struct {
		PriceID  string `json:"price_id"`
		Quantity int    `json:"quantity"`
	}{PriceID: c.priceID, Quantity: quantity})

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/subscriptions/%s/charge", c.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("paddle charge status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var cr chargeResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}
	return cr.Data.ID, nil
}
