package clients

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func paddleSign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + ":"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaddleVerifySignature(t *testing.T) {
	c := NewPaddleClient("key", "hook-secret", "price-1")
	body := []byte(`{"event_type":"subscription.activated"}`)
	ts := "1718000000"
	good := fmt.Sprintf("ts=%s;h1=%s", ts, paddleSign("hook-secret", ts, body))

	if !c.VerifySignature(body, good) {
		t.Fatal("expected valid signature to pass")
	}
	if c.VerifySignature(body, fmt.Sprintf("ts=%s;h1=%s", ts, paddleSign("wrong", ts, body))) {
		t.Fatal("expected wrong secret to fail")
	}
	if c.VerifySignature([]byte(`{}`), good) {
		t.Fatal("expected tampered body to fail")
	}
	// Changing ts invalidates the MAC because it is part of the payload.
	if c.VerifySignature(body, fmt.Sprintf("ts=1718999999;h1=%s", paddleSign("hook-secret", ts, body))) {
		t.Fatal("expected mismatched ts to fail")
	}
	if c.VerifySignature(body, "garbage") {
		t.Fatal("expected malformed header to fail")
	}
	if c.VerifySignature(body, "ts=123") {
		t.Fatal("expected missing h1 to fail")
	}
}

func TestParseSubscriptionEvent(t *testing.T) {
	body := []byte(`{
		"event_type": "subscription.activated",
		"data": {
			"id": "sub_123",
			"customer_id": "ctm_456",
			"status": "active",
			"next_billed_at": "2026-10-01T00:00:00Z",
			"custom_data": {"user_id": "42"},
			"scheduled_change": {"action": "cancel"}
		}
	}`)

	evt, err := ParseSubscriptionEvent(body)
	if err != nil {
		t.Fatalf("ParseSubscriptionEvent() error: %v", err)
	}
	if evt.EventType != "subscription.activated" {
		t.Errorf("event_type = %q", evt.EventType)
	}
	if evt.Data.ID != "sub_123" || evt.Data.CustomerID != "ctm_456" {
		t.Errorf("data = %+v", evt.Data)
	}
	if evt.Data.CustomData.UserID != "42" {
		t.Errorf("user_id = %q", evt.Data.CustomData.UserID)
	}
	if evt.Data.ScheduledChange == nil || evt.Data.ScheduledChange.Action != "cancel" {
		t.Errorf("scheduled_change = %+v", evt.Data.ScheduledChange)
	}
}
