package http

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
)

const twilioToken = "twilio-auth-token"

func newTwilioRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	deps := Deps{
		Twilio:    clients.NewTwilioClient("AC123", twilioToken, map[string]string{"usa": "+15550000001"}),
		PublicURL: "https://api.example.com",
		Logger:    zerolog.Nop(),
	}
	h := NewTwilioHandler(deps)

	r := gin.New()
	r.POST("/webhooks/twilio/sms", h.HandleInboundSMS)
	return r
}

func signTwilio(fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(twilioToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioWebhook_RejectsBadSignature(t *testing.T) {
	r := newTwilioRouter()

	form := url.Values{"From": {"+358401234567"}, "To": {"+15550000001"}, "Body": {"hi"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "bogus")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestTwilioWebhook_AcknowledgesEmptyBody(t *testing.T) {
	r := newTwilioRouter()

	// Delivery receipts carry no Body. They must be acknowledged with empty
	// TwiML and never reach message handling.
	form := url.Values{"From": {"+358401234567"}, "To": {"+15550000001"}, "Body": {""}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signTwilio("https://api.example.com/webhooks/twilio/sms", form))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Response>") {
		t.Errorf("body = %s, want TwiML", w.Body.String())
	}
}
