package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testNumbers() map[string]string {
	return map[string]string{
		"usa": "+15550000001",
		"fin": "+358400000001",
		"gbr": "+447700000001",
	}
}

func TestSenderNumber(t *testing.T) {
	c := NewTwilioClient("AC123", "token", testNumbers())

	tests := []struct {
		country string
		want    string
	}{
		{"usa", "+15550000001"},  // direct hit
		{"fin", "+358400000001"}, // direct hit
		{"FIN", "+358400000001"}, // case insensitive
		{"can", "+15550000001"},  // regional fallback to usa
		{"swe", "+358400000001"}, // regional fallback to fin
		{"irl", "+447700000001"}, // regional fallback to gbr
		{"nzl", "+15550000001"},  // fallback region aus not configured, usa default
		{"jpn", "+15550000001"},  // unknown country, usa default
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			if got := c.SenderNumber(tt.country); got != tt.want {
				t.Errorf("SenderNumber(%q) = %q, want %q", tt.country, got, tt.want)
			}
		})
	}
}

// twilioSign mirrors Twilio's documented scheme: URL plus key+value pairs
// in sorted key order, HMAC-SHA1, base64.
func twilioSign(authToken, fullURL string, params map[string]string) string {
	payload := fullURL
	for _, k := range []string{"Body", "From", "To"} {
		if v, ok := params[k]; ok {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	c := NewTwilioClient("AC123", "secret-token", testNumbers())

	fullURL := "https://example.com/webhooks/twilio/sms"
	params := map[string]string{
		"From": "+358401234567",
		"To":   "+358400000001",
		"Body": "hello",
	}
	good := twilioSign("secret-token", fullURL, params)

	if !c.ValidateSignature(fullURL, params, good) {
		t.Fatal("expected valid signature to pass")
	}
	if c.ValidateSignature(fullURL, params, "bogus") {
		t.Fatal("expected bogus signature to fail")
	}

	tampered := map[string]string{
		"From": "+358401234567",
		"To":   "+358400000001",
		"Body": "hello!",
	}
	if c.ValidateSignature(fullURL, tampered, good) {
		t.Fatal("expected tampered params to fail")
	}
	if c.ValidateSignature("https://evil.example.com/webhooks/twilio/sms", params, good) {
		t.Fatal("expected different URL to fail")
	}
}

func TestSendSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "AC123" || pass != "token" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("From") != "+15550000001" || r.PostForm.Get("To") != "+358401234567" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "token", testNumbers())
	c.baseURL = srv.URL

	sid, err := c.SendSMS(context.Background(), "+15550000001", "+358401234567", "hi")
	if err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}
	if sid != "SM123" {
		t.Errorf("sid = %q, want SM123", sid)
	}
}

func TestSendSMS_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"authenticate"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "bad", testNumbers())
	c.baseURL = srv.URL

	if _, err := c.SendSMS(context.Background(), "+1", "+2", "hi"); err == nil {
		t.Fatal("expected error on 401 response")
	}
}

func TestEscapeXML(t *testing.T) {
	got := escapeXML(`5 < 6 & "quotes"`)
	want := "5 &lt; 6 &amp; &quot;quotes&quot;"
	if got != want {
		t.Errorf("escapeXML = %q, want %q", got, want)
	}
}
