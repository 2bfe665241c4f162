package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioClient sends SMS and places notification calls through the Twilio
// REST API with HTTP basic auth.
type TwilioClient struct {
	accountSID string
	authToken  string
	numbers    map[string]string // iso3 country -> sender number
	client     *http.Client
	baseURL    string
}

func NewTwilioClient(accountSID, authToken string, numbers map[string]string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		numbers:    numbers,
		client:     &http.Client{Timeout: 15 * time.Second},
		baseURL:    twilioBaseURL,
	}
}

// regionFallbacks routes countries without a dedicated sender number to the
// nearest configured one. Anything unlisted falls back to the USA number.
var regionFallbacks = map[string]string{
	"can": "usa",
	"mex": "usa",
	"nor": "fin",
	"swe": "fin",
	"dnk": "fin",
	"est": "fin",
	"irl": "gbr",
	"bel": "nld",
	"nzl": "aus",
}

// SenderNumber picks the outbound number for a lowercase iso3 country code:
// direct entry, then regional fallback, then the USA number.
func (c *TwilioClient) SenderNumber(country string) string {
	country = strings.ToLower(country)

	if num, ok := c.numbers[country]; ok {
		return num
	}
	if region, ok := regionFallbacks[country]; ok {
		if num, ok := c.numbers[region]; ok {
			return num
		}
	}
	return c.numbers["usa"]
}

type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// SendSMS sends a text and returns the message SID.
func (c *TwilioClient) SendSMS(ctx context.Context, from, to, body string) (string, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	return c.post(ctx, endpoint, form)
}

// Call places an outbound notification call that reads the message aloud.
func (c *TwilioClient) Call(ctx context.Context, from, to, message string) (string, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Twiml", fmt.Sprintf("<Response><Say>%s</Say></Response>", escapeXML(message)))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	return c.post(ctx, endpoint, form)
}

func (c *TwilioClient) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("twilio status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var tr twilioMessageResponse
	if err := json.Unmarshal(payload, &tr); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}
	return tr.SID, nil
}

// ValidateSignature checks the X-Twilio-Signature header on inbound
// webhooks: base64(HMAC-SHA1(url + sorted(key+value)...)) with the auth
// token, compared in constant time.
func (c *TwilioClient) ValidateSignature(fullURL string, params map[string]string, signature string) bool {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fullURL)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(c.authToken))
	mac.Write([]byte(sb.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
