package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleCalendarURL = "https://www.googleapis.com/calendar/v3"
	googleGmailURL    = "https://gmail.googleapis.com/gmail/v1"
)

// GoogleClient handles the OAuth code exchange plus the two read surfaces
// the agent needs: calendar events and recent Gmail messages.
type GoogleClient struct {
	clientID     string
	clientSecret string
	redirectURL  string
	client       *http.Client

	tokenURL    string
	calendarURL string
	gmailURL    string
}

func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		client:       &http.Client{Timeout: 15 * time.Second},
		tokenURL:     googleTokenURL,
		calendarURL:  googleCalendarURL,
		gmailURL:     googleGmailURL,
	}
}

// AuthURL builds the consent redirect. state carries the signed user id.
func (c *GoogleClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join([]string{
		"https://www.googleapis.com/auth/calendar.readonly",
		"https://www.googleapis.com/auth/gmail.readonly",
	}, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *GoogleClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURL)
	form.Set("grant_type", "authorization_code")
	return c.token(ctx, form)
}

func (c *GoogleClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	return c.token(ctx, form)
}

func (c *GoogleClient) token(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google token status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	var tr TokenResponse
	if err := json.Unmarshal(payload, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &tr, nil
}

type CalendarEvent struct {
	Summary string `json:"summary"`
	Start   struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	Location string `json:"location"`
}

type eventsResponse struct {
	Items []CalendarEvent `json:"items"`
}

// UpcomingEvents lists primary-calendar events between now and now+days.
func (c *GoogleClient) UpcomingEvents(ctx context.Context, accessToken string, days int) ([]CalendarEvent, error) {
	now := time.Now().UTC()
	q := url.Values{}
	q.Set("timeMin", now.Format(time.RFC3339))
	q.Set("timeMax", now.AddDate(0, 0, days).Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "10")

	var er eventsResponse
	endpoint := c.calendarURL + "/calendars/primary/events?" + q.Encode()
	if err := c.get(ctx, endpoint, accessToken, &er); err != nil {
		return nil, err
	}
	return er.Items, nil
}

type GmailMessage struct {
	From    string
	Subject string
	Snippet string
}

type gmailListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type gmailMessageResponse struct {
	Snippet string `json:"snippet"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload"`
}

// RecentEmails fetches the newest inbox messages (headers + snippet only).
func (c *GoogleClient) RecentEmails(ctx context.Context, accessToken string, limit int) ([]GmailMessage, error) {
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	var lr gmailListResponse
	endpoint := fmt.Sprintf("%s/users/me/messages?maxResults=%d&labelIds=INBOX", c.gmailURL, limit)
	if err := c.get(ctx, endpoint, accessToken, &lr); err != nil {
		return nil, err
	}

	out := make([]GmailMessage, 0, len(lr.Messages))
	for _, m := range lr.Messages {
		var mr gmailMessageResponse
		endpoint := fmt.Sprintf("%s/users/me/messages/%s?format=metadata&metadataHeaders=From&metadataHeaders=Subject", c.gmailURL, m.ID)
		if err := c.get(ctx, endpoint, accessToken, &mr); err != nil {
			return nil, err
		}

		msg := GmailMessage{Snippet: mr.Snippet}
		for _, h := range mr.Payload.Headers {
			switch h.Name {
			case "From":
				msg.From = h.Value
			case "Subject":
				msg.Subject = h.Value
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

func (c *GoogleClient) get(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google api status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode google response: %w", err)
	}
	return nil
}
