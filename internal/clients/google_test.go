package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGoogleAuthURL(t *testing.T) {
	c := NewGoogleClient("client-1", "secret", "https://api.example.com/callback")

	raw := c.AuthURL("signed-state")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL not parseable: %v", err)
	}

	q := u.Query()
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") != "signed-state" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("access_type") != "offline" {
		t.Errorf("access_type = %q", q.Get("access_type"))
	}
	if !strings.Contains(q.Get("scope"), "gmail.readonly") {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("code") != "auth-code" || r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("client-1", "secret", "https://api.example.com/callback")
	c.tokenURL = srv.URL

	tr, err := c.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error: %v", err)
	}
	if tr.AccessToken != "at-1" || tr.RefreshToken != "rt-1" || tr.ExpiresIn != 3600 {
		t.Errorf("token = %+v", tr)
	}
}

func TestRefreshToken_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("client-1", "secret", "https://api.example.com/callback")
	c.tokenURL = srv.URL

	if _, err := c.RefreshToken(context.Background(), "stale"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestUpcomingEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"items":[
			{"summary":"Dentist","start":{"dateTime":"2026-09-01T10:00:00Z"},"location":"Main St"},
			{"summary":"All day","start":{"date":"2026-09-02"}}
		]}`))
	}))
	defer srv.Close()

	c := NewGoogleClient("client-1", "secret", "https://api.example.com/callback")
	c.calendarURL = srv.URL

	events, err := c.UpcomingEvents(context.Background(), "at-1", 7)
	if err != nil {
		t.Fatalf("UpcomingEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Summary != "Dentist" || events[0].Start.DateTime == "" {
		t.Errorf("event = %+v", events[0])
	}
	if events[1].Start.Date != "2026-09-02" {
		t.Errorf("all day event = %+v", events[1])
	}
}

func TestRecentEmails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me/messages":
			w.Write([]byte(`{"messages":[{"id":"m1"},{"id":"m2"}]}`))
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/"):
			id := strings.TrimPrefix(r.URL.Path, "/users/me/messages/")
			w.Write([]byte(`{"snippet":"snippet for ` + id + `","payload":{"headers":[
				{"name":"From","value":"alice@example.com"},
				{"name":"Subject","value":"Hello ` + id + `"}
			]}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewGoogleClient("client-1", "secret", "https://api.example.com/callback")
	c.gmailURL = srv.URL

	msgs, err := c.RecentEmails(context.Background(), "at-1", 2)
	if err != nil {
		t.Fatalf("RecentEmails() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].From != "alice@example.com" || msgs[0].Subject != "Hello m1" {
		t.Errorf("message = %+v", msgs[0])
	}
	if msgs[1].Snippet != "snippet for m2" {
		t.Errorf("snippet = %q", msgs[1].Snippet)
	}
}
