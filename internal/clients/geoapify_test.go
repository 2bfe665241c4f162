package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDirectionsRequiresMode(t *testing.T) {
	c := NewGeoapifyClient("key")

	if _, err := c.Directions(context.Background(), "Helsinki", "Espoo", ""); err == nil {
		t.Fatal("expected error for empty travel mode")
	}
}

func TestDirections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/geocode/search"):
			place := r.URL.Query().Get("text")
			w.Write([]byte(`{"features":[{"properties":{"lat":60.17,"lon":24.94,"formatted":"` + place + `"}}]}`))
		case strings.HasPrefix(r.URL.Path, "/v1/routing"):
			if got := r.URL.Query().Get("mode"); got != "bicycle" {
				t.Errorf("mode = %q, want bicycle", got)
			}
			w.Write([]byte(`{"features":[{"properties":{
				"distance": 4200,
				"time": 900,
				"legs":[{"steps":[{"instruction":{"text":"Head north"}},{"instruction":{"text":"Turn right"}}]}]
			}}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewGeoapifyClient("key")
	c.baseURL = srv.URL

	out, err := c.Directions(context.Background(), "Helsinki", "Espoo", "bicycle")
	if err != nil {
		t.Fatalf("Directions() error: %v", err)
	}
	if !strings.Contains(out, "4.2 km") || !strings.Contains(out, "15 min") {
		t.Errorf("summary missing distance or duration: %q", out)
	}
	if !strings.Contains(out, "Head north") {
		t.Errorf("steps missing: %q", out)
	}
}
