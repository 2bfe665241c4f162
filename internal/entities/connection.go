package entities

import "time"

// Connection providers.
const (
	ProviderGoogleCalendar = "google_calendar"
	ProviderGmail          = "gmail"
)

// Connection is a linked third-party account holding OAuth tokens.
// Token columns are stored AES-256-GCM encrypted.
type Connection struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Connection) Expired() bool {
	return time.Now().After(c.ExpiresAt)
}
