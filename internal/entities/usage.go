package entities

import "time"

// Usage kinds.
const (
	UsageMessage = "message"
	UsageVoice   = "voice"
)

type UsageRecord struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Kind        string    `json:"kind"`
	CreditsUsed float64   `json:"credits_used"`
	Success     bool      `json:"success"`
	Reference   string    `json:"reference"` // message SID or voice conversation id
	CreatedAt   time.Time `json:"created_at"`
}
