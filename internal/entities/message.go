package entities

import "time"

// Message is a stored chat message from a bridged account. The
// fetch_messages tool and the waiting-check matcher read from this table.
type Message struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Platform  string    `json:"platform"` // "whatsapp", "sms"
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Outbound  bool      `json:"outbound"`
	Timestamp time.Time `json:"timestamp"`
}
