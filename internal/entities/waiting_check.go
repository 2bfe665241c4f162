package entities

import "time"

// WaitingCheck is a user-defined watch rule. Incoming messages and emails
// are judged against the phrase by the LLM; a match triggers a notification
// and removes the check.
type WaitingCheck struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Phrase      string    `json:"phrase"`
	Service     string    `json:"service"`    // "messaging" or "email"
	NotifyVia   string    `json:"notify_via"` // "sms", "call" or "telegram"
	LastScanned time.Time `json:"last_scanned"`
	CreatedAt   time.Time `json:"created_at"`
}
