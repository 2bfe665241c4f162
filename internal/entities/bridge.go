package entities

import "time"

// Bridge connection states.
const (
	BridgeConnecting = "connecting"
	BridgeConnected  = "connected"
	BridgeError      = "error"
)

// Bridge records a linked third-party messaging account for a user.
// Currently the only kind is "whatsapp".
type Bridge struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	RemoteJID string    `json:"remote_jid"` // linked account identifier, empty until login
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
