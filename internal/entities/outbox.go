package entities

import "time"

// Outbox job kinds.
const (
	JobAutoRecharge = "auto_recharge"
	JobNotify       = "notify"
)

// OutboxJob is a durable side effect. Handlers that must not fail the
// primary request (auto recharge, notifications) enqueue a job instead of
// spawning a goroutine; the dispatcher retries with backoff up to a bounded
// attempt count.
type OutboxJob struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Payload       []byte    `json:"payload"`
	Attempts      int       `json:"attempts"`
	ProviderRef   string    `json:"provider_ref"` // external transaction id, set before crediting
	NextAttemptAt time.Time `json:"next_attempt_at"`
	LastError     string    `json:"last_error"`
	Done          bool      `json:"done"`
	CreatedAt     time.Time `json:"created_at"`
}
