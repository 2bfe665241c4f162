package entities

import "time"

type Subscription struct {
	ID                   int        `json:"id"`
	UserID               int        `json:"user_id"`
	PaddleSubscriptionID string     `json:"paddle_subscription_id"`
	PaddleCustomerID     string     `json:"paddle_customer_id"`
	Status               string     `json:"status"` // active, past_due, canceled, paused
	Stage                string     `json:"stage"`  // trial, regular
	NextBillDate         *time.Time `json:"next_bill_date,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (s *Subscription) Active() bool {
	return s.Status == "active" || s.Status == "past_due"
}
