package entities

import (
	"strings"
	"time"
)

// Subscription tiers. Tier 2 is the flat-rate plan: usage is billed against
// the pay-as-you-go balance only, never the monthly quota.
const (
	TierNone = ""
	Tier1    = "tier1"
	Tier2    = "tier2"
)

type User struct {
	ID              int       `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	PhoneNumber     string    `json:"phone_number"`
	Credits         float64   `json:"credits"`      // pay-as-you-go IQ balance
	CreditsLeft     float64   `json:"credits_left"` // monthly quota remaining
	SubTier         string    `json:"sub_tier"`
	Discount        bool      `json:"discount"`
	IsAdmin         bool      `json:"is_admin"`
	PreferredNumber string    `json:"preferred_number"` // sender number the user texts
	ChargeWhenUnder bool      `json:"charge_when_under"`
	ChargeThreshold float64   `json:"charge_threshold"`
	ChargeBackTo    float64   `json:"charge_back_to"`
	NotifyVia       string    `json:"notify_via"` // "sms", "call" or "telegram"
	TelegramChatID  int64     `json:"telegram_chat_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// USNumber reports whether the user's phone number is in the +1 region,
// which selects the cheaper message rate.
func (u *User) USNumber() bool {
	return strings.HasPrefix(u.PhoneNumber, "+1")
}

// SplitQuotaFirst computes how a cost divides between the monthly quota and
// the pay-as-you-go balance. The quota absorbs as much as it can; the rest
// spills to the balance. Deductions apply this split under a row lock.
func SplitQuotaFirst(creditsLeft, cost float64) (fromQuota, fromBalance float64) {
	if creditsLeft >= cost {
		return cost, 0
	}
	if creditsLeft <= 0 {
		return 0, cost
	}
	return creditsLeft, cost - creditsLeft
}
