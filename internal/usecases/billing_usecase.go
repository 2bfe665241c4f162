package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/config"
	"github.com/lightfriend/lightfriend/internal/entities"
)

// ErrInsufficientCredits gates message processing before any model call.
var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditStore is the balance mutation surface billing depends on. The user
// repository implements it with row-locked statements.
type CreditStore interface {
	DeductBalance(ctx context.Context, userID int, cost float64) (credits float64, err error)
	DeductQuotaFirst(ctx context.Context, userID int, cost float64) (credits, creditsLeft float64, err error)
	AddCredits(ctx context.Context, userID int, amount float64) error
}

// UsageLog records completed usage for history and billing audits.
type UsageLog interface {
	Record(ctx context.Context, rec *entities.UsageRecord) error
}

// JobQueue enqueues durable outbox jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// BillingUsecase owns credit accounting: rate selection, the quota-first
// deduction and the auto-recharge trigger. Deductions run under row locks in
// the store, so concurrent messages never double-spend.
type BillingUsecase struct {
	store  CreditStore
	usage  UsageLog
	outbox JobQueue
	rates  config.RateConfig
	logger zerolog.Logger
}

func NewBillingUsecase(store CreditStore, usage UsageLog,
	outbox JobQueue, rates config.RateConfig, logger zerolog.Logger) *BillingUsecase {
	return &BillingUsecase{
		store:  store,
		usage:  usage,
		outbox: outbox,
		rates:  rates,
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

// MessageCost returns the per-message rate for a user. Numbers in the +1
// region are cheaper to serve; discounted and tier-1 users always get the
// cheap rate regardless of region.
func (uc *BillingUsecase) MessageCost(user *entities.User) float64 {
	if user.Discount || user.SubTier == entities.Tier1 {
		return uc.rates.MessageCostUS
	}
	if user.USNumber() {
		return uc.rates.MessageCostUS
	}
	return uc.rates.MessageCost
}

// VoiceCost converts call duration to credits.
func (uc *BillingUsecase) VoiceCost(seconds int) float64 {
	return float64(seconds) * uc.rates.VoiceSecondCost
}

// CheckCredits reports whether the user can afford the given cost. Tier-2
// users spend from the pay-as-you-go balance only; everyone else may combine
// the monthly quota with the balance.
func (uc *BillingUsecase) CheckCredits(user *entities.User, cost float64) error {
	if user.SubTier == entities.Tier2 {
		if user.Credits < cost {
			return ErrInsufficientCredits
		}
		return nil
	}
	if user.CreditsLeft+user.Credits < cost {
		return ErrInsufficientCredits
	}
	return nil
}

// Deduct charges the user for one unit of usage, records it and enqueues an
// auto-recharge job when the balance crosses the user's threshold.
func (uc *BillingUsecase) Deduct(ctx context.Context, user *entities.User, cost float64, kind, reference string, success bool) error {
	var credits float64
	var err error

	if user.SubTier == entities.Tier2 {
		credits, err = uc.store.DeductBalance(ctx, user.ID, cost)
	} else {
		credits, _, err = uc.store.DeductQuotaFirst(ctx, user.ID, cost)
	}
	if err != nil {
		return fmt.Errorf("deduct credits: %w", err)
	}

	rec := &entities.UsageRecord{
		UserID:      user.ID,
		Kind:        kind,
		CreditsUsed: cost,
		Success:     success,
		Reference:   reference,
	}
	if err := uc.usage.Record(ctx, rec); err != nil {
		uc.logger.Error().Err(err).Int("user_id", user.ID).Msg("failed to record usage")
	}

	if user.ChargeWhenUnder && credits < user.ChargeThreshold {
		if err := uc.enqueueRecharge(ctx, user, credits); err != nil {
			uc.logger.Error().Err(err).Int("user_id", user.ID).Msg("failed to enqueue recharge")
		}
	}
	return nil
}

// AutoRechargePayload is the outbox job body for a threshold recharge.
type AutoRechargePayload struct {
	UserID int     `json:"user_id"`
	Amount float64 `json:"amount"`
}

func (uc *BillingUsecase) enqueueRecharge(ctx context.Context, user *entities.User, credits float64) error {
	amount := user.ChargeBackTo - credits
	if amount <= 0 {
		return nil
	}
	uc.logger.Info().
		Int("user_id", user.ID).
		Float64("balance", credits).
		Float64("amount", amount).
		Msg("balance under threshold, scheduling recharge")
	return uc.outbox.Enqueue(ctx, entities.JobAutoRecharge, AutoRechargePayload{
		UserID: user.ID,
		Amount: amount,
	})
}

// AddPurchasedCredits credits a completed one-off purchase to the balance.
func (uc *BillingUsecase) AddPurchasedCredits(ctx context.Context, userID int, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("invalid credit amount %.2f", amount)
	}
	if err := uc.store.AddCredits(ctx, userID, amount); err != nil {
		return err
	}
	uc.logger.Info().Int("user_id", userID).Float64("amount", amount).Msg("credits added")
	return nil
}
