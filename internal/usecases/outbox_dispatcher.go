package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/repository"
)

const (
	outboxMaxAttempts = 5
	outboxBatchSize   = 20
	outboxLease       = 2 * time.Minute
	backoffBase       = 30 * time.Second
	backoffCap        = 30 * time.Minute
)

// OutboxStore is the claim-and-settle surface of the job queue.
type OutboxStore interface {
	Due(ctx context.Context, limit int, lease time.Duration) ([]entities.OutboxJob, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempt int, reason string, nextAt time.Time, exhausted bool) error
	SetProviderRef(ctx context.Context, id int64, ref string) error
}

// SubscriptionSource looks up a user's subscription for recharges.
type SubscriptionSource interface {
	GetByUser(ctx context.Context, userID int) (*entities.Subscription, error)
}

// SubscriptionCharger bills an active subscription's saved payment method
// and returns the provider transaction id.
type SubscriptionCharger interface {
	ChargeSubscription(ctx context.Context, subscriptionID string, quantity int) (string, error)
}

// OutboxDispatcher drains the durable job queue. Side effects that must not
// fail their originating request (recharges, notifications) land here and
// are retried with exponential backoff until done or exhausted.
type OutboxDispatcher struct {
	outbox   OutboxStore
	userRepo *repository.UserRepository
	subRepo  SubscriptionSource
	billing  *BillingUsecase
	paddle   SubscriptionCharger
	twilio   *clients.TwilioClient
	telegram *clients.TelegramNotifier
	logger   zerolog.Logger
}

func NewOutboxDispatcher(outbox OutboxStore, userRepo *repository.UserRepository,
	subRepo SubscriptionSource, billing *BillingUsecase, paddle SubscriptionCharger,
	twilio *clients.TwilioClient, telegram *clients.TelegramNotifier, logger zerolog.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		outbox:   outbox,
		userRepo: userRepo,
		subRepo:  subRepo,
		billing:  billing,
		paddle:   paddle,
		twilio:   twilio,
		telegram: telegram,
		logger:   logger.With().Str("component", "outbox").Logger(),
	}
}

// Tick claims and runs one batch of due jobs.
func (d *OutboxDispatcher) Tick(ctx context.Context) error {
	jobs, err := d.outbox.Due(ctx, outboxBatchSize, outboxLease)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := d.handle(ctx, job); err != nil {
			d.fail(ctx, job, err)
			continue
		}
		if err := d.outbox.MarkDone(ctx, job.ID); err != nil {
			d.logger.Error().Err(err).Int64("job_id", job.ID).Msg("mark done")
		}
	}
	return nil
}

func (d *OutboxDispatcher) handle(ctx context.Context, job entities.OutboxJob) error {
	switch job.Kind {
	case entities.JobAutoRecharge:
		return d.recharge(ctx, job)
	case entities.JobNotify:
		return d.notify(ctx, job.Payload)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (d *OutboxDispatcher) fail(ctx context.Context, job entities.OutboxJob, jobErr error) {
	attempt := job.Attempts + 1
	exhausted := attempt >= outboxMaxAttempts
	nextAt := time.Now().Add(Backoff(attempt))

	if exhausted {
		d.logger.Error().Err(jobErr).
			Int64("job_id", job.ID).
			Str("kind", job.Kind).
			Int("attempts", attempt).
			Msg("job exhausted retries")
	} else {
		d.logger.Warn().Err(jobErr).
			Int64("job_id", job.ID).
			Str("kind", job.Kind).
			Int("attempt", attempt).
			Time("next_attempt", nextAt).
			Msg("job failed, will retry")
	}

	if err := d.outbox.MarkFailed(ctx, job.ID, attempt, jobErr.Error(), nextAt, exhausted); err != nil {
		d.logger.Error().Err(err).Int64("job_id", job.ID).Msg("mark failed")
	}
}

// Backoff returns the retry delay after the given attempt number.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt-1)))
	if delay > backoffCap || delay < 0 {
		return backoffCap
	}
	return delay
}

func (d *OutboxDispatcher) recharge(ctx context.Context, job entities.OutboxJob) error {
	var p AutoRechargePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode recharge payload: %w", err)
	}

	quantity := int(math.Ceil(p.Amount))
	if quantity <= 0 {
		return fmt.Errorf("invalid recharge amount %.2f", p.Amount)
	}

	// A provider ref on the job means a previous attempt already charged the
	// card and failed later; retry only the crediting side.
	txnID := job.ProviderRef
	if txnID == "" {
		sub, err := d.subRepo.GetByUser(ctx, p.UserID)
		if err != nil {
			return err
		}
		if sub == nil || !sub.Active() {
			return fmt.Errorf("user %d has no active subscription to charge", p.UserID)
		}

		txnID, err = d.paddle.ChargeSubscription(ctx, sub.PaddleSubscriptionID, quantity)
		if err != nil {
			return fmt.Errorf("paddle charge: %w", err)
		}
		if err := d.outbox.SetProviderRef(ctx, job.ID, txnID); err != nil {
			return fmt.Errorf("record charge %s: %w", txnID, err)
		}
	}

	if err := d.billing.AddPurchasedCredits(ctx, p.UserID, float64(quantity)); err != nil {
		return err
	}

	d.logger.Info().
		Int("user_id", p.UserID).
		Int("quantity", quantity).
		Str("transaction_id", txnID).
		Msg("auto recharge completed")
	return nil
}

func (d *OutboxDispatcher) notify(ctx context.Context, payload []byte) error {
	var p NotifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode notify payload: %w", err)
	}

	user, err := d.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("notify target user %d not found", p.UserID)
	}

	from := user.PreferredNumber
	if from == "" {
		from = d.twilio.SenderNumber("usa")
	}

	switch p.Via {
	case "telegram":
		if d.telegram.Enabled() && user.TelegramChatID != 0 {
			return d.telegram.Send(user.TelegramChatID, p.Text)
		}
		// Fall back to SMS when Telegram is not linked.
		_, err = d.twilio.SendSMS(ctx, from, user.PhoneNumber, p.Text)
		return err
	case "call":
		_, err = d.twilio.Call(ctx, from, user.PhoneNumber, p.Text)
		return err
	default:
		_, err = d.twilio.SendSMS(ctx, from, user.PhoneNumber, p.Text)
		return err
	}
}
