package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert syncs a subscription row from a Paddle webhook. The Paddle
// subscription id is the conflict key; the latest event wins.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *entities.Subscription) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscriptions
			(user_id, paddle_subscription_id, paddle_customer_id, status, stage,
			 next_bill_date, cancel_at_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (paddle_subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			next_bill_date = EXCLUDED.next_bill_date,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = NOW()
	`, sub.UserID, sub.PaddleSubscriptionID, sub.PaddleCustomerID, sub.Status,
		sub.Stage, sub.NextBillDate, sub.CancelAtPeriodEnd)
	return err
}

func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID int) (*entities.Subscription, error) {
	var s entities.Subscription
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, paddle_subscription_id, paddle_customer_id, status,
		       stage, next_bill_date, cancel_at_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = $1
		ORDER BY updated_at DESC LIMIT 1
	`, userID).Scan(&s.ID, &s.UserID, &s.PaddleSubscriptionID, &s.PaddleCustomerID,
		&s.Status, &s.Stage, &s.NextBillDate, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
