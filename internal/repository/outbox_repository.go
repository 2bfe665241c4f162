package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type OutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO outbox_jobs (kind, payload) VALUES ($1, $2)`, kind, b)
	return err
}

// Due atomically claims jobs ready to run by pushing next_attempt_at one
// lease into the future. A concurrent dispatcher sees claimed jobs as not
// due, and a crashed dispatcher's claim simply expires with the lease.
func (r *OutboxRepository) Due(ctx context.Context, limit int, lease time.Duration) ([]entities.OutboxJob, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE outbox_jobs
		SET next_attempt_at = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM outbox_jobs
			WHERE NOT done AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, attempts, provider_ref, next_attempt_at, last_error, done, created_at
	`, limit, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []entities.OutboxJob
	for rows.Next() {
		var j entities.OutboxJob
		if err := rows.Scan(&j.ID, &j.Kind, &j.Payload, &j.Attempts, &j.ProviderRef,
			&j.NextAttemptAt, &j.LastError, &j.Done, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SetProviderRef records the external transaction backing the job. Written
// before the local side effect, so a retried job can tell the money already
// moved.
func (r *OutboxRepository) SetProviderRef(ctx context.Context, id int64, ref string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_jobs SET provider_ref = $2 WHERE id = $1`, id, ref)
	return err
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_jobs SET done = TRUE, last_error = '' WHERE id = $1`, id)
	return err
}

// MarkFailed records the error and schedules the next attempt. When the
// attempt budget is exhausted the job is closed with the error kept visible.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempt int, reason string, nextAt time.Time, exhausted bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_jobs
		SET attempts = $2, last_error = $3, next_attempt_at = $4, done = $5
		WHERE id = $1
	`, id, attempt, reason, nextAt, exhausted)
	return err
}
