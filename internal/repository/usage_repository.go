package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date        time.Time `json:"date"`
	Messages    int       `json:"messages"`
	VoiceCalls  int       `json:"voice_calls"`
	CreditsUsed float64   `json:"credits_used"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(ctx context.Context, rec *entities.UsageRecord) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO usage_records (user_id, kind, credits_used, success, reference)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, rec.UserID, rec.Kind, rec.CreditsUsed, rec.Success, rec.Reference).Scan(&rec.ID)
}

// MonthTotal sums credits spent since the first of the current month.
func (r *UsageRepository) MonthTotal(ctx context.Context, userID int) (float64, error) {
	firstOfMonth := time.Now().UTC().Format("2006-01") + "-01"
	var total float64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(credits_used), 0) FROM usage_records
		WHERE user_id = $1 AND created_at >= $2::date
	`, userID, firstOfMonth).Scan(&total)
	return total, err
}

// History returns per-day usage for the last N days, oldest first.
func (r *UsageRepository) History(ctx context.Context, userID, days int) ([]DailyUsage, error) {
	start := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*) FILTER (WHERE kind = 'message'),
		       COUNT(*) FILTER (WHERE kind = 'voice'),
		       COALESCE(SUM(credits_used), 0)
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY day ORDER BY day ASC
	`, userID, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Messages, &u.VoiceCalls, &u.CreditsUsed); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
