package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type WaitingCheckRepository struct {
	db *pgxpool.Pool
}

func NewWaitingCheckRepository(db *pgxpool.Pool) *WaitingCheckRepository {
	return &WaitingCheckRepository{db: db}
}

func (r *WaitingCheckRepository) Create(ctx context.Context, check *entities.WaitingCheck) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO waiting_checks (user_id, phrase, service, notify_via)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, check.UserID, check.Phrase, check.Service, check.NotifyVia).Scan(&check.ID)
}

func (r *WaitingCheckRepository) GetAll(ctx context.Context) ([]entities.WaitingCheck, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, phrase, service, notify_via, last_scanned, created_at
		FROM waiting_checks ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []entities.WaitingCheck
	for rows.Next() {
		var c entities.WaitingCheck
		if err := rows.Scan(&c.ID, &c.UserID, &c.Phrase, &c.Service, &c.NotifyVia,
			&c.LastScanned, &c.CreatedAt); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (r *WaitingCheckRepository) GetByUser(ctx context.Context, userID int) ([]entities.WaitingCheck, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, phrase, service, notify_via, last_scanned, created_at
		FROM waiting_checks WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []entities.WaitingCheck
	for rows.Next() {
		var c entities.WaitingCheck
		if err := rows.Scan(&c.ID, &c.UserID, &c.Phrase, &c.Service, &c.NotifyVia,
			&c.LastScanned, &c.CreatedAt); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (r *WaitingCheckRepository) MarkScanned(ctx context.Context, id int, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE waiting_checks SET last_scanned = $2 WHERE id = $1`, id, at)
	return err
}

func (r *WaitingCheckRepository) Delete(ctx context.Context, id, userID int) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM waiting_checks WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
