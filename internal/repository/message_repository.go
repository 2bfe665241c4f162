package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Store(ctx context.Context, msg *entities.Message) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO messages (user_id, platform, sender, content, outbound, ts)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
	`, msg.UserID, msg.Platform, msg.Sender, msg.Content, msg.Outbound,
		msg.Timestamp).Scan(&msg.ID)
}

// Recent returns the newest inbound messages for a user, newest first.
func (r *MessageRepository) Recent(ctx context.Context, userID, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, platform, sender, content, outbound, ts
		FROM messages WHERE user_id = $1 AND NOT outbound
		ORDER BY ts DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// Since returns inbound messages newer than the given time, oldest first.
// The waiting-check matcher scans from each check's last_scanned mark.
func (r *MessageRepository) Since(ctx context.Context, userID int, since time.Time) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, platform, sender, content, outbound, ts
		FROM messages WHERE user_id = $1 AND NOT outbound AND ts > $2
		ORDER BY ts ASC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]entities.Message, error) {
	var msgs []entities.Message
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Platform, &m.Sender, &m.Content,
			&m.Outbound, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
