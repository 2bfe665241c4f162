package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type BridgeRepository struct {
	db *pgxpool.Pool
}

func NewBridgeRepository(db *pgxpool.Pool) *BridgeRepository {
	return &BridgeRepository{db: db}
}

// Upsert creates the bridge row on connect and updates status thereafter.
// One bridge per (user, kind).
func (r *BridgeRepository) Upsert(ctx context.Context, bridge *entities.Bridge) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bridges (user_id, kind, status, remote_jid, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, kind) DO UPDATE SET
			status = EXCLUDED.status,
			remote_jid = EXCLUDED.remote_jid,
			updated_at = NOW()
	`, bridge.UserID, bridge.Kind, bridge.Status, bridge.RemoteJID)
	return err
}

func (r *BridgeRepository) Get(ctx context.Context, userID int, kind string) (*entities.Bridge, error) {
	var b entities.Bridge
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, kind, status, remote_jid, created_at, updated_at
		FROM bridges WHERE user_id = $1 AND kind = $2
	`, userID, kind).Scan(&b.ID, &b.UserID, &b.Kind, &b.Status, &b.RemoteJID,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes the bridge row on disconnect, timeout or failure.
func (r *BridgeRepository) Delete(ctx context.Context, userID int, kind string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM bridges WHERE user_id = $1 AND kind = $2`, userID, kind)
	return err
}
