package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/infrastructure"
)

// ConnectionRepository stores third-party OAuth links. Token columns go
// through the TokenCipher; plaintext never reaches the database.
type ConnectionRepository struct {
	db     *pgxpool.Pool
	cipher *infrastructure.TokenCipher
}

func NewConnectionRepository(db *pgxpool.Pool, cipher *infrastructure.TokenCipher) *ConnectionRepository {
	return &ConnectionRepository{db: db, cipher: cipher}
}

func (r *ConnectionRepository) Upsert(ctx context.Context, conn *entities.Connection) error {
	access, err := r.cipher.Encrypt(conn.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := r.cipher.Encrypt(conn.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO connections (user_id, provider, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at
	`, conn.UserID, conn.Provider, access, refresh, conn.ExpiresAt)
	return err
}

func (r *ConnectionRepository) Get(ctx context.Context, userID int, provider string) (*entities.Connection, error) {
	var c entities.Connection
	var access, refresh string
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, provider, access_token, refresh_token, expires_at, created_at
		FROM connections WHERE user_id = $1 AND provider = $2
	`, userID, provider).Scan(&c.ID, &c.UserID, &c.Provider, &access, &refresh,
		&c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.AccessToken, err = r.cipher.Decrypt(access); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if c.RefreshToken, err = r.cipher.Decrypt(refresh); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return &c, nil
}

// UpdateAccessToken stores a refreshed access token and its new expiry.
func (r *ConnectionRepository) UpdateAccessToken(ctx context.Context, userID int, provider, accessToken string, expiresAt time.Time) error {
	access, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE connections SET access_token = $3, expires_at = $4
		WHERE user_id = $1 AND provider = $2
	`, userID, provider, access, expiresAt)
	return err
}

func (r *ConnectionRepository) Delete(ctx context.Context, userID int, provider string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM connections WHERE user_id = $1 AND provider = $2`, userID, provider)
	return err
}
