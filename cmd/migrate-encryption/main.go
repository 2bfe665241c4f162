package main

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/infrastructure"
)

// Re-encrypts connection token columns that were stored as plain base64
// before AES-GCM was introduced. Safe to run repeatedly: already-encrypted
// values decrypt cleanly and are left alone.
func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}
	cipher, err := infrastructure.NewTokenCipher(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ENCRYPTION_KEY")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `SELECT id, access_token, refresh_token FROM connections`)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to list connections")
	}

	type row struct {
		id              int
		access, refresh string
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.access, &r.refresh); err != nil {
			logger.Fatal().Err(err).Msg("scan failed")
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		logger.Fatal().Err(err).Msg("row iteration failed")
	}

	migrated := 0
	for _, r := range all {
		access, changedA, err := reencrypt(cipher, r.access)
		if err != nil {
			logger.Error().Err(err).Int("id", r.id).Msg("access token unreadable, skipping")
			continue
		}
		refresh, changedR, err := reencrypt(cipher, r.refresh)
		if err != nil {
			logger.Error().Err(err).Int("id", r.id).Msg("refresh token unreadable, skipping")
			continue
		}
		if !changedA && !changedR {
			continue
		}

		if _, err := pool.Exec(ctx,
			`UPDATE connections SET access_token = $2, refresh_token = $3 WHERE id = $1`,
			r.id, access, refresh); err != nil {
			logger.Fatal().Err(err).Int("id", r.id).Msg("update failed")
		}
		migrated++
	}

	logger.Info().Int("total", len(all)).Int("migrated", migrated).Msg("encryption migration complete")
}

// reencrypt returns the stored value unchanged when it already decrypts
// with the current key, otherwise treats it as legacy base64 plaintext and
// encrypts it properly.
func reencrypt(cipher *infrastructure.TokenCipher, stored string) (string, bool, error) {
	if stored == "" {
		return stored, false, nil
	}
	if _, err := cipher.Decrypt(stored); err == nil {
		return stored, false, nil
	}

	plain, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", false, err
	}
	enc, err := cipher.Encrypt(string(plain))
	if err != nil {
		return "", false, err
	}
	return enc, true, nil
}
