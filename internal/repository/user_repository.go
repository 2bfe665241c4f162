package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, phone_number, credits, credits_left,
	sub_tier, discount, is_admin, preferred_number, charge_when_under,
	charge_threshold, charge_back_to, notify_via, telegram_chat_id, created_at`

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Credits,
		&u.CreditsLeft, &u.SubTier, &u.Discount, &u.IsAdmin, &u.PreferredNumber,
		&u.ChargeWhenUnder, &u.ChargeThreshold, &u.ChargeBackTo, &u.NotifyVia,
		&u.TelegramChatID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, phone_number, notify_via)
		 VALUES ($1, $2, $3, 'sms') RETURNING id`,
		user.Email, user.PasswordHash, user.PhoneNumber).Scan(&user.ID)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone))
}

func (r *UserRepository) GetAll(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []entities.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *entities.User) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET phone_number = $2, preferred_number = $3,
			charge_when_under = $4, charge_threshold = $5, charge_back_to = $6,
			notify_via = $7, telegram_chat_id = $8
		 WHERE id = $1`,
		user.ID, user.PhoneNumber, user.PreferredNumber, user.ChargeWhenUnder,
		user.ChargeThreshold, user.ChargeBackTo, user.NotifyVia, user.TelegramChatID)
	return err
}

func (r *UserRepository) SetTier(ctx context.Context, userID int, tier string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET sub_tier = $2 WHERE id = $1`, userID, tier)
	return err
}

// AddCredits tops up the pay-as-you-go balance.
func (r *UserRepository) AddCredits(ctx context.Context, userID int, amount float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET credits = credits + $2 WHERE id = $1`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// SetQuota resets the monthly quota, used on subscription renewal.
func (r *UserRepository) SetQuota(ctx context.Context, userID int, quota float64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET credits_left = $2 WHERE id = $1`, userID, quota)
	return err
}

// DeductQuotaFirst spends cost from the monthly quota first and spills any
// overflow into the pay-as-you-go balance. The row stays locked between the
// read and the write, so concurrent deductions never double-spend the quota.
func (r *UserRepository) DeductQuotaFirst(ctx context.Context, userID int, cost float64) (credits, creditsLeft float64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	var current float64
	err = tx.QueryRow(ctx,
		`SELECT credits_left FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("user %d not found", userID)
	}
	if err != nil {
		return 0, 0, err
	}

	fromQuota, fromBalance := entities.SplitQuotaFirst(current, cost)
	err = tx.QueryRow(ctx,
		`UPDATE users SET credits_left = credits_left - $2, credits = credits - $3
		 WHERE id = $1
		 RETURNING credits, credits_left`,
		userID, fromQuota, fromBalance).Scan(&credits, &creditsLeft)
	if err != nil {
		return 0, 0, err
	}
	return credits, creditsLeft, tx.Commit(ctx)
}

// DeductBalance spends cost from the pay-as-you-go balance only (tier-2).
func (r *UserRepository) DeductBalance(ctx context.Context, userID int, cost float64) (credits float64, err error) {
	err = r.db.QueryRow(ctx,
		`UPDATE users SET credits = credits - $2 WHERE id = $1 RETURNING credits`,
		userID, cost).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user %d not found", userID)
	}
	return credits, err
}
