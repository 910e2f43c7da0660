package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users
		(user_id, username, name, email, role, password_hash, active,
		 pending_balance, total_earnings, created_at, updated_at)
	VALUES
		(:user_id, :username, :name, :email, :role, :password_hash, :active,
		 :pending_balance, :total_earnings, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, id); err != nil {
		return User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}
	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		return User{}, fmt.Errorf("fetching user by email: %w", err)
	}
	return usr, nil
}

func FetchByUsername(ctx context.Context, db sqlx.ExtContext, username string) (User, error) {
	const q = `SELECT * FROM users WHERE username = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, username); err != nil {
		return User{}, fmt.Errorf("fetching user[%s]: %w", username, err)
	}
	return usr, nil
}

func Activate(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `
	UPDATE users SET
		active = TRUE,
		updated_at = $2,
		version = version + 1
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("activating user[%s]: %w", id, err)
	}
	return nil
}

func UpdatePassword(ctx context.Context, db sqlx.ExtContext, id string, hash string) error {
	const q = `
	UPDATE users SET
		password_hash = $2,
		updated_at = $3,
		version = version + 1
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, id, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating password of user[%s]: %w", id, err)
	}
	return nil
}

func UpdateRole(ctx context.Context, db sqlx.ExtContext, id string, role string) error {
	const q = `
	UPDATE users SET
		role = $2,
		updated_at = $3,
		version = version + 1
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, id, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating role of user[%s]: %w", id, err)
	}
	return nil
}

// Credit adds amount to the seller's pending balance and lifetime earnings.
// Called once per fulfilled order, inside the fulfillment transaction.
func Credit(ctx context.Context, db sqlx.ExtContext, sellerID string, amount int64) error {
	const q = `
	UPDATE users SET
		pending_balance = pending_balance + $2,
		total_earnings = total_earnings + $2,
		updated_at = $3,
		version = version + 1
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, sellerID, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("crediting seller[%s]: %w", sellerID, err)
	}
	return nil
}

// Debit releases amount from the seller's pending balance during a payout.
func Debit(ctx context.Context, db sqlx.ExtContext, sellerID string, amount int64) error {
	const q = `
	UPDATE users SET
		pending_balance = pending_balance - $2,
		updated_at = $3,
		version = version + 1
	WHERE user_id = $1 AND pending_balance >= $2`

	res, err := db.ExecContext(ctx, q, sellerID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("debiting seller[%s]: %w", sellerID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("seller[%s] has insufficient pending balance", sellerID)
	}
	return nil
}
