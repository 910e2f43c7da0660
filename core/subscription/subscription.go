package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Subscription mirrors a payment-provider subscription. ProviderID is the
// provider's subscription id and the upsert key, so every lifecycle event
// lands on the same row.
type Subscription struct {
	ID                string     `json:"id" db:"subscription_id"`
	ProviderID        string     `json:"-" db:"provider_id"`
	UserID            string     `json:"userId" db:"user_id"`
	PlanID            string     `json:"planId" db:"plan_id"`
	Status            string     `json:"status" db:"status"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd" db:"current_period_end"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd" db:"cancel_at_period_end"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}

func Upsert(ctx context.Context, db sqlx.ExtContext, sub Subscription) error {
	const q = `
	INSERT INTO subscriptions
		(subscription_id, provider_id, user_id, plan_id, status,
		 current_period_end, cancel_at_period_end, created_at, updated_at)
	VALUES
		(:subscription_id, :provider_id, :user_id, :plan_id, :status,
		 :current_period_end, :cancel_at_period_end, :created_at, :updated_at)
	ON CONFLICT (provider_id) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		plan_id = EXCLUDED.plan_id,
		status = EXCLUDED.status,
		current_period_end = EXCLUDED.current_period_end,
		cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, sub); err != nil {
		return fmt.Errorf("upserting subscription[%s]: %w", sub.ProviderID, err)
	}
	return nil
}

func FetchByProviderID(ctx context.Context, db sqlx.ExtContext, providerID string) (Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE provider_id = $1`

	var sub Subscription
	if err := sqlx.GetContext(ctx, db, &sub, q, providerID); err != nil {
		return Subscription{}, fmt.Errorf("fetching subscription[%s]: %w", providerID, err)
	}
	return sub, nil
}

// UpdateStatusByProvider refreshes only the lifecycle fields of an existing
// record. Used when an event carries no correlating metadata; it reports
// whether a matching record was found.
func UpdateStatusByProvider(ctx context.Context, db sqlx.ExtContext, sub Subscription) (bool, error) {
	const q = `
	UPDATE subscriptions SET
		status = $2,
		current_period_end = $3,
		cancel_at_period_end = $4,
		updated_at = $5
	WHERE provider_id = $1`

	res, err := db.ExecContext(ctx, q,
		sub.ProviderID, sub.Status, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("updating subscription[%s]: %w", sub.ProviderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
