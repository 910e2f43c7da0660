package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	DiscountPercentage = "percentage"
	DiscountFlat       = "flat"
)

// Coupon holds a discount code. DiscountValue is a percent for percentage
// coupons and cents for flat ones.
type Coupon struct {
	ID            string    `json:"id" db:"coupon_id"`
	Code          string    `json:"code" db:"code"`
	DiscountType  string    `json:"discountType" db:"discount_type"`
	DiscountValue int64     `json:"discountValue" db:"discount_value"`
	UsageCount    int       `json:"usageCount" db:"usage_count"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Usage records one redemption against an order.
type Usage struct {
	CouponID       string    `json:"couponId" db:"coupon_id"`
	OrderID        string    `json:"orderId" db:"order_id"`
	CustomerEmail  string    `json:"customerEmail" db:"customer_email"`
	DiscountAmount int64     `json:"discountAmount" db:"discount_amount"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

func Create(ctx context.Context, db sqlx.ExtContext, cpn Coupon) error {
	const q = `
	INSERT INTO coupons (coupon_id, code, discount_type, discount_value, usage_count, created_at, updated_at)
	VALUES (:coupon_id, :code, :discount_type, :discount_value, :usage_count, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, cpn); err != nil {
		return fmt.Errorf("creating coupon[%s]: %w", cpn.Code, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Coupon, error) {
	const q = `SELECT * FROM coupons WHERE coupon_id = $1`

	var cpn Coupon
	if err := sqlx.GetContext(ctx, db, &cpn, q, id); err != nil {
		return Coupon{}, fmt.Errorf("fetching coupon[%s]: %w", id, err)
	}
	return cpn, nil
}

func FetchByCode(ctx context.Context, db sqlx.ExtContext, code string) (Coupon, error) {
	const q = `SELECT * FROM coupons WHERE code = $1`

	var cpn Coupon
	if err := sqlx.GetContext(ctx, db, &cpn, q, code); err != nil {
		return Coupon{}, fmt.Errorf("fetching coupon by code: %w", err)
	}
	return cpn, nil
}

// Redeem bumps the usage counter and records who redeemed the coupon on
// which order. ON CONFLICT guards against event redelivery.
func Redeem(ctx context.Context, db sqlx.ExtContext, use Usage) error {
	const qu = `
	INSERT INTO coupon_usages (coupon_id, order_id, customer_email, discount_amount, created_at)
	VALUES (:coupon_id, :order_id, :customer_email, :discount_amount, :created_at)
	ON CONFLICT (coupon_id, order_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, qu, use); err != nil {
		return fmt.Errorf("recording usage of coupon[%s]: %w", use.CouponID, err)
	}

	const qc = `
	UPDATE coupons SET
		usage_count = usage_count + 1,
		updated_at = $2
	WHERE coupon_id = $1`

	if _, err := db.ExecContext(ctx, qc, use.CouponID, time.Now().UTC()); err != nil {
		return fmt.Errorf("incrementing usage of coupon[%s]: %w", use.CouponID, err)
	}
	return nil
}
