package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Create inserts the order unless one already exists for its provider
// reference. It reports whether a row was written, so webhook redelivery
// can stop fulfillment cleanly instead of double-writing.
func Create(ctx context.Context, db sqlx.ExtContext, ord Order) (bool, error) {
	const q = `
	INSERT INTO orders
		(order_id, order_number, provider, provider_id, customer_name,
		 customer_email, customer_phone, total_amount, platform_fee,
		 seller_amount, status, user_id, seller_id, coupon_id,
		 affiliate_link_id, payout_status, available_at, created_at, updated_at)
	VALUES
		(:order_id, :order_number, :provider, :provider_id, :customer_name,
		 :customer_email, :customer_phone, :total_amount, :platform_fee,
		 :seller_amount, :status, :user_id, :seller_id, :coupon_id,
		 :affiliate_link_id, :payout_status, :available_at, :created_at, :updated_at)
	ON CONFLICT (provider_id) DO NOTHING`

	res, err := sqlx.NamedExecContext(ctx, db, q, ord)
	if err != nil {
		return false, fmt.Errorf("inserting order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items (order_id, item_type, item_id, price, created_at)
	VALUES (:order_id, :item_type, :item_id, :price, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, id); err != nil {
		return Order{}, fmt.Errorf("fetching order[%s]: %w", id, err)
	}
	return ord, nil
}

func FetchByProviderID(ctx context.Context, db sqlx.ExtContext, providerID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE provider_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, providerID); err != nil {
		return Order{}, fmt.Errorf("fetching order bound to payment[%s]: %w", providerID, err)
	}
	return ord, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1`

	its := []Item{}
	if err := sqlx.SelectContext(ctx, db, &its, q, orderID); err != nil {
		return nil, fmt.Errorf("fetching items of order[%s]: %w", orderID, err)
	}
	return its, nil
}

func FetchByStatus(ctx context.Context, db sqlx.ExtContext, status Status) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, status); err != nil {
		return nil, fmt.Errorf("fetching orders with status[%s]: %w", status, err)
	}
	return ords, nil
}

// UpdateStatus moves the order from one status to another, reporting
// whether the transition happened. A concurrent caller that already moved
// the order finds no matching row and gets false, not an error.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, from Status, to Status) (bool, error) {
	const q = `
	UPDATE orders SET
		status = $3,
		updated_at = $4
	WHERE order_id = $1 AND status = $2`

	res, err := db.ExecContext(ctx, q, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("updating status of order[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FetchPayable lists paid orders past their holdback whose proceeds have not
// been released yet.
func FetchPayable(ctx context.Context, db sqlx.ExtContext) ([]Order, error) {
	const q = `
	SELECT * FROM orders
	WHERE status = 'paid' AND payout_status = 'pending' AND available_at <= $1
	ORDER BY available_at ASC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("fetching payable orders: %w", err)
	}
	return ords, nil
}

// UpdatePayoutStatus works like UpdateStatus for the payout lifecycle, so
// two concurrent releases of the same order cannot both debit the seller.
func UpdatePayoutStatus(ctx context.Context, db sqlx.ExtContext, id string, from PayoutStatus, to PayoutStatus) (bool, error) {
	const q = `
	UPDATE orders SET
		payout_status = $3,
		updated_at = $4
	WHERE order_id = $1 AND payout_status = $2`

	res, err := db.ExecContext(ctx, q, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("updating payout status of order[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
