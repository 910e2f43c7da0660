package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	CommissionPercentage = "percentage"
	CommissionFlat       = "flat"
)

// Link is a referral code amplifying a seller's storefront. CommissionValue
// is a percent for percentage links and cents for flat ones. The aggregate
// counters are bumped on every attributed sale.
type Link struct {
	ID              string    `json:"id" db:"link_id"`
	Code            string    `json:"code" db:"code"`
	SellerID        string    `json:"sellerId" db:"seller_id"`
	CommissionType  string    `json:"commissionType" db:"commission_type"`
	CommissionValue int64     `json:"commissionValue" db:"commission_value"`
	SalesCount      int       `json:"salesCount" db:"sales_count"`
	Revenue         int64     `json:"revenue" db:"revenue"`
	Commission      int64     `json:"commission" db:"commission"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

type SaleStatus string

const SalePending SaleStatus = "pending"

type Sale struct {
	ID         string     `json:"id" db:"sale_id"`
	LinkID     string     `json:"linkId" db:"link_id"`
	OrderID    string     `json:"orderId" db:"order_id"`
	Amount     int64      `json:"amount" db:"amount"`
	Commission int64      `json:"commission" db:"commission"`
	Status     SaleStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// Commission computes the cut owed for an order of total cents.
func (l Link) CommissionFor(total int64) int64 {
	if l.CommissionType == CommissionFlat {
		return l.CommissionValue
	}
	return total * l.CommissionValue / 100
}

func Create(ctx context.Context, db sqlx.ExtContext, lnk Link) error {
	const q = `
	INSERT INTO affiliate_links (link_id, code, seller_id, commission_type, commission_value,
		sales_count, revenue, commission, created_at, updated_at)
	VALUES (:link_id, :code, :seller_id, :commission_type, :commission_value,
		:sales_count, :revenue, :commission, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lnk); err != nil {
		return fmt.Errorf("creating affiliate link[%s]: %w", lnk.Code, err)
	}
	return nil
}

func FetchByCode(ctx context.Context, db sqlx.ExtContext, code string) (Link, error) {
	const q = `SELECT * FROM affiliate_links WHERE code = $1`

	var lnk Link
	if err := sqlx.GetContext(ctx, db, &lnk, q, code); err != nil {
		return Link{}, fmt.Errorf("fetching affiliate link by code: %w", err)
	}
	return lnk, nil
}

// RecordSale attributes an order to the link: inserts the pending sale and
// folds its numbers into the link aggregates.
func RecordSale(ctx context.Context, db sqlx.ExtContext, sale Sale) error {
	const qs = `
	INSERT INTO affiliate_sales (sale_id, link_id, order_id, amount, commission, status, created_at)
	VALUES (:sale_id, :link_id, :order_id, :amount, :commission, :status, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, qs, sale); err != nil {
		return fmt.Errorf("inserting affiliate sale: %w", err)
	}

	const ql = `
	UPDATE affiliate_links SET
		sales_count = sales_count + 1,
		revenue = revenue + $2,
		commission = commission + $3,
		updated_at = $4
	WHERE link_id = $1`

	if _, err := db.ExecContext(ctx, ql, sale.LinkID, sale.Amount, sale.Commission, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating aggregates of link[%s]: %w", sale.LinkID, err)
	}
	return nil
}
