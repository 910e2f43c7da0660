package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, bnd Bundle) error {
	const q = `
	INSERT INTO bundles
		(bundle_id, seller_id, name, description, price, created_at, updated_at)
	VALUES
		(:bundle_id, :seller_id, :name, :description, :price, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, bnd); err != nil {
		return fmt.Errorf("inserting bundle: %w", err)
	}

	const qi = `INSERT INTO bundle_products (bundle_id, product_id) VALUES ($1, $2)`
	for _, pid := range bnd.ProductIDs {
		if _, err := db.ExecContext(ctx, qi, bnd.ID, pid); err != nil {
			return fmt.Errorf("linking product[%s] to bundle[%s]: %w", pid, bnd.ID, err)
		}
	}
	return nil
}

// Update rewrites the bundle row and, when bnd.ProductIDs is non-empty,
// replaces the product links wholesale.
func Update(ctx context.Context, db sqlx.ExtContext, bnd Bundle) error {
	const q = `
	UPDATE bundles SET
		name = :name,
		description = :description,
		price = :price,
		updated_at = :updated_at,
		version = version + 1
	WHERE bundle_id = :bundle_id AND version = :version`

	bnd.UpdatedAt = time.Now().UTC()
	if _, err := sqlx.NamedExecContext(ctx, db, q, bnd); err != nil {
		return fmt.Errorf("updating bundle[%s]: %w", bnd.ID, err)
	}

	if len(bnd.ProductIDs) == 0 {
		return nil
	}

	const qd = `DELETE FROM bundle_products WHERE bundle_id = $1`
	if _, err := db.ExecContext(ctx, qd, bnd.ID); err != nil {
		return fmt.Errorf("unlinking products of bundle[%s]: %w", bnd.ID, err)
	}

	const qi = `INSERT INTO bundle_products (bundle_id, product_id) VALUES ($1, $2)`
	for _, pid := range bnd.ProductIDs {
		if _, err := db.ExecContext(ctx, qi, bnd.ID, pid); err != nil {
			return fmt.Errorf("linking product[%s] to bundle[%s]: %w", pid, bnd.ID, err)
		}
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Bundle, error) {
	const q = `SELECT * FROM bundles WHERE bundle_id = $1`

	var bnd Bundle
	if err := sqlx.GetContext(ctx, db, &bnd, q, id); err != nil {
		return Bundle{}, fmt.Errorf("fetching bundle[%s]: %w", id, err)
	}

	const qi = `SELECT product_id FROM bundle_products WHERE bundle_id = $1`
	if err := sqlx.SelectContext(ctx, db, &bnd.ProductIDs, qi, id); err != nil {
		return Bundle{}, fmt.Errorf("fetching products of bundle[%s]: %w", id, err)
	}
	return bnd, nil
}

func FetchBySeller(ctx context.Context, db sqlx.ExtContext, sellerID string) ([]Bundle, error) {
	const q = `SELECT * FROM bundles WHERE seller_id = $1 ORDER BY created_at DESC`

	bnds := []Bundle{}
	if err := sqlx.SelectContext(ctx, db, &bnds, q, sellerID); err != nil {
		return nil, fmt.Errorf("fetching bundles of seller[%s]: %w", sellerID, err)
	}
	return bnds, nil
}

// FetchCourseIDs returns the courses granted by the course-category products
// inside the bundle. A purchase of the bundle enrolls the buyer in each.
func FetchCourseIDs(ctx context.Context, db sqlx.ExtContext, bundleID string) ([]string, error) {
	const q = `
	SELECT p.course_id FROM products AS p
	JOIN bundle_products AS bp ON bp.product_id = p.product_id
	WHERE bp.bundle_id = $1 AND p.category = 'course' AND p.course_id IS NOT NULL`

	ids := []string{}
	if err := sqlx.SelectContext(ctx, db, &ids, q, bundleID); err != nil {
		return nil, fmt.Errorf("fetching courses of bundle[%s]: %w", bundleID, err)
	}
	return ids, nil
}
