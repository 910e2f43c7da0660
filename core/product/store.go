package product

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	INSERT INTO products
		(product_id, seller_id, name, description, category, price, file_url,
		 course_id, created_at, updated_at)
	VALUES
		(:product_id, :seller_id, :name, :description, :category, :price, :file_url,
		 :course_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	UPDATE products SET
		name = :name,
		description = :description,
		price = :price,
		file_url = :file_url,
		updated_at = :updated_at,
		version = version + 1
	WHERE product_id = :product_id AND version = :version`

	prd.UpdatedAt = time.Now().UTC()
	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("updating product[%s]: %w", prd.ID, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var prd Product
	if err := sqlx.GetContext(ctx, db, &prd, q, id); err != nil {
		return Product{}, fmt.Errorf("fetching product[%s]: %w", id, err)
	}
	return prd, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `SELECT * FROM products ORDER BY created_at DESC`

	prds := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prds, q); err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	return prds, nil
}

func FetchBySeller(ctx context.Context, db sqlx.ExtContext, sellerID string) ([]Product, error) {
	const q = `SELECT * FROM products WHERE seller_id = $1 ORDER BY created_at DESC`

	prds := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prds, q, sellerID); err != nil {
		return nil, fmt.Errorf("fetching products of seller[%s]: %w", sellerID, err)
	}
	return prds, nil
}
