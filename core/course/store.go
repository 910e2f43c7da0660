package course

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	INSERT INTO courses
		(course_id, seller_id, name, description, image_url, price, created_at, updated_at)
	VALUES
		(:course_id, :seller_id, :name, :description, :image_url, :price, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	UPDATE courses SET
		name = :name,
		description = :description,
		image_url = :image_url,
		price = :price,
		updated_at = :updated_at,
		version = version + 1
	WHERE course_id = :course_id AND version = :version`

	crs.UpdatedAt = time.Now().UTC()
	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`

	var crs Course
	if err := sqlx.GetContext(ctx, db, &crs, q, id); err != nil {
		return Course{}, fmt.Errorf("fetching course[%s]: %w", id, err)
	}
	return crs, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Course, error) {
	const q = `SELECT * FROM courses ORDER BY created_at DESC`

	crss := []Course{}
	if err := sqlx.SelectContext(ctx, db, &crss, q); err != nil {
		return nil, fmt.Errorf("fetching courses: %w", err)
	}
	return crss, nil
}

func FetchBySeller(ctx context.Context, db sqlx.ExtContext, sellerID string) ([]Course, error) {
	const q = `SELECT * FROM courses WHERE seller_id = $1 ORDER BY created_at DESC`

	crss := []Course{}
	if err := sqlx.SelectContext(ctx, db, &crss, q, sellerID); err != nil {
		return nil, fmt.Errorf("fetching courses of seller[%s]: %w", sellerID, err)
	}
	return crss, nil
}

// FetchEnrolled returns the courses a student can access, joined through
// the enrollments granted by fulfilled orders.
func FetchEnrolled(ctx context.Context, db sqlx.ExtContext, email string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses AS c
	JOIN enrollments AS e ON e.course_id = c.course_id
	WHERE e.student_email = $1
	ORDER BY c.created_at DESC`

	crss := []Course{}
	if err := sqlx.SelectContext(ctx, db, &crss, q, email); err != nil {
		return nil, fmt.Errorf("fetching courses enrolled by %q: %w", email, err)
	}
	return crss, nil
}
