package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Enrollment grants a student access to a course. The (course, student
// email) key is the idempotency guard of the whole fulfillment flow:
// redelivered purchase events land on the same row.
type Enrollment struct {
	CourseID     string    `json:"courseId" db:"course_id"`
	StudentEmail string    `json:"studentEmail" db:"student_email"`
	OrderID      string    `json:"orderId" db:"order_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Upsert inserts the enrollment or, when the student already holds one for
// the course, re-points it at the granting order.
func Upsert(ctx context.Context, db sqlx.ExtContext, enr Enrollment) error {
	const q = `
	INSERT INTO enrollments (course_id, student_email, order_id, created_at, updated_at)
	VALUES (:course_id, :student_email, :order_id, :created_at, :updated_at)
	ON CONFLICT (course_id, student_email) DO UPDATE SET
		order_id = EXCLUDED.order_id,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, enr); err != nil {
		return fmt.Errorf("upserting enrollment[%s/%s]: %w", enr.CourseID, enr.StudentEmail, err)
	}
	return nil
}

func FetchByStudent(ctx context.Context, db sqlx.ExtContext, email string) ([]Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE student_email = $1`

	enrs := []Enrollment{}
	if err := sqlx.SelectContext(ctx, db, &enrs, q, email); err != nil {
		return nil, fmt.Errorf("fetching enrollments of %q: %w", email, err)
	}
	return enrs, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE course_id = $1`

	enrs := []Enrollment{}
	if err := sqlx.SelectContext(ctx, db, &enrs, q, courseID); err != nil {
		return nil, fmt.Errorf("fetching enrollments of course[%s]: %w", courseID, err)
	}
	return enrs, nil
}
