package lesson

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, les Lesson) error {
	const q = `
	INSERT INTO lessons
		(lesson_id, course_id, module, sort_order, name, description, free,
		 content_url, created_at, updated_at)
	VALUES
		(:lesson_id, :course_id, :module, :sort_order, :name, :description, :free,
		 :content_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, les); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Lesson, error) {
	const q = `SELECT * FROM lessons WHERE lesson_id = $1`

	var les Lesson
	if err := sqlx.GetContext(ctx, db, &les, q, id); err != nil {
		return Lesson{}, fmt.Errorf("fetching lesson[%s]: %w", id, err)
	}
	return les, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lesson, error) {
	const q = `SELECT * FROM lessons WHERE course_id = $1 ORDER BY module, sort_order`

	less := []Lesson{}
	if err := sqlx.SelectContext(ctx, db, &less, q, courseID); err != nil {
		return nil, fmt.Errorf("fetching lessons of course[%s]: %w", courseID, err)
	}
	return less, nil
}

// IsEnrolled reports whether the email holds an enrollment for the lesson's
// course.
func IsEnrolled(ctx context.Context, db sqlx.ExtContext, courseID string, email string) (bool, error) {
	const q = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND student_email = $2`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, courseID, email); err != nil {
		return false, fmt.Errorf("checking enrollment for course[%s]: %w", courseID, err)
	}
	return n > 0, nil
}

func UpsertProgress(ctx context.Context, db sqlx.ExtContext, prg Progress) error {
	const q = `
	INSERT INTO lesson_progress (lesson_id, user_id, progress, created_at, updated_at)
	VALUES (:lesson_id, :user_id, :progress, :created_at, :updated_at)
	ON CONFLICT (lesson_id, user_id) DO UPDATE SET
		progress = EXCLUDED.progress,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prg); err != nil {
		return fmt.Errorf("upserting progress of lesson[%s]: %w", prg.LessonID, err)
	}
	return nil
}

func FetchProgressByCourse(ctx context.Context, db sqlx.ExtContext, courseID string, userID string) ([]Progress, error) {
	const q = `
	SELECT p.* FROM lesson_progress AS p
	JOIN lessons AS l ON l.lesson_id = p.lesson_id
	WHERE l.course_id = $1 AND p.user_id = $2`

	prgs := []Progress{}
	if err := sqlx.SelectContext(ctx, db, &prgs, q, courseID, userID); err != nil {
		return nil, fmt.Errorf("fetching progress for course[%s]: %w", courseID, err)
	}
	return prgs, nil
}
