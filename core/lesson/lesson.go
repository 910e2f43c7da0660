package lesson

import "time"

// Lesson is one unit of course content. Free lessons are previewable
// without an enrollment; the content URL of paid ones is only revealed to
// enrolled students.
type Lesson struct {
	ID          string    `json:"id" db:"lesson_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Module      string    `json:"module" db:"module"`
	Index       int       `json:"index" db:"sort_order"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Free        bool      `json:"free" db:"free"`
	ContentURL  string    `json:"-" db:"content_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type LessonNew struct {
	CourseID    string `json:"courseId" validate:"required,uuid"`
	Module      string `json:"module" validate:"required"`
	Index       int    `json:"index" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Free        bool   `json:"free"`
	ContentURL  string `json:"contentUrl" validate:"omitempty,url"`
}

type Progress struct {
	LessonID  string    `json:"lessonId" db:"lesson_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Progress  int       `json:"progress" db:"progress"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ProgressUp struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}
