package course

import "time"

// Course price is in cents.
type Course struct {
	ID          string    `json:"id" db:"course_id"`
	SellerID    string    `json:"sellerId" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Price       int64     `json:"price" db:"price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type CourseNew struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0,lte=1000000"`
	ImageURL    string `json:"imageUrl" validate:"required"`
}

type CourseUp struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0,lte=1000000"`
	ImageURL    *string `json:"imageUrl"`
}
