package product

import "time"

const (
	CategoryDigital = "digital"
	CategoryCourse  = "course"
)

// Product is a digital good sold from a seller storefront. Products with
// category "course" carry the course they grant access to, which is how a
// bundle purchase fans out to enrollments. Price is in cents.
type Product struct {
	ID          string    `json:"id" db:"product_id"`
	SellerID    string    `json:"sellerId" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       int64     `json:"price" db:"price"`
	FileURL     string    `json:"-" db:"file_url"`
	CourseID    *string   `json:"courseId,omitempty" db:"course_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type ProductNew struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" validate:"required,oneof=digital course"`
	Price       int64   `json:"price" validate:"gte=0"`
	FileURL     string  `json:"fileUrl" validate:"omitempty,url"`
	CourseID    *string `json:"courseId" validate:"required_if=Category course,omitempty,uuid"`
}

type ProductUp struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	FileURL     *string `json:"fileUrl" validate:"omitempty,url"`
}
