package bundle

import "time"

// Bundle groups products of one seller under a single price (cents).
type Bundle struct {
	ID          string    `json:"id" db:"bundle_id"`
	SellerID    string    `json:"sellerId" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
	ProductIDs  []string  `json:"productIds" db:"-"`
}

type BundleNew struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       int64    `json:"price" validate:"gte=0"`
	ProductIDs  []string `json:"productIds" validate:"required,min=1,dive,uuid"`
}

type BundleUp struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Description *string  `json:"description"`
	Price       *int64   `json:"price" validate:"omitempty,gte=0"`
	ProductIDs  []string `json:"productIds" validate:"omitempty,min=1,dive,uuid"`
}
