package user

import "time"

type User struct {
	ID             string    `json:"id" db:"user_id"`
	Username       string    `json:"username" db:"username"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	Role           string    `json:"role" db:"role"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Active         bool      `json:"active" db:"active"`
	PendingBalance int64     `json:"pendingBalance" db:"pending_balance"`
	TotalEarnings  int64     `json:"totalEarnings" db:"total_earnings"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
	Version        int       `json:"-" db:"version"`
}

type UserNew struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RoleUp struct {
	Role string `json:"role" validate:"required,oneof=USER SELLER ADMIN"`
}
