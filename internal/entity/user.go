package entity

import "time"

// User is the read-only view of an account. Accounts are managed by the identity service.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// JWT Claims
type JWTClaims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}
