package model

import "time"

// Role is the authorization level carried in the access token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User mirrors a row of the `users` table. PasswordHash never leaves the
// server.
type User struct {
	ID                  uint64    `json:"id"`                  // users.id
	Name                string    `json:"name"`                // users.name
	Email               string    `json:"email"`               // users.email (unique, lower-cased)
	PasswordHash        string    `json:"-"`                   // users.password_hash
	Role                Role      `json:"role"`                // users.role
	IsVerified          bool      `json:"isVerified"`          // users.is_verified
	IsActive            bool      `json:"isActive"`            // users.is_active
	NotifyOnReview      bool      `json:"notifyOnReview"`      // users.notify_on_review
	NotifyOnCompetition bool      `json:"notifyOnCompetition"` // users.notify_on_competition
	CreatedAt           time.Time `json:"createdAt"`           // users.created_at
	UpdatedAt           time.Time `json:"updatedAt"`           // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is not stored, only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
