package models

import (
	"time"
)

// Role grants access levels beyond plain authentication.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered marketplace member
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose password hash in JSON
	Company      string    `json:"company" db:"company"`
	Phone        string    `json:"phone" db:"phone"`
	Location     string    `json:"location" db:"location"`
	Country      string    `json:"country" db:"country"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// IsAdmin reports whether the user holds the administrative role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRegistration represents user registration request
type UserRegistration struct {
	Username string `json:"username" validate:"required,min=3,max=64,excludes=@"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Company  string `json:"company" validate:"max=200"`
	Phone    string `json:"phone" validate:"max=32"`
	Location string `json:"location" validate:"max=100"`
	Country  string `json:"country" validate:"max=100"`
}

// UserLogin represents user login request. Username may hold either the
// username or the email address.
type UserLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse represents user response (without sensitive data)
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Location  string    `json:"location"`
	Country   string    `json:"country"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login: the user fields plus the
// session token.
type AuthResponse struct {
	UserResponse
	Token string `json:"token"`
}

// ToResponse strips sensitive data from the user
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Company:   u.Company,
		Phone:     u.Phone,
		Location:  u.Location,
		Country:   u.Country,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// LoginEvent records a successful authentication
type LoginEvent struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	LoginKey  string    `json:"loginKey" db:"login_key"`
	IPAddress string    `json:"ipAddress" db:"ip_address"`
	UserAgent string    `json:"userAgent" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
