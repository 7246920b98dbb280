package model

import "time"

type LoginRequest struct {
	DNI      string `json:"dni" binding:"required,max=20"`
	Password string `json:"password" binding:"required,max=72"`
}

// SessionUser is the identity embedded in a session token.
type SessionUser struct {
	ID        int64  `json:"id"`
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Email     string `json:"email,omitempty"`
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}
