package model

import (
	"math"
	"time"
)

// Base contains common fields for all models
type Base struct {
	ID        int64      `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Active reports whether the row has not been soft-deleted.
func (b Base) Active() bool {
	return b.DeletedAt == nil
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ActionResult is the uniform outcome of a mutation.
type ActionResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	ID      *int64  `json:"id,omitempty"`
}

// OK builds a successful result.
func OK() ActionResult {
	return ActionResult{Success: true}
}

// OKWithID builds a successful result carrying the created id.
func OKWithID(id int64) ActionResult {
	return ActionResult{Success: true, ID: &id}
}

// Failed builds a failed result with msg.
func Failed(msg string) ActionResult {
	return ActionResult{Success: false, Error: &msg}
}
