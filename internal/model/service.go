package model

// Service is a billable dental procedure.
type Service struct {
	Base
	Name string  `json:"name" db:"name"`
	Fee  float64 `json:"fee" db:"fee"`
}

type ServiceRequest struct {
	Name string  `json:"name" binding:"required,max=150"`
	Fee  float64 `json:"fee" binding:"gte=0"`
}
