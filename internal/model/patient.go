package model

import "time"

type Patient struct {
	Base
	UserID    int64     `json:"user_id" db:"user_id"`
	BirthDate time.Time `json:"birth_date" db:"birth_date"`
	User      User      `json:"user" db:"user"`
}

type PatientRequest struct {
	UserInput
	BirthDate string `json:"birth_date" binding:"required"`
}
