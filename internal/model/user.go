package model

import "strings"

// Role is both the stored user type and an employee role name.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleReceptionist Role = "RECEPCIONISTA"
	RoleDoctor       Role = "ODONTOLOGO"
	RolePatient      Role = "PACIENTE"
)

// employeeRank orders employee roles by privilege.
var employeeRank = map[Role]int{
	RoleAdmin:        3,
	RoleReceptionist: 2,
	RoleDoctor:       1,
}

// PrimaryRole returns the most privileged role of an employee's role set,
// RoleDoctor when the set is empty.
func PrimaryRole(roles []Role) Role {
	best := RoleDoctor
	for _, r := range roles {
		if employeeRank[r] > employeeRank[best] {
			best = r
		}
	}
	return best
}

type Sex string

const (
	SexMale   Sex = "MASCULINO"
	SexFemale Sex = "FEMENINO"
)

// DefaultPassword is assigned to patients registered without one.
const DefaultPassword = "123456789"

type User struct {
	Base
	FirstName    string  `json:"first_name" db:"first_name"`
	LastName     string  `json:"last_name" db:"last_name"`
	DNI          string  `json:"dni" db:"dni"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Phone        string  `json:"phone" db:"phone"`
	Email        *string `json:"email,omitempty" db:"email"`
	Sex          Sex     `json:"sex" db:"sex"`
	Address      *string `json:"address,omitempty" db:"address"`
	UserType     Role    `json:"user_type" db:"user_type"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserInput carries the identity fields shared by patient and employee forms.
type UserInput struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	DNI       string `json:"dni" binding:"required,dni"`
	Password  string `json:"password" binding:"omitempty,min=8,max=72"`
	Phone     string `json:"phone" binding:"required,phone"`
	Email     string `json:"email" binding:"omitempty,email,max=150"`
	Sex       Sex    `json:"sex" binding:"required,oneof=MASCULINO FEMENINO"`
	Address   string `json:"address" binding:"omitempty,max=255"`
}

// ToUser copies the input onto a user row. PasswordHash and UserType are
// left for the caller.
func (in UserInput) ToUser() User {
	return User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		DNI:       strings.TrimSpace(in.DNI),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     optional(in.Email),
		Sex:       in.Sex,
		Address:   optional(in.Address),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
