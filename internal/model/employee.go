package model

import "github.com/lib/pq"

type Employee struct {
	Base
	UserID    int64          `json:"user_id" db:"user_id"`
	Specialty string         `json:"specialty" db:"specialty"`
	Roles     pq.StringArray `json:"roles" db:"roles"`
	User      User           `json:"user" db:"user"`
}

// HasRole reports whether the employee holds r.
func (e *Employee) HasRole(r Role) bool {
	for _, name := range e.Roles {
		if Role(name) == r {
			return true
		}
	}
	return false
}

type EmployeeRequest struct {
	UserInput
	Email     string `json:"email" binding:"required,email,max=150"`
	Specialty string `json:"specialty" binding:"omitempty,max=100"`
	Roles     []Role `json:"roles" binding:"omitempty,dive,oneof=ADMIN RECEPCIONISTA ODONTOLOGO"`
}

// RoleSet returns the requested roles without duplicates, defaulting to
// RoleDoctor.
func (r EmployeeRequest) RoleSet() []Role {
	seen := make(map[Role]bool, len(r.Roles))
	out := make([]Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		if !seen[role] {
			seen[role] = true
			out = append(out, role)
		}
	}
	if len(out) == 0 {
		out = append(out, RoleDoctor)
	}
	return out
}

type SpecialtyRequest struct {
	Specialty string `json:"specialty" binding:"required,max=100"`
}
