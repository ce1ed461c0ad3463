package models

import "time"

// Employee represents a company employee eligible for benefits
type Employee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmployeeCode string    `json:"employee_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
