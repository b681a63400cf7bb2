package models

import "time"

type Manager struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	CompanyName string    `json:"companyName" db:"company_name"`
	Phone       *string   `json:"phone" db:"phone"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Employee struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Position   *string   `json:"position" db:"position"`
	Department *string   `json:"department" db:"department"`
	Phone      *string   `json:"phone" db:"phone"`
	ManagerID  int       `json:"managerID" db:"manager_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

func (m Manager) Summary() ManagerSummary {
	return ManagerSummary{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		CompanyName: m.CompanyName,
	}
}

func (e Employee) Summary() EmployeeSummary {
	return EmployeeSummary{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Position:   e.Position,
		Department: e.Department,
	}
}
