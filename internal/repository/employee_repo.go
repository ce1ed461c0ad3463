package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// EmployeeRepository handles employee database operations
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new employee
func (r *EmployeeRepository) Create(tx *sql.Tx, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}

	query := `INSERT INTO employees (id, name, employee_code) VALUES (?, ?, ?)`

	if _, err := pick(r.db, tx).Exec(query, employee.ID, employee.Name, employee.EmployeeCode); err != nil {
		r.logger.Error("Failed to create employee", zap.String("employee_code", employee.EmployeeCode), zap.Error(err))
		return fmt.Errorf("failed to create employee: %w", err)
	}

	return nil
}

// GetByID retrieves an employee, returning nil when not found
func (r *EmployeeRepository) GetByID(tx *sql.Tx, id string) (*models.Employee, error) {
	query := `
		SELECT id, name, employee_code, created_at, updated_at
		FROM employees
		WHERE id = ?
	`

	var e models.Employee
	err := pick(r.db, tx).QueryRow(query, id).Scan(&e.ID, &e.Name, &e.EmployeeCode, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &e, nil
}

// List returns all employees ordered by name
func (r *EmployeeRepository) List(tx *sql.Tx) ([]*models.Employee, error) {
	query := `
		SELECT id, name, employee_code, created_at, updated_at
		FROM employees
		ORDER BY name
	`

	rows, err := pick(r.db, tx).Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.EmployeeCode, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, &e)
	}

	return employees, rows.Err()
}
