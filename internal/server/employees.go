package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

type createEmployeeRequest struct {
	Name         string `json:"name" binding:"required"`
	EmployeeCode string `json:"employee_code" binding:"required"`
}

// ListEmployees returns all registered employees
func (h *Handlers) ListEmployees(c *gin.Context) {
	employees, err := h.employees.List(nil)
	if err != nil {
		h.logger.Error("Failed to list employees", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list employees"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// CreateEmployee registers a new employee
func (h *Handlers) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employee := &models.Employee{
		ID:           uuid.New().String(),
		Name:         req.Name,
		EmployeeCode: req.EmployeeCode,
	}

	if err := h.employees.Create(nil, employee); err != nil {
		h.logger.Error("Failed to create employee", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create employee"})
		return
	}

	c.JSON(http.StatusCreated, employee)
}

// GetEmployee returns a single employee by ID
func (h *Handlers) GetEmployee(c *gin.Context) {
	employee, err := h.employees.GetByID(nil, c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to load employee", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load employee"})
		return
	}
	if employee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
		return
	}

	c.JSON(http.StatusOK, employee)
}
