package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetBalances returns per-category balance summaries for an employee.
// Defaults to the current year and month when not specified.
func (h *Handlers) GetBalances(c *gin.Context) {
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

	year, month, ok := h.balancePeriod(c)
	if !ok {
		return
	}

	summaries, err := h.reporter.Summaries(employee.ID, year, month)
	if err != nil {
		h.logger.Error("Failed to build balance summaries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build balance summaries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"employee_id": employee.ID,
		"year":        year,
		"month":       month,
		"balances":    summaries,
	})
}

// ExportBalances streams the balance summaries as an xlsx attachment
func (h *Handlers) ExportBalances(c *gin.Context) {
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

	year, month, ok := h.balancePeriod(c)
	if !ok {
		return
	}

	summaries, err := h.reporter.Summaries(employee.ID, year, month)
	if err != nil {
		h.logger.Error("Failed to build balance summaries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build balance summaries"})
		return
	}

	data, err := h.reporter.ExportXLSX(employee, summaries)
	if err != nil {
		h.logger.Error("Failed to export balances", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export balances"})
		return
	}

	filename := fmt.Sprintf("balances-%s-%d-%02d.xlsx", employee.EmployeeCode, year, month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handlers) balancePeriod(c *gin.Context) (int, int, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 2000 || parsed > 2200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return 0, 0, false
		}
		year = parsed
	}
	if v := c.Query("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
			return 0, 0, false
		}
		month = parsed
	}

	return year, month, true
}
