package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/currency"
	"github.com/perkflow/benefit-reimbursement/internal/report"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/internal/validation"
	"github.com/perkflow/benefit-reimbursement/internal/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine     *workflow.Engine
	reporter   *report.BalanceReporter
	employees  *repository.EmployeeRepository
	categories *repository.CategoryRepository
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *workflow.Engine,
	reporter *report.BalanceReporter,
	employees *repository.EmployeeRepository,
	categories *repository.CategoryRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:     engine,
		reporter:   reporter,
		employees:  employees,
		categories: categories,
		logger:     logger,
	}
}

// SubmitReimbursement accepts a multipart upload and runs the approval
// pipeline to a terminal status
func (h *Handlers) SubmitReimbursement(c *gin.Context) {
	employeeID := c.PostForm("employee_id")
	if employeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, workflow.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	outcome, err := h.engine.Submit(c.Request.Context(), workflow.SubmitInput{
		EmployeeID:  employeeID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReimbursementResponse(outcome))
}

// GetReimbursement returns request details with invoice and remaining balance
func (h *Handlers) GetReimbursement(c *gin.Context) {
	outcome, err := h.engine.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReimbursementResponse(outcome))
}

// respondError maps pipeline errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	var unsupported *currency.UnsupportedCurrencyError
	var provider *workflow.ProviderError

	switch {
	case errors.Is(err, workflow.ErrEmployeeNotFound),
		errors.Is(err, workflow.ErrRequestNotFound),
		errors.Is(err, validation.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, workflow.ErrFileTooLarge),
		errors.Is(err, workflow.ErrUnsupportedFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": unsupported.Error()})

	case errors.As(err, &provider):
		h.logger.Error("Provider failure surfaced to caller", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": provider.Error()})

	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
