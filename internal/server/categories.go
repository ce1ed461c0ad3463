package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

type categoryRequest struct {
	Name           string          `json:"name" binding:"required"`
	MaxTransaction decimal.Decimal `json:"max_transaction_amount" binding:"required"`
	AnnualLimit    decimal.Decimal `json:"annual_limit" binding:"required"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit" binding:"required"`
}

func (r *categoryRequest) validate() string {
	if r.MaxTransaction.IsNegative() || r.AnnualLimit.IsNegative() || r.MonthlyLimit.IsNegative() {
		return "limits must not be negative"
	}
	return ""
}

type keywordRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

// ListCategories returns all benefit categories with their keywords
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(nil)
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory adds a new benefit category
func (h *Handlers) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	category := &models.Category{
		ID:             uuid.New().String(),
		Name:           req.Name,
		MaxTransaction: req.MaxTransaction.Round(2),
		AnnualLimit:    req.AnnualLimit.Round(2),
		MonthlyLimit:   req.MonthlyLimit.Round(2),
	}

	if err := h.categories.Create(nil, category); err != nil {
		h.logger.Error("Failed to create category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

// UpdateCategory replaces the limits and name of an existing category
func (h *Handlers) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	category := &models.Category{
		ID:             c.Param("id"),
		Name:           req.Name,
		MaxTransaction: req.MaxTransaction.Round(2),
		AnnualLimit:    req.AnnualLimit.Round(2),
		MonthlyLimit:   req.MonthlyLimit.Round(2),
	}

	if err := h.categories.Update(nil, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		h.logger.Error("Failed to update category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category and its keywords
func (h *Handlers) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(nil, c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		h.logger.Error("Failed to delete category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

// ListKeywords returns the classification keywords of a category
func (h *Handlers) ListKeywords(c *gin.Context) {
	keywords, err := h.categories.ListKeywords(nil, c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list keywords", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keywords"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// AddKeyword attaches a classification keyword to a category
func (h *Handlers) AddKeyword(c *gin.Context) {
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	keyword := &models.Keyword{
		ID:         uuid.New().String(),
		CategoryID: c.Param("id"),
		Keyword:    req.Keyword,
	}

	if err := h.categories.AddKeyword(nil, keyword); err != nil {
		h.logger.Error("Failed to add keyword", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add keyword"})
		return
	}

	c.JSON(http.StatusCreated, keyword)
}

// DeleteKeyword removes a classification keyword
func (h *Handlers) DeleteKeyword(c *gin.Context) {
	if err := h.categories.DeleteKeyword(nil, c.Param("keywordId")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "keyword not found"})
			return
		}
		h.logger.Error("Failed to delete keyword", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete keyword"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "keyword deleted"})
}
