package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/models"
)

// CategoryRepository handles benefit category and keyword operations
type CategoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new category
func (r *CategoryRepository) Create(tx *sql.Tx, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	query := `
		INSERT INTO benefit_categories (id, name, max_transaction_cents, annual_limit_cents, monthly_limit_cents)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := pick(r.db, tx).Exec(query,
		category.ID,
		category.Name,
		models.CentsFromAmount(category.MaxTransaction),
		models.CentsFromAmount(category.AnnualLimit),
		models.CentsFromAmount(category.MonthlyLimit),
	)
	if err != nil {
		r.logger.Error("Failed to create category", zap.String("name", category.Name), zap.Error(err))
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update overwrites the category's name and limits
func (r *CategoryRepository) Update(tx *sql.Tx, category *models.Category) error {
	query := `
		UPDATE benefit_categories
		SET name = ?, max_transaction_cents = ?, annual_limit_cents = ?, monthly_limit_cents = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := pick(r.db, tx).Exec(query,
		category.Name,
		models.CentsFromAmount(category.MaxTransaction),
		models.CentsFromAmount(category.AnnualLimit),
		models.CentsFromAmount(category.MonthlyLimit),
		category.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update category", zap.String("id", category.ID), zap.Error(err))
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a category; keywords cascade
func (r *CategoryRepository) Delete(tx *sql.Tx, id string) error {
	result, err := pick(r.db, tx).Exec(`DELETE FROM benefit_categories WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete category", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	var maxTx, annual, monthly int64
	if err := row.Scan(&c.ID, &c.Name, &maxTx, &annual, &monthly, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.MaxTransaction = models.AmountFromCents(maxTx)
	c.AnnualLimit = models.AmountFromCents(annual)
	c.MonthlyLimit = models.AmountFromCents(monthly)
	return &c, nil
}

// GetByID retrieves a category with its keywords, nil when not found
func (r *CategoryRepository) GetByID(tx *sql.Tx, id string) (*models.Category, error) {
	query := `
		SELECT id, name, max_transaction_cents, annual_limit_cents, monthly_limit_cents, created_at, updated_at
		FROM benefit_categories
		WHERE id = ?
	`

	category, err := scanCategory(pick(r.db, tx).QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	keywords, err := r.ListKeywords(tx, id)
	if err != nil {
		return nil, err
	}
	category.Keywords = keywords

	return category, nil
}

// GetByName retrieves a category by its unique name, nil when not found
func (r *CategoryRepository) GetByName(tx *sql.Tx, name string) (*models.Category, error) {
	query := `
		SELECT id, name, max_transaction_cents, annual_limit_cents, monthly_limit_cents, created_at, updated_at
		FROM benefit_categories
		WHERE name = ?
	`

	category, err := scanCategory(pick(r.db, tx).QueryRow(query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}

	return category, nil
}

// List returns all categories with their keywords attached
func (r *CategoryRepository) List(tx *sql.Tx) ([]*models.Category, error) {
	query := `
		SELECT id, name, max_transaction_cents, annual_limit_cents, monthly_limit_cents, created_at, updated_at
		FROM benefit_categories
		ORDER BY name
	`

	rows, err := pick(r.db, tx).Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, category := range categories {
		keywords, err := r.ListKeywords(tx, category.ID)
		if err != nil {
			return nil, err
		}
		category.Keywords = keywords
	}

	return categories, nil
}

// AddKeyword attaches a classification hint to a category
func (r *CategoryRepository) AddKeyword(tx *sql.Tx, keyword *models.Keyword) error {
	if keyword.ID == "" {
		keyword.ID = uuid.NewString()
	}

	query := `INSERT INTO category_keywords (id, category_id, keyword) VALUES (?, ?, ?)`

	if _, err := pick(r.db, tx).Exec(query, keyword.ID, keyword.CategoryID, keyword.Keyword); err != nil {
		r.logger.Error("Failed to add keyword",
			zap.String("category_id", keyword.CategoryID),
			zap.String("keyword", keyword.Keyword),
			zap.Error(err))
		return fmt.Errorf("failed to add keyword: %w", err)
	}

	return nil
}

// ListKeywords returns all keywords for a category
func (r *CategoryRepository) ListKeywords(tx *sql.Tx, categoryID string) ([]models.Keyword, error) {
	query := `
		SELECT id, category_id, keyword, created_at
		FROM category_keywords
		WHERE category_id = ?
		ORDER BY keyword
	`

	rows, err := pick(r.db, tx).Query(query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.CategoryID, &k.Keyword, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, k)
	}

	return keywords, rows.Err()
}

// DeleteKeyword removes a single keyword
func (r *CategoryRepository) DeleteKeyword(tx *sql.Tx, id string) error {
	result, err := pick(r.db, tx).Exec(`DELETE FROM category_keywords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
