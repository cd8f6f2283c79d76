package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	DB *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

const categoryColumns = `id, title, description, slug, is_published, created_at`

// GetBySlug finds a category by its URL slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	err := r.DB.GetContext(ctx, &category, "SELECT "+categoryColumns+" FROM categories WHERE slug = ?", slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return &category, nil
}

// GetByID finds a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	err := r.DB.GetContext(ctx, &category, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// List retrieves categories ordered by title. When onlyPublished is set,
// unpublished categories are left out.
func (r *CategoryRepository) List(ctx context.Context, onlyPublished bool) ([]*Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	if onlyPublished {
		query += " WHERE is_published = TRUE"
	}
	query += " ORDER BY title"

	var categories []*Category
	if err := r.DB.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create inserts a new category and returns its ID.
func (r *CategoryRepository) Create(ctx context.Context, category *Category) (int64, error) {
	query := `INSERT INTO categories (title, description, slug, is_published, created_at)
		VALUES (:title, :description, :slug, :is_published, :created_at)`
	res, err := r.DB.NamedExecContext(ctx, query, category)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	category.ID = id
	return id, nil
}

// Update saves the editable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *Category) error {
	query := `UPDATE categories SET title = :title, description = :description, slug = :slug,
		is_published = :is_published WHERE id = :id`
	res, err := r.DB.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return expectAffected(res, "category", category.ID)
}

// Delete removes a category. Posts referencing it keep existing with a NULL
// category.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectAffected(res, "category", id)
}

// expectAffected turns a zero-row UPDATE or DELETE into ErrNotFound.
func expectAffected(res sql.Result, entity string, id int64) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}
