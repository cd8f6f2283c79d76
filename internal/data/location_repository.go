package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LocationRepository handles database operations for locations.
type LocationRepository struct {
	DB *sqlx.DB
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{DB: db}
}

// GetByID finds a location by its ID.
func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*Location, error) {
	var location Location
	err := r.DB.GetContext(ctx, &location, "SELECT id, name, is_published, created_at FROM locations WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get location by id: %w", err)
	}
	return &location, nil
}

// List retrieves locations ordered by name.
func (r *LocationRepository) List(ctx context.Context, onlyPublished bool) ([]*Location, error) {
	query := "SELECT id, name, is_published, created_at FROM locations"
	if onlyPublished {
		query += " WHERE is_published = TRUE"
	}
	query += " ORDER BY name"

	var locations []*Location
	if err := r.DB.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// Create inserts a new location and returns its ID.
func (r *LocationRepository) Create(ctx context.Context, location *Location) (int64, error) {
	query := `INSERT INTO locations (name, is_published, created_at) VALUES (:name, :is_published, :created_at)`
	res, err := r.DB.NamedExecContext(ctx, query, location)
	if err != nil {
		return 0, fmt.Errorf("failed to create location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	location.ID = id
	return id, nil
}

// Update saves the editable fields of a location.
func (r *LocationRepository) Update(ctx context.Context, location *Location) error {
	res, err := r.DB.NamedExecContext(ctx, `UPDATE locations SET name = :name, is_published = :is_published WHERE id = :id`, location)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return expectAffected(res, "location", location.ID)
}

// Delete removes a location; posts keep existing with a NULL location.
func (r *LocationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM locations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return expectAffected(res, "location", id)
}
