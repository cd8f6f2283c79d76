package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go-blog-app/internal/data"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

const maxSlugLength = 64

// CategoryInput carries the admin category form.
type CategoryInput struct {
	Title       string
	Description string
	Slug        string
	IsPublished bool
}

// LocationInput carries the admin location form.
type LocationInput struct {
	Name        string
	IsPublished bool
}

// CatalogServicer defines the administrative operations on categories and
// locations.
type CatalogServicer interface {
	ListCategories(ctx context.Context) ([]*data.Category, error)
	GetCategory(ctx context.Context, id int64) (*data.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*data.Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*data.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListLocations(ctx context.Context) ([]*data.Location, error)
	GetLocation(ctx context.Context, id int64) (*data.Location, error)
	CreateLocation(ctx context.Context, in LocationInput) (*data.Location, error)
	UpdateLocation(ctx context.Context, id int64, in LocationInput) (*data.Location, error)
	DeleteLocation(ctx context.Context, id int64) error
}

// CatalogService manages categories and locations. Access is restricted to
// administrators by the route policy.
type CatalogService struct {
	categories CategoryRepository
	locations  LocationRepository
	now        func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(categories CategoryRepository, locations LocationRepository) *CatalogService {
	return &CatalogService{categories: categories, locations: locations, now: time.Now}
}

// ListCategories returns every category, published or not.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*data.Category, error) {
	return s.categories.List(ctx, false)
}

// GetCategory returns a category by ID or ErrNotFound.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*data.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	return category, notFound(err)
}

// validateCategory checks the form and that the slug is not used by another
// category.
func (s *CatalogService) validateCategory(ctx context.Context, id int64, in CategoryInput) (CategoryInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.TrimSpace(in.Slug)

	errs := fieldErrors{}
	switch {
	case in.Title == "":
		errs.add("title", "This field is required.")
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		errs.add("title", "Ensure this value has at most 256 characters.")
	}
	if in.Description == "" {
		errs.add("description", "This field is required.")
	}
	switch {
	case in.Slug == "":
		errs.add("slug", "This field is required.")
	case utf8.RuneCountInString(in.Slug) > maxSlugLength:
		errs.add("slug", "Ensure this value has at most 64 characters.")
	case !slugPattern.MatchString(in.Slug):
		errs.add("slug", "Enter a valid slug consisting of Latin letters, numbers, underscores or hyphens.")
	default:
		existing, err := s.categories.GetBySlug(ctx, in.Slug)
		switch {
		case err == nil && existing.ID != id:
			errs.add("slug", "Category with this slug already exists.")
		case err != nil && !errors.Is(err, data.ErrNotFound):
			return in, err
		}
	}
	return in, errs.err()
}

// CreateCategory validates the form and stores a new category. Form errors
// are returned as a *ValidationError.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*data.Category, error) {
	in, err := s.validateCategory(ctx, 0, in)
	if err != nil {
		return nil, err
	}
	category := &data.Category{
		Title:       in.Title,
		Description: in.Description,
		Slug:        in.Slug,
		IsPublished: in.IsPublished,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory replaces the fields of an existing category. A category
// may keep its own slug.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*data.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	in, err = s.validateCategory(ctx, id, in)
	if err != nil {
		return nil, err
	}
	category.Title = in.Title
	category.Description = in.Description
	category.Slug = in.Slug
	category.IsPublished = in.IsPublished
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, notFound(err)
	}
	return category, nil
}

// DeleteCategory removes a category. Its posts stay, without a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return notFound(s.categories.Delete(ctx, id))
}

// ListLocations returns every location, published or not.
func (s *CatalogService) ListLocations(ctx context.Context) ([]*data.Location, error) {
	return s.locations.List(ctx, false)
}

// GetLocation returns a location by ID or ErrNotFound.
func (s *CatalogService) GetLocation(ctx context.Context, id int64) (*data.Location, error) {
	location, err := s.locations.GetByID(ctx, id)
	return location, notFound(err)
}

func validateLocation(in LocationInput) (LocationInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	errs := fieldErrors{}
	switch {
	case in.Name == "":
		errs.add("name", "This field is required.")
	case utf8.RuneCountInString(in.Name) > maxTitleLength:
		errs.add("name", "Ensure this value has at most 256 characters.")
	}
	return in, errs.err()
}

// CreateLocation validates the form and stores a new location.
func (s *CatalogService) CreateLocation(ctx context.Context, in LocationInput) (*data.Location, error) {
	in, err := validateLocation(in)
	if err != nil {
		return nil, err
	}
	location := &data.Location{
		Name:        in.Name,
		IsPublished: in.IsPublished,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.locations.Create(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

// UpdateLocation replaces the name and publication flag of a location.
func (s *CatalogService) UpdateLocation(ctx context.Context, id int64, in LocationInput) (*data.Location, error) {
	location, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	in, err = validateLocation(in)
	if err != nil {
		return nil, err
	}
	location.Name = in.Name
	location.IsPublished = in.IsPublished
	if err := s.locations.Update(ctx, location); err != nil {
		return nil, notFound(err)
	}
	return location, nil
}

// DeleteLocation removes a location. Its posts stay, without a location.
func (s *CatalogService) DeleteLocation(ctx context.Context, id int64) error {
	return notFound(s.locations.Delete(ctx, id))
}
