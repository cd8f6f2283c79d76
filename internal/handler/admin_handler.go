package handler

import (
	"net/http"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
)

// AdminHandler serves the administrative CRUD pages. Access is limited to
// the admin role by the route policy.
type AdminHandler struct {
	pages
	catalog service.CatalogServicer
	posts   service.PostServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cs service.CatalogServicer, ps service.PostServicer, v *view.View, sm session.Manager, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		pages:   pages{view: v, log: log, session: sm},
		catalog: cs,
		posts:   ps,
	}
}

func (h *AdminHandler) indexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		return serviceError(err, "load categories")
	}
	locations, err := h.catalog.ListLocations(r.Context())
	if err != nil {
		return serviceError(err, "load locations")
	}
	return h.render(w, r, "admin_index.html", map[string]interface{}{
		"Categories": categories,
		"Locations":  locations,
	})
}

// ---- categories ----

func (h *AdminHandler) categoryFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var id int64
	form := service.CategoryInput{IsPublished: true}
	if r.URL.Path != "/admin/categories/new/" {
		var appErr *middleware.AppError
		if id, appErr = idParam(r, "id"); appErr != nil {
			return appErr
		}
		category, err := h.catalog.GetCategory(r.Context(), id)
		if err != nil {
			return serviceError(err, "load category")
		}
		form = service.CategoryInput{
			Title:       category.Title,
			Description: category.Description,
			Slug:        category.Slug,
			IsPublished: category.IsPublished,
		}
	}

	if r.Method == http.MethodPost {
		form = service.CategoryInput{
			Title:       r.PostFormValue("title"),
			Description: r.PostFormValue("description"),
			Slug:        r.PostFormValue("slug"),
			IsPublished: checked(r, "is_published"),
		}
		var err error
		if id == 0 {
			_, err = h.catalog.CreateCategory(r.Context(), form)
		} else {
			_, err = h.catalog.UpdateCategory(r.Context(), id, form)
		}
		if err == nil {
			h.flash(r, "Category saved.")
			http.Redirect(w, r, "/admin/", http.StatusFound)
			return nil
		}
		ve, ok := service.AsValidation(err)
		if !ok {
			return serviceError(err, "save category")
		}
		return h.render(w, r, "admin_category.html", map[string]interface{}{"ID": id, "Form": form, "Errors": ve.Fields})
	}

	return h.render(w, r, "admin_category.html", map[string]interface{}{"ID": id, "Form": form})
}

func (h *AdminHandler) categoryDeleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		return serviceError(err, "delete category")
	}
	h.flash(r, "Category deleted.")
	http.Redirect(w, r, "/admin/", http.StatusFound)
	return nil
}

// ---- locations ----

func (h *AdminHandler) locationFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var id int64
	form := service.LocationInput{IsPublished: true}
	if r.URL.Path != "/admin/locations/new/" {
		var appErr *middleware.AppError
		if id, appErr = idParam(r, "id"); appErr != nil {
			return appErr
		}
		location, err := h.catalog.GetLocation(r.Context(), id)
		if err != nil {
			return serviceError(err, "load location")
		}
		form = service.LocationInput{Name: location.Name, IsPublished: location.IsPublished}
	}

	if r.Method == http.MethodPost {
		form = service.LocationInput{
			Name:        r.PostFormValue("name"),
			IsPublished: checked(r, "is_published"),
		}
		var err error
		if id == 0 {
			_, err = h.catalog.CreateLocation(r.Context(), form)
		} else {
			_, err = h.catalog.UpdateLocation(r.Context(), id, form)
		}
		if err == nil {
			h.flash(r, "Location saved.")
			http.Redirect(w, r, "/admin/", http.StatusFound)
			return nil
		}
		ve, ok := service.AsValidation(err)
		if !ok {
			return serviceError(err, "save location")
		}
		return h.render(w, r, "admin_location.html", map[string]interface{}{"ID": id, "Form": form, "Errors": ve.Fields})
	}

	return h.render(w, r, "admin_location.html", map[string]interface{}{"ID": id, "Form": form})
}

func (h *AdminHandler) locationDeleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	if err := h.catalog.DeleteLocation(r.Context(), id); err != nil {
		return serviceError(err, "delete location")
	}
	h.flash(r, "Location deleted.")
	http.Redirect(w, r, "/admin/", http.StatusFound)
	return nil
}

// ---- post moderation ----

func (h *AdminHandler) postsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	number, appErr := pageParam(r)
	if appErr != nil {
		return appErr
	}
	page, err := h.posts.ListAllPosts(r.Context(), number)
	if err != nil {
		return serviceError(err, "load posts")
	}
	return h.render(w, r, "admin_posts.html", map[string]interface{}{"Page": page})
}

func (h *AdminHandler) publishHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	if err := h.posts.SetPostPublished(r.Context(), id, checked(r, "is_published")); err != nil {
		return serviceError(err, "moderate post")
	}
	http.Redirect(w, r, "/admin/posts/", http.StatusFound)
	return nil
}
