package handler

import (
	"net/http"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"
)

// StaticPageHandler renders the informational pages.
type StaticPageHandler struct {
	pages
}

// NewStaticPageHandler creates a new StaticPageHandler.
func NewStaticPageHandler(v *view.View, sm session.Manager, log logger.Logger) *StaticPageHandler {
	return &StaticPageHandler{pages: pages{view: v, log: log, session: sm}}
}

func (h *StaticPageHandler) aboutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "about.html", nil)
}

func (h *StaticPageHandler) rulesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "rules.html", nil)
}

// notFoundHandler renders the 404 page for unmatched routes.
func (h *StaticPageHandler) notFoundHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return notFound(nil)
}
