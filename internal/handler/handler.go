package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"

	"github.com/go-chi/chi/v5"
)

// pages renders templates with the data every page needs: the current
// user and a pending flash message.
type pages struct {
	view    *view.View
	log     logger.Logger
	session session.Manager
}

func (p *pages) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	return p.renderStatus(w, r, http.StatusOK, name, data)
}

func (p *pages) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) *middleware.AppError {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["User"] = middleware.GetUserInfo(r.Context())
	if p.session != nil {
		data["Flash"] = p.session.PopString(r.Context(), session.FlashKey)
	}

	buf := new(bytes.Buffer)
	if err := p.view.Render(buf, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render " + name, Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
	return nil
}

func (p *pages) flash(r *http.Request, msg string) {
	if p.session != nil {
		p.session.Put(r.Context(), session.FlashKey, msg)
	}
}

// serviceError maps service errors to error pages. Forbidden mutations are
// handled by the callers, which redirect instead.
func serviceError(err error, what string) *middleware.AppError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
	case errors.Is(err, service.ErrForbidden):
		return &middleware.AppError{Error: err, Message: "Forbidden", Code: http.StatusForbidden}
	}
	return &middleware.AppError{Error: err, Message: "Failed to " + what, Code: http.StatusInternalServerError}
}

func notFound(err error) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
}

// idParam parses a numeric URL parameter. Malformed IDs are not found.
func idParam(r *http.Request, name string) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, notFound(fmt.Errorf("invalid %s %q", name, chi.URLParam(r, name)))
	}
	return id, nil
}

// pageParam returns the requested listing page. Zero marks a malformed value.
func pageParam(r *http.Request) (int, *middleware.AppError) {
	page := middleware.PageNumber(r.Context())
	if page < 1 {
		return 0, notFound(fmt.Errorf("invalid page %q", r.URL.Query().Get("page")))
	}
	return page, nil
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func checked(r *http.Request, name string) bool {
	switch r.PostFormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}
