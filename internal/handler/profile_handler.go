package handler

import (
	"errors"
	"net/http"

	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"

	"github.com/go-chi/chi/v5"
)

// ProfileHandler holds the dependencies for the profile pages.
type ProfileHandler struct {
	pages
	posts service.PostServicer
	users service.UserServicer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(ps service.PostServicer, us service.UserServicer, v *view.View, sm session.Manager, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		pages: pages{view: v, log: log, session: sm},
		posts: ps,
		users: us,
	}
}

// profileHandler renders an author's feed. The author sees every own post.
func (h *ProfileHandler) profileHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	number, appErr := pageParam(r)
	if appErr != nil {
		return appErr
	}
	viewer := middleware.GetUserInfo(r.Context()).Principal()
	profile, page, err := h.posts.ProfileFeed(r.Context(), viewer, chi.URLParam(r, "username"), number)
	if err != nil {
		return serviceError(err, "load profile")
	}
	return h.render(w, r, "profile.html", map[string]interface{}{
		"Profile": profile,
		"Page":    page,
		"IsOwner": viewer.Is(profile),
	})
}

// editHandler shows and processes the profile form of the logged-in user.
func (h *ProfileHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	username := chi.URLParam(r, "username")
	actor := middleware.GetUserInfo(r.Context()).Principal()

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		return serviceError(err, "load profile")
	}
	if !actor.Is(user) {
		http.Redirect(w, r, profileURL(username), http.StatusFound)
		return nil
	}

	form := service.ProfileInput{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email}
	if r.Method != http.MethodPost {
		return h.render(w, r, "user.html", map[string]interface{}{"Form": form})
	}

	form = service.ProfileInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
	}
	if _, err := h.users.UpdateProfile(r.Context(), actor, username, form); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, profileURL(username), http.StatusFound)
			return nil
		}
		if ve, ok := service.AsValidation(err); ok {
			return h.render(w, r, "user.html", map[string]interface{}{"Form": form, "Errors": ve.Fields})
		}
		return serviceError(err, "update profile")
	}
	h.flash(r, "Your profile was updated.")
	http.Redirect(w, r, profileURL(username), http.StatusFound)
	return nil
}

// passwordHandler shows and processes the password change form.
func (h *ProfileHandler) passwordHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	username := chi.URLParam(r, "username")
	actor := middleware.GetUserInfo(r.Context()).Principal()

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		return serviceError(err, "load profile")
	}
	if !actor.Is(user) {
		http.Redirect(w, r, profileURL(username), http.StatusFound)
		return nil
	}

	if r.Method != http.MethodPost {
		return h.render(w, r, "password_change.html", nil)
	}

	change := service.PasswordChange{
		OldPassword:  r.PostFormValue("old_password"),
		NewPassword1: r.PostFormValue("new_password1"),
		NewPassword2: r.PostFormValue("new_password2"),
	}
	if err := h.users.ChangePassword(r.Context(), actor, username, change); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			http.Redirect(w, r, profileURL(username), http.StatusFound)
			return nil
		}
		if ve, ok := service.AsValidation(err); ok {
			return h.render(w, r, "password_change.html", map[string]interface{}{"Errors": ve.Fields})
		}
		return serviceError(err, "change password")
	}

	// A new password invalidates the old session token.
	if err := h.session.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to renew session", Code: http.StatusInternalServerError}
	}
	h.flash(r, "Your password was changed.")
	http.Redirect(w, r, profileURL(username), http.StatusFound)
	return nil
}
