package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"go-blog-app/internal/auth"
	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"
	"go-blog-app/internal/view"

	"github.com/casbin/casbin/v2"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	pages
	auth     *auth.Authenticator
	enforcer casbin.IEnforcer
	users    service.UserServicer
	metrics  *middleware.Metrics
}

// NewAuthHandler creates a new AuthHandler. a is nil when no OIDC provider
// is configured.
func NewAuthHandler(a *auth.Authenticator, sm session.Manager, e casbin.IEnforcer, us service.UserServicer,
	m *middleware.Metrics, v *view.View, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		pages:    pages{view: v, log: log, session: sm},
		auth:     a,
		enforcer: e,
		users:    us,
		metrics:  m,
	}
}

// grantAuthor makes sure the account holds the author role.
func (h *AuthHandler) grantAuthor(username string) error {
	if h.enforcer == nil {
		return nil
	}
	_, err := h.enforcer.AddRoleForUser(username, auth.RoleAuthor)
	return err
}

// startSession logs the user in on a fresh session token.
func (h *AuthHandler) startSession(r *http.Request, user *data.User) error {
	if err := h.grantAuthor(user.Username); err != nil {
		return err
	}
	if err := h.session.RenewToken(r.Context()); err != nil {
		return err
	}
	h.session.Put(r.Context(), session.UserIDKey, user.ID)
	return nil
}

func (h *AuthHandler) countLogin(method, outcome string) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(method, outcome).Inc()
	}
}

// loginHandler shows and processes the username/password login form.
func (h *AuthHandler) loginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	next := safeNext(r.FormValue("next"))
	page := map[string]interface{}{
		"Next":         next,
		"OIDCEnabled":  h.auth != nil,
		"Username":     "",
		"InvalidLogin": false,
	}
	if r.Method != http.MethodPost {
		return h.render(w, r, "login.html", page)
	}

	username := r.PostFormValue("username")
	user, err := h.users.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.countLogin("password", "failure")
		page["Username"] = username
		page["InvalidLogin"] = true
		return h.render(w, r, "login.html", page)
	}
	if err != nil {
		return serviceError(err, "log in")
	}

	if err := h.startSession(r, user); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	h.countLogin("password", "success")
	h.log.With(map[string]interface{}{"user": user.Username}).Info("User logged in")

	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusFound)
	return nil
}

// registrationHandler shows and processes the sign-up form.
func (h *AuthHandler) registrationHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if r.Method != http.MethodPost {
		return h.render(w, r, "registration.html", map[string]interface{}{"Form": service.Registration{}})
	}

	form := service.Registration{
		Username:  r.PostFormValue("username"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
	user, err := h.users.Register(r.Context(), form)
	if err != nil {
		if ve, ok := service.AsValidation(err); ok {
			form.Password1, form.Password2 = "", ""
			return h.render(w, r, "registration.html", map[string]interface{}{"Form": form, "Errors": ve.Fields})
		}
		return serviceError(err, "register")
	}
	if err := h.grantAuthor(user.Username); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to assign role", Code: http.StatusInternalServerError}
	}

	h.log.With(map[string]interface{}{"user": user.Username}).Info("User registered")
	h.flash(r, "Registration complete. You can now log in.")
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
	return nil
}

// handleLogout destroys the session and redirects to the home page.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Destroy(r.Context()); err != nil {
		http.Error(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleOIDCLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.NotFound(w, r)
		return
	}
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleOIDCCallback is the redirect URL for the OIDC provider. It verifies
// the ID token and logs in the matching local account, creating it on first
// login.
func (h *AuthHandler) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.NotFound(w, r)
		return
	}
	// Verify the state parameter to prevent CSRF attacks.
	stateCookie, err := r.Cookie("state")
	if err != nil {
		http.Error(w, "state cookie not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "state", Path: "/", MaxAge: -1})

	claims, err := h.auth.ExchangeClaims(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.countLogin("oidc", "failure")
		h.log.Error(err, "OIDC code exchange failed")
		http.Error(w, "Failed to verify login", http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindOrCreateExternal(r.Context(), service.ExternalIdentity{
		Issuer:            claims.Issuer,
		Subject:           claims.Subject,
		PreferredUsername: claims.PreferredUsername,
		Email:             claims.Email,
		FirstName:         claims.GivenName,
		LastName:          claims.FamilyName,
	})
	if err != nil {
		h.countLogin("oidc", "failure")
		h.log.Error(err, "Failed to map external identity")
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	if err := h.startSession(r, user); err != nil {
		h.log.Error(err, "Failed to start session")
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	h.countLogin("oidc", "success")

	// Redirect user to the home page after successful login.
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
