package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go-blog-app/internal/data"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/service"
	"go-blog-app/internal/session"

	"github.com/casbin/casbin/v2"
)

// LoginPath is where unauthenticated requests for protected routes are sent.
const LoginPath = "/auth/login/"

// UserLookup resolves the account stored in the session.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
}

// Authorizer creates a new middleware for authorization.
// It resolves the session account, stores it in the request context and
// checks the route against the casbin policy. Anonymous visitors denied by
// the policy are redirected to the login page; logged-in users get 403.
func Authorizer(e casbin.IEnforcer, sm session.Manager, users UserLookup, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &UserInfo{}
			if id := sm.GetInt64(r.Context(), session.UserIDKey); id != 0 {
				user, err := users.GetByID(r.Context(), id)
				switch {
				case err == nil:
					info.ID = user.ID
					info.Username = user.Username
				case errors.Is(err, service.ErrNotFound), errors.Is(err, data.ErrNotFound):
					// The account was deleted; drop the stale session.
					sm.Remove(r.Context(), session.UserIDKey)
				default:
					log.Error(err, "Failed to load session user")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}

			subject := info.Subject()
			if info.IsAuthenticated() {
				isAdmin, err := e.Enforce(subject, "/admin/", "GET")
				if err != nil {
					log.Error(err, "Authorization error")
					http.Error(w, "Authorization error", http.StatusInternalServerError)
					return
				}
				info.IsAdmin = isAdmin
			}
			r = r.WithContext(SetUserInfo(r.Context(), info))

			allowed, err := e.Enforce(subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization error")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				if !info.IsAuthenticated() {
					http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
					return
				}
				log.With(map[string]interface{}{
					"subject": subject,
					"method":  r.Method,
					"path":    r.URL.Path,
				}).Warn("Request forbidden by policy")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
