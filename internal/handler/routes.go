package handler

import (
	"io/fs"
	"net/http"

	"go-blog-app/internal/session"

	appmw "go-blog-app/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes collects everything the router mounts.
type Routes struct {
	Posts    *PostHandler
	Comments *CommentHandler
	Profiles *ProfileHandler
	Auth     *AuthHandler
	Pages    *StaticPageHandler
	Admin    *AdminHandler
	Seo      *SeoHandler

	Session session.Manager
	Authz   func(http.Handler) http.Handler
	Errors  func(appmw.AppHandler) http.Handler
	Metrics *appmw.Metrics
	// MetricsHandler serves /metrics; nil leaves the endpoint out.
	MetricsHandler http.Handler
	Static         fs.FS
	// MediaDir is the directory of uploaded images; empty disables /media/.
	MediaDir string
}

// NewRouter creates and configures a new chi router.
func NewRouter(rt Routes) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if rt.Metrics != nil {
		r.Use(rt.Metrics.Instrument)
	}

	// Assets and metrics bypass sessions and the route policy.
	if rt.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(rt.Static))))
	}
	if rt.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(rt.MediaDir))))
	}
	if rt.MetricsHandler != nil {
		r.Handle("/metrics", rt.MetricsHandler)
	}

	h := rt.Errors
	r.NotFound(h(rt.Pages.notFoundHandler).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(rt.Session.LoadAndSave)
		r.Use(rt.Authz)
		r.Use(appmw.Pagination)

		r.Method(http.MethodGet, "/", h(rt.Posts.indexHandler))
		r.Method(http.MethodGet, "/category/{slug}/", h(rt.Posts.categoryHandler))

		r.Route("/posts", func(r chi.Router) {
			r.Method(http.MethodGet, "/create/", h(rt.Posts.createHandler))
			r.Method(http.MethodPost, "/create/", h(rt.Posts.createHandler))
			r.Method(http.MethodGet, "/{id}/", h(rt.Posts.detailHandler))
			r.Method(http.MethodGet, "/{id}/edit/", h(rt.Posts.editHandler))
			r.Method(http.MethodPost, "/{id}/edit/", h(rt.Posts.editHandler))
			r.Method(http.MethodGet, "/{id}/delete/", h(rt.Posts.deleteHandler))
			r.Method(http.MethodPost, "/{id}/delete/", h(rt.Posts.deleteHandler))
			r.Method(http.MethodPost, "/{id}/comment/", h(rt.Comments.addHandler))
			r.Method(http.MethodGet, "/{id}/edit_comment/{cid}/", h(rt.Comments.editHandler))
			r.Method(http.MethodPost, "/{id}/edit_comment/{cid}/", h(rt.Comments.editHandler))
			r.Method(http.MethodPost, "/{id}/delete_comment/{cid}/", h(rt.Comments.deleteHandler))
		})

		r.Route("/profile/{username}", func(r chi.Router) {
			r.Method(http.MethodGet, "/", h(rt.Profiles.profileHandler))
			r.Method(http.MethodGet, "/edit/", h(rt.Profiles.editHandler))
			r.Method(http.MethodPost, "/edit/", h(rt.Profiles.editHandler))
			r.Method(http.MethodGet, "/edit/password/", h(rt.Profiles.passwordHandler))
			r.Method(http.MethodPost, "/edit/password/", h(rt.Profiles.passwordHandler))
		})

		r.Method(http.MethodGet, "/pages/about/", h(rt.Pages.aboutHandler))
		r.Method(http.MethodGet, "/pages/rules/", h(rt.Pages.rulesHandler))

		// Authentication routes
		r.Method(http.MethodGet, "/auth/login/", h(rt.Auth.loginHandler))
		r.Method(http.MethodPost, "/auth/login/", h(rt.Auth.loginHandler))
		r.Method(http.MethodGet, "/auth/registration/", h(rt.Auth.registrationHandler))
		r.Method(http.MethodPost, "/auth/registration/", h(rt.Auth.registrationHandler))
		r.Get("/auth/logout/", rt.Auth.handleLogout)
		r.Post("/auth/logout/", rt.Auth.handleLogout)
		r.Get("/auth/oidc/login", rt.Auth.handleOIDCLogin)
		r.Get("/auth/oidc/callback", rt.Auth.handleOIDCCallback)

		r.Get("/robots.txt", rt.Seo.robotsHandler)
		r.Get("/sitemap.xml", rt.Seo.sitemapHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Method(http.MethodGet, "/", h(rt.Admin.indexHandler))
			r.Method(http.MethodGet, "/categories/new/", h(rt.Admin.categoryFormHandler))
			r.Method(http.MethodPost, "/categories/new/", h(rt.Admin.categoryFormHandler))
			r.Method(http.MethodGet, "/categories/{id}/", h(rt.Admin.categoryFormHandler))
			r.Method(http.MethodPost, "/categories/{id}/", h(rt.Admin.categoryFormHandler))
			r.Method(http.MethodPost, "/categories/{id}/delete/", h(rt.Admin.categoryDeleteHandler))
			r.Method(http.MethodGet, "/locations/new/", h(rt.Admin.locationFormHandler))
			r.Method(http.MethodPost, "/locations/new/", h(rt.Admin.locationFormHandler))
			r.Method(http.MethodGet, "/locations/{id}/", h(rt.Admin.locationFormHandler))
			r.Method(http.MethodPost, "/locations/{id}/", h(rt.Admin.locationFormHandler))
			r.Method(http.MethodPost, "/locations/{id}/delete/", h(rt.Admin.locationDeleteHandler))
			r.Method(http.MethodGet, "/posts/", h(rt.Admin.postsHandler))
			r.Method(http.MethodPost, "/posts/{id}/publish/", h(rt.Admin.publishHandler))
		})
	})

	return r
}
