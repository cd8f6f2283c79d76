package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-blog-app/internal/auth"
	"go-blog-app/internal/cache"
	"go-blog-app/internal/config"
	"go-blog-app/internal/data"
	"go-blog-app/internal/handler"
	"go-blog-app/internal/logger"
	"go-blog-app/internal/media"
	"go-blog-app/internal/middleware"
	"go-blog-app/internal/service"
	"go-blog-app/internal/view"
	"go-blog-app/web"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	sessionManager.Store = sessionStore(cfg.DB.Driver, db)
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	var authenticator *auth.Authenticator
	if cfg.OIDC.Enabled() {
		authenticator, err = auth.NewAuthenticator(context.Background(), &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
	}
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, data.NormalizeDSN(cfg.DB.Driver, cfg.DB.DSN), "auth_model.conf")
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	log.Info("View templates initialized.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	htmlCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer htmlCache.Close()
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go htmlCache.PurgeEvery(purgeCtx, htmlCache.TTL(), log)
	log.Info("Cache initialized.")

	// --- Media Storage ---
	images, err := media.NewStore(cfg.Media.Dir, cfg.Media.MaxUploadSize)
	if err != nil {
		log.Fatal(err, "Failed to initialize media storage")
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	userRepository := data.NewUserRepository(db)
	postRepository := data.NewSQLPostRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	locationRepository := data.NewLocationRepository(db)
	commentRepository := data.NewCommentRepository(db)

	renderer := service.NewRenderer(htmlCache, log)
	userService := service.NewUserService(userRepository)
	pendingAdmins := auth.GrantAdmins(context.Background(), enforcer, cfg.Admin.Usernames, userRepository, log)
	userService.HoldUsernames(pendingAdmins)
	postService := service.NewPostService(postRepository, categoryRepository, locationRepository, userRepository,
		renderer, images, cfg.Blog.PageSize, log)
	commentService := service.NewCommentService(commentRepository, postRepository)
	catalogService := service.NewCatalogService(categoryRepository, locationRepository)

	postHandler := handler.NewPostHandler(postService, commentService, images, metrics, viewService, sessionManager, log)
	staticFS, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatal(err, "Failed to open static assets")
	}

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(handler.Routes{
		Posts:          postHandler,
		Comments:       handler.NewCommentHandler(commentService, postHandler, metrics, viewService, sessionManager, log),
		Profiles:       handler.NewProfileHandler(postService, userService, viewService, sessionManager, log),
		Auth:           handler.NewAuthHandler(authenticator, sessionManager, enforcer, userService, metrics, viewService, log),
		Pages:          handler.NewStaticPageHandler(viewService, sessionManager, log),
		Admin:          handler.NewAdminHandler(catalogService, postService, viewService, sessionManager, log),
		Seo:            handler.NewSeoHandler(postService, cfg.Server.BaseURL, log),
		Session:        sessionManager,
		Authz:          middleware.Authorizer(enforcer, sessionManager, userService, log),
		Errors:         middleware.Error(log, viewService),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Static:         staticFS,
		MediaDir:       images.Dir(),
	})

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}

// sessionStore picks the scs store matching the database driver. Both
// stores use the sessions table created by the migrations.
func sessionStore(driver string, db *sqlx.DB) scs.Store {
	if driver == "mysql" {
		return mysqlstore.New(db.DB)
	}
	return sqlite3store.New(db.DB)
}
