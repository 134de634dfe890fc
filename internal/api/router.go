// Package api wires together all HTTP routes for the Lexxi backend.
//
// Route grouping philosophy:
//   - Page routes (/, /login, /trials, /my_trials, /mis_asuntos) are browser
//     navigations. They never 401; the root route inspects the session cookie
//     and redirects to the dashboard or the login page.
//   - API routes under /api/v1 return JSON. Everything except login requires
//     a Bearer token; team-scoped routes additionally resolve the caller's
//     team through the directory and answer 403 when the user has no team.
//   - /api/v1/files/* serves stored documents for the local storage backend's
//     direct-serve URLs. It accepts the session cookie as well as the Bearer
//     header because browsers reach it by redirect.
package api

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/lexxi/lexxi/internal/api/admin"
	"github.com/lexxi/lexxi/internal/api/orgtrials"
	"github.com/lexxi/lexxi/internal/api/publications"
	"github.com/lexxi/lexxi/internal/api/session"
	"github.com/lexxi/lexxi/internal/api/trials"
	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/middleware"
	"github.com/lexxi/lexxi/internal/services"
	"github.com/lexxi/lexxi/internal/storage"

	// Import storage backends to register them
	_ "github.com/lexxi/lexxi/internal/storage/local"
	_ "github.com/lexxi/lexxi/internal/storage/s3"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible
// for calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	flusher      *services.EditFlusher
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops background goroutines and drains pending edit writes. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.flusher != nil {
		bg.flusher.Close()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	trialRepo := repositories.NewTrialRepository(db)
	pubRepo := repositories.NewPublicationRepository(db)

	// Wrap *sql.DB with sqlx for the subscription and directory repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	subRepo := repositories.NewSubscriptionRepository(sqlxDB)
	dirRepo := repositories.NewDirectoryRepository(sqlxDB, cfg.Directory.Schema)
	orgRepo := repositories.NewOrganizationRepository(db)

	// The edit flusher owns all deferred inline-edit writes; it must outlive
	// request handling and is drained on shutdown.
	flusher := services.NewEditFlusher(subRepo, cfg.Editor.Debounce, cfg.Editor.WriteTimeout)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	sessionHandlers := session.NewHandlers(cfg, userRepo)
	trialHandlers := trials.NewHandlers(cfg, trialRepo, pubRepo, subRepo, dirRepo)
	workspaceHandlers := orgtrials.NewHandlers(subRepo, dirRepo, flusher)
	documentHandlers := publications.NewHandlers(pubRepo, storageBackend)
	adminUserHandlers := admin.NewUserHandlers(cfg, userRepo, orgRepo)
	adminOrgHandlers := admin.NewOrganizationHandlers(orgRepo, userRepo)
	adminStatsHandler := admin.NewStatsHandler(sqlxDB)

	// Page routes. Browsers navigate here without an Authorization header;
	// the session cookie decides between the dashboard and the login page.
	pages := router.Group("")
	pages.Use(middleware.OptionalAuthMiddleware(userRepo))
	{
		pages.GET("/", rootRedirectHandler())
		pages.GET("/login", pageHandler("login"))
		pages.GET("/trials", pageHandler("trials"))
		pages.GET("/my_trials", pageHandler("my_trials"))
		pages.GET("/mis_asuntos", pageHandler("my_trials")) // same view, localized route
	}

	// Initialize rate limiters. The memory backend keeps per-instance token
	// buckets; the redis backend shares limits across replicas.
	bg := &BackgroundServices{flusher: flusher}
	var authLimit, generalLimit, uploadLimit gin.HandlerFunc
	switch {
	case !cfg.Security.RateLimiting.Enabled:
		passthrough := func(c *gin.Context) { c.Next() }
		authLimit, generalLimit, uploadLimit = passthrough, passthrough, passthrough
	case cfg.Security.RateLimiting.Backend == "redis":
		rl := cfg.Security.RateLimiting
		limiter := middleware.NewRedisRateLimiter(rl.RedisAddr, rl.RedisPassword, rl.RequestsPerMinute, rl.Burst)
		shared := middleware.RedisRateLimitMiddleware(limiter)
		authLimit, generalLimit, uploadLimit = shared, shared, shared
	default:
		authRL := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
		generalRL := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
		uploadRL := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())
		bg.rateLimiters = []*middleware.RateLimiter{authRL, generalRL, uploadRL}
		authLimit = middleware.RateLimitMiddleware(authRL)
		generalLimit = middleware.RateLimitMiddleware(generalRL)
		uploadLimit = middleware.RateLimitMiddleware(uploadRL)
	}

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but rate limited
		// tighter than the rest of the API to slow credential stuffing)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(authLimit)
		{
			authGroup.POST("/login", sessionHandlers.LoginHandler())
			authGroup.POST("/logout", sessionHandlers.LogoutHandler())
		}

		// Authenticated endpoints
		authenticated := apiV1.Group("")
		authenticated.Use(generalLimit)
		authenticated.Use(middleware.AuthMiddleware(userRepo))
		{
			authenticated.GET("/auth/me", sessionHandlers.MeHandler())
			authenticated.POST("/auth/refresh", sessionHandlers.RefreshHandler())

			// Registry search facets
			authenticated.GET("/states", trialHandlers.ListStatesHandler())
			authenticated.GET("/states/:id/courthouses", trialHandlers.ListCourthousesHandler())

			// Shared trial registry
			authenticated.GET("/trials", trialHandlers.SearchHandler())
			authenticated.GET("/trials/:id", trialHandlers.DetailHandler())
			authenticated.GET("/trials/:id/publications", trialHandlers.PublicationsHandler())
			authenticated.GET("/trials/:id/subscription", trialHandlers.SubscriptionStatusHandler())
			authenticated.POST("/trials/:id/subscribe", trialHandlers.SubscribeHandler())

			// Team workspace
			authenticated.GET("/org-trials", workspaceHandlers.ListHandler())
			authenticated.GET("/org-trials/:id", workspaceHandlers.GetHandler())
			authenticated.PATCH("/org-trials/:id", workspaceHandlers.EditHandler())
			authenticated.DELETE("/org-trials/:id", workspaceHandlers.UnsubscribeHandler())

			// Publication documents
			authenticated.POST("/publications/:id/document",
				uploadLimit,
				documentHandlers.UploadDocumentHandler())
			authenticated.GET("/publications/:id/document", documentHandlers.DownloadDocumentHandler())

			// Admin surface. Assigning a user to a team is what provisions
			// their directory entry; until then team-scoped routes answer 403.
			adminGroup := authenticated.Group("/admin")
			adminGroup.Use(middleware.RequireRole("admin"))
			{
				adminGroup.GET("/users", adminUserHandlers.ListUsersHandler())
				adminGroup.POST("/users", adminUserHandlers.CreateUserHandler())
				adminGroup.GET("/users/search", adminUserHandlers.SearchUsersHandler())
				adminGroup.GET("/users/:id", adminUserHandlers.GetUserHandler())
				adminGroup.PUT("/users/:id", adminUserHandlers.UpdateUserHandler())
				adminGroup.DELETE("/users/:id", adminUserHandlers.DeleteUserHandler())

				adminGroup.GET("/organizations", adminOrgHandlers.ListOrganizationsHandler())
				adminGroup.POST("/organizations", adminOrgHandlers.CreateOrganizationHandler())
				adminGroup.GET("/organizations/:id", adminOrgHandlers.GetOrganizationHandler())
				adminGroup.PUT("/organizations/:id", adminOrgHandlers.UpdateOrganizationHandler())
				adminGroup.DELETE("/organizations/:id", adminOrgHandlers.DeleteOrganizationHandler())
				adminGroup.POST("/organizations/:id/teams", adminOrgHandlers.CreateTeamHandler())

				adminGroup.PUT("/teams/:id", adminOrgHandlers.UpdateTeamHandler())
				adminGroup.DELETE("/teams/:id", adminOrgHandlers.DeleteTeamHandler())
				adminGroup.GET("/teams/:id/members", adminOrgHandlers.ListTeamMembersHandler())
				adminGroup.POST("/teams/:id/members", adminOrgHandlers.AddTeamMemberHandler())
				adminGroup.DELETE("/teams/:id/members/:user_id", adminOrgHandlers.RemoveTeamMemberHandler())

				adminGroup.GET("/stats/dashboard", adminStatsHandler.GetDashboardStats)
			}
		}

		// Document file serving for the local backend's direct-serve URLs.
		// Browsers arrive here by redirect carrying only the session cookie,
		// so cookie auth must be accepted alongside the Bearer header.
		filesGroup := apiV1.Group("/files")
		filesGroup.Use(generalLimit)
		filesGroup.Use(middleware.OptionalAuthMiddleware(userRepo))
		filesGroup.Use(requireUser())
		{
			filesGroup.GET("/*filepath", publications.ServeFileHandler(storageBackend))
		}
	}

	return router, bg
}

// requireUser aborts with 401 unless the optional-auth middleware resolved a
// user from either credential source.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("user"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Not authenticated",
			})
			return
		}
		c.Next()
	}
}

// rootRedirectHandler sends signed-in users to the dashboard and everyone
// else to the login page.
func rootRedirectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("user"); ok {
			c.Redirect(http.StatusFound, "/trials")
			return
		}
		c.Redirect(http.StatusFound, "/login")
	}
}

// pageHandler serves a minimal page shell. The SPA owns the real views; this
// route exists so deep links and the root redirect resolve server-side.
func pageHandler(name string) gin.HandlerFunc {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
	<head><meta charset="utf-8"><title>Lexxi</title></head>
	<body><div id="app" data-page=%q></div></body>
</html>`, name)
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and storage connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when document traffic would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Probe storage with a known-absent sentinel path. Exists() exercises
		// authentication and network connectivity without creating any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
