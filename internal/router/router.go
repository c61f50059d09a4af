package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/handler"
	"github.com/stemsi/student-records/internal/middleware"
	"github.com/stemsi/student-records/internal/response"
	"github.com/stemsi/student-records/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work started by middlewares.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request IDs first so the access log and every envelope carry them.
	router.Use(response.RequestIDMiddleware(), response.AccessLog(log))

	router.Use(middleware.Brotli(middleware.CompressionConfig{
		MinLength: middleware.DefaultCompression.MinLength,
		SkipPaths: []string{"/api/v1/students/export"},
	}))

	router.GET("/health", handlers.System.Health)

	requireAuth := []gin.HandlerFunc{
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService, log),
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMinute, time.Minute)
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/signup", authLimiter.Middleware(), handlers.Auth.Signup)

		auth.POST("/logout", append(requireAuth, handlers.Auth.Logout)...)
		auth.GET("/me", append(requireAuth, handlers.Auth.Me)...)
	}

	api := router.Group("/api/v1")
	api.Use(requireAuth...)

	// ─── 2. Users ──────────────────────────────────────────────────────
	api.GET("/profiles/:id", handlers.User.GetProfile)
	api.GET("/user-roles/:user_id", handlers.User.GetRole)

	// ─── 3. Students (read: any user, write: admin) ────────────────────
	students := api.Group("/students")
	students.Use(middleware.NoStore())
	{
		students.GET("", handlers.Student.ListStudents)
		students.GET("/summary", handlers.Student.Summary)
		students.GET("/export", handlers.Student.ExportStudents)
		students.GET("/:id", handlers.Student.GetStudent)

		admin := students.Group("", middleware.RequireAdmin())
		admin.POST("", handlers.Student.CreateStudent)
		admin.POST("/import", handlers.Student.ImportStudents)
		admin.PUT("/:id", handlers.Student.UpdateStudent)
		admin.DELETE("/:id", handlers.Student.DeleteStudent)
	}

	// ─── 4. WebSocket (token via query param) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireAuth...)
	{
		ws.GET("/students/changes", handlers.WS.StudentChanges)
	}

	return router
}
