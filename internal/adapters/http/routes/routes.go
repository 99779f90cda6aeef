package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"

	"shelfdesk/internal/adapters/http/handlers"
	"shelfdesk/internal/adapters/http/middleware"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/config"
	"shelfdesk/internal/core/services"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	circRepo := repositories.NewCirculationRepository(db)
	eventRepo := repositories.NewEventRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	bookService := services.NewBookService(bookRepo, circRepo)
	circService := services.NewCirculationService(db, circRepo, bookRepo, userRepo, cfg.Circulation.LoanPeriodDays)
	eventService := services.NewEventService(eventRepo)
	dashboardService := services.NewDashboardService(db)

	// Handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService, userService)
	circHandler := handlers.NewCirculationHandler(circService)
	eventHandler := handlers.NewEventHandler(eventService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	bookRoutes := apiV1.Group("/books")
	setupBookRoutes(bookRoutes, bookHandler, cfg)

	circRoutes := apiV1.Group("/circulation")
	circRoutes.Use(middleware.AuthMiddleware(cfg))
	setupCirculationRoutes(circRoutes, circHandler)

	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler)

	eventRoutes := apiV1.Group("/events")
	setupEventRoutes(eventRoutes, eventHandler, cfg)

	dashboardRoutes := apiV1.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Use(middleware.StaffOnly())
	dashboardRoutes.Get("/stats", dashboardHandler.Stats)
	dashboardRoutes.Get("/reports/:type", dashboardHandler.Report)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited against brute force
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupBookRoutes configures catalog routes. Reads are public and cacheable,
// writes need staff, reviews need any authenticated user.
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler, cfg *config.Config) {
	catalogCache := middleware.CacheControl(5 * time.Minute)

	router.Get("/", catalogCache, handler.List)
	router.Get("/featured", catalogCache, handler.Featured)
	router.Get("/new-arrivals", catalogCache, handler.NewArrivals)
	router.Get("/:id", catalogCache, handler.GetByID)

	router.Post("/", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Create)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Update)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Delete)

	router.Post("/:id/reviews", middleware.AuthMiddleware(cfg), handler.AddReview)
}

// setupCirculationRoutes configures circulation routes. Issue, return and
// lost are staff actions; renew and the read endpoints enforce borrower
// ownership in the handler or service.
func setupCirculationRoutes(router fiber.Router, handler *handlers.CirculationHandler) {
	router.Post("/issue", middleware.StaffOnly(), handler.Issue)
	router.Post("/:id/return", middleware.StaffOnly(), handler.Return)
	router.Post("/:id/lost", middleware.StaffOnly(), handler.MarkLost)
	router.Post("/:id/renew", handler.Renew)

	router.Get("/", middleware.StaffOnly(), handler.List)
	router.Get("/overdue", middleware.StaffOnly(), handler.ListOverdue)
	router.Get("/user/:userId", handler.UserActive)
	router.Get("/history/:userId", handler.UserHistory)
	router.Get("/:id", handler.GetByID)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", middleware.StaffOnly(), handler.List)
	router.Patch("/password", handler.ChangePassword)
	router.Get("/:id", handler.GetByID)
	router.Put("/:id", handler.Update)
	router.Patch("/:id/role", middleware.AdminOnly(), handler.SetRole)
	router.Delete("/:id", middleware.AdminOnly(), handler.Delete)
}

// setupEventRoutes configures library event routes
func setupEventRoutes(router fiber.Router, handler *handlers.EventHandler, cfg *config.Config) {
	eventCache := middleware.CacheControl(5 * time.Minute)

	router.Get("/", eventCache, handler.List)
	router.Get("/upcoming", eventCache, handler.Upcoming)
	router.Get("/featured", eventCache, handler.Featured)
	router.Get("/:id", eventCache, handler.GetByID)

	router.Post("/", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Create)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Update)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.Delete)

	router.Post("/:id/register", middleware.AuthMiddleware(cfg), handler.Register)
	router.Post("/:id/unregister", middleware.AuthMiddleware(cfg), handler.Unregister)
}
