package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/tagvault/tagvault/internal/api/handlers"
	"github.com/tagvault/tagvault/internal/api/middleware"
	"github.com/tagvault/tagvault/internal/assets"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/auth"
	"github.com/tagvault/tagvault/internal/companies"
	"github.com/tagvault/tagvault/internal/geo"
	"github.com/tagvault/tagvault/internal/loans"
	"github.com/tagvault/tagvault/internal/reports"
	"github.com/tagvault/tagvault/internal/subscriptions"
	"github.com/tagvault/tagvault/internal/users"
	"github.com/tagvault/tagvault/internal/workflow"
	"github.com/tagvault/tagvault/pkg/config"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	AuthConfig     *config.AuthConfig
	AsynqClient    *asynq.Client
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
	WriteLimitReqs int
	WriteLimitSecs int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	auditLogger := audit.NewLogger(cfg.DB, cfg.Logger)
	workflowService := workflow.NewService(cfg.DB)
	assetService := assets.NewService(cfg.DB, auditLogger)
	geoService := geo.NewService(cfg.DB, auditLogger)
	loanService := loans.NewService(cfg.DB, auditLogger)
	subscriptionService := subscriptions.NewService(cfg.DB, cfg.JWTService, cfg.AuthConfig, auditLogger, "")
	companyService := companies.NewService(cfg.DB, subscriptionService, auditLogger)
	userService := users.NewService(cfg.DB, auditLogger)
	reportService := reports.NewService(cfg.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	assetHandler := handlers.NewAssetHandler(assetService)
	locationHandler := handlers.NewLocationHandler(geoService)
	loanHandler := handlers.NewLoanHandler(loanService)
	companyHandler := handlers.NewCompanyHandler(companyService, reportService)
	userHandler := handlers.NewUserHandler(userService)
	workflowHandler := handlers.NewWorkflowHandler(workflowService, auditLogger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)

	writeLimit := middleware.WriteRateLimit(cfg.WriteLimitReqs, cfg.WriteLimitSecs)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/verify-otp", authHandler.VerifyOtp)
		r.Post("/auth/reset/request", authHandler.RequestReset)
		r.Post("/auth/reset/confirm", authHandler.ConfirmReset)

		// Payment callback carries its own short-lived token
		r.Post("/subscriptions/verify", subscriptionHandler.VerifyPayment)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.AuthService))

			r.Get("/me", userHandler.Me)
			r.Get("/me/premium", subscriptionHandler.Premium)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/plans", subscriptionHandler.Plans)
				r.Get("/status", subscriptionHandler.Status)
				r.With(writeLimit).Post("/", subscriptionHandler.Create)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", companyHandler.List)
				r.With(writeLimit).Post("/", companyHandler.Create)
				r.Get("/reports", companyHandler.AllReports)

				r.Route("/{companyID}", func(r chi.Router) {
					r.Use(middleware.CompanyScope(cfg.AuthService))

					r.Get("/", companyHandler.Get)
					r.With(writeLimit).Put("/", companyHandler.Update)
					r.With(writeLimit).Delete("/", companyHandler.Deactivate)
					r.Get("/overview", companyHandler.Overview)
					r.Get("/who-is", companyHandler.WhoIs)
					r.Get("/report", companyHandler.Report)

					r.Route("/users", func(r chi.Router) {
						r.Get("/", userHandler.List)
						r.With(writeLimit).Post("/", userHandler.Create)
						r.With(writeLimit).Put("/{userID}", userHandler.Update)
						r.With(writeLimit).Put("/{userID}/role", userHandler.ChangeRole)
						r.With(writeLimit).Delete("/{userID}", userHandler.Delete)
					})

					r.Get("/assets", assetHandler.ListAssets)
					r.Get("/loans", loanHandler.ListLoans)
					r.Get("/workflows", workflowHandler.List)
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", assetHandler.ListCategories)
				r.With(writeLimit).Post("/", assetHandler.CreateCategory)
			})

			r.Route("/assets", func(r chi.Router) {
				r.With(writeLimit).Post("/", assetHandler.CreateAsset)
				r.Post("/scan", assetHandler.Scan)

				r.Route("/{assetID}", func(r chi.Router) {
					r.Get("/", assetHandler.GetAsset)
					r.With(writeLimit).Put("/", assetHandler.UpdateAsset)
					r.Get("/location", locationHandler.GetLocation)
					r.With(writeLimit).Put("/location", locationHandler.UpsertLocation)
					r.Post("/geofence-check", locationHandler.CheckGeofence)
				})
			})

			r.Route("/loans", func(r chi.Router) {
				r.With(writeLimit).Post("/", loanHandler.CreateLoan)
				r.With(writeLimit).Post("/{loanID}/return", loanHandler.ReturnLoan)
			})

			r.Get("/logs", workflowHandler.Logs)
		})
	})

	return &Router{r}
}
