package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/http/middleware"
	"marketapi/internal/model"
	"marketapi/internal/resilience"
	"marketapi/internal/service"
)

// Services groups the use cases the routes dispatch to.
type Services struct {
	Health      service.HealthService
	Documents   service.DocumentService
	Analyses    service.AnalysisService
	APIKeys     service.APIKeyService
	Preferences service.PreferenceService
	Billing     service.BillingService
	Support     service.SupportService
	Metrics     service.MetricService
	Dashboard   service.DashboardService
	Admin       service.AdminService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Everything under /api/v1 requires a bearer token; limiter may be nil to disable per-user limits.
func RegisterRoutes(app *fiber.App, s Services, tokens middleware.TokenParser, limiter *resilience.KeyedLimiter) {
	app.Get("/health", HealthCheck(s.Health))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/v1", middleware.NoStore(), middleware.Auth(tokens))
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}

	api.Post("/analyses", RunAnalysis(s.Analyses))
	api.Get("/analyses", ListAnalyses(s.Analyses))
	api.Get("/analyses/:id", GetAnalysis(s.Analyses))
	api.Delete("/analyses/:id", DeleteAnalysis(s.Analyses))

	api.Post("/api-keys", SaveAPIKey(s.APIKeys))
	api.Get("/api-keys", ListAPIKeys(s.APIKeys))
	api.Delete("/api-keys/:id", DeleteAPIKey(s.APIKeys))
	api.Post("/api-keys/:id/validate", ValidateAPIKey(s.APIKeys))
	api.Get("/providers", ListProviders(s.APIKeys))

	api.Post("/documents", UploadDocument(s.Documents))
	api.Get("/documents", ListDocuments(s.Documents))
	api.Get("/documents/:id", GetDocument(s.Documents))
	api.Get("/documents/:id/download", DownloadDocument(s.Documents))
	api.Get("/documents/:id/content", DocumentContent(s.Documents))
	api.Delete("/documents/:id", DeleteDocument(s.Documents))

	api.Get("/preferences", GetPreferences(s.Preferences))
	api.Put("/preferences", UpdatePreferences(s.Preferences))
	api.Get("/billing", ListBilling(s.Billing))
	api.Post("/tickets", CreateTicket(s.Support))
	api.Get("/tickets", ListTickets(s.Support))
	api.Post("/metrics/events", RecordMetric(s.Metrics))
	api.Get("/dashboard", Dashboard(s.Dashboard))

	admin := api.Group("/admin", middleware.RequireRole(s.Admin, model.RoleAdmin))
	admin.Put("/users/:id/role", SetUserRole(s.Admin))
	admin.Get("/users/:id/role", GetUserRole(s.Admin))
	admin.Patch("/tickets/:id/status", UpdateTicketStatus(s.Support))
	admin.Get("/usage", UsageSummary(s.Metrics))
	admin.Get("/providers/health", ProviderHealth(s.Admin))
}
