package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doccustody/docs"
	"doccustody/internal/http/middleware"
	"doccustody/internal/model"
	"doccustody/internal/service"
)

// RouteOptions carries what the routes need beyond the service.
type RouteOptions struct {
	JWTSecret []byte
	JWTIssuer string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, opts RouteOptions) {
	app.Get("/healthz", LivenessProbe())
	app.Get("/health", HealthCheck(db, docSvc))

	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	documents := app.Group("/documents", middleware.Authenticate(opts.JWTSecret, opts.JWTIssuer))
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	documents.Get("/", ListDocuments(docSvc))
	documents.Post("/", adminOnly, UploadDocument(docSvc))
	documents.Get("/:id", GetDocument(docSvc))
	documents.Get("/:id/download", DownloadDocument(docSvc))
	documents.Get("/:id/verify", VerifyDocument(docSvc))
	documents.Delete("/:id", adminOnly, DeleteDocument(docSvc))
}
