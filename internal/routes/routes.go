// Package routes defines HTTP routes for the intake application.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/stage-intake/internal/config"
	"github.com/yukikurage/stage-intake/internal/handlers"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/middleware"
	"github.com/yukikurage/stage-intake/internal/models"
)

// Handlers groups every handler the router mounts. Uploads is nil when
// files are hosted elsewhere.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Admin   *handlers.AdminHandler
	Records *handlers.RecordHandler
	Audit   *handlers.AuditHandler
	Staff   *handlers.StaffHandler
	Uploads *handlers.UploadHandler
	Health  *handlers.HealthHandler
}

// Setup configures all HTTP routes. Session middleware must already be
// installed on router.
func Setup(router *gin.Engine, h Handlers, users middleware.UserLoader, cfg *config.Config, metricsCollector *metrics.Metrics) {
	router.Use(metricsCollector.Middleware())
	router.Use(middleware.CSRF(middleware.CSRFConfig{
		AllowedOrigins: []string{cfg.BaseURL},
	}))

	// Health check
	router.GET("/health", h.Health.Check)
	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	router.GET("/", h.Auth.Index)
	router.GET("/login", h.Auth.LoginPage)
	router.POST("/login", h.Auth.Login)
	router.GET("/logout", h.Auth.Logout)
	router.GET("/reset_password", h.Auth.ResetRequestPage)
	router.POST("/reset_password", h.Auth.RequestReset)
	router.GET("/reset_password/:token", h.Auth.ResetPage)
	router.POST("/reset_password/:token", h.Auth.ResetPassword)

	// Admin routes
	admin := router.Group("/admin")
	admin.Use(middleware.RequireAuth(users), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("", h.Admin.Dashboard)
		admin.POST("/add_user", h.Admin.AddUser)
		admin.POST("/delete_user/:id", h.Admin.DeleteUser)
		admin.POST("/add_stage", h.Admin.AddStage)
		admin.POST("/delete_stage/:id", h.Admin.DeleteStage)

		admin.GET("/forms", h.Admin.FormsPage)
		admin.POST("/add_form", h.Admin.AddForm)

		admin.GET("/parents", h.Records.Parents)
		admin.GET("/parent/:ref", h.Records.Parent)

		admin.GET("/report", h.Records.Reports)
		admin.GET("/reports", h.Records.Reports)
		admin.GET("/reports/export.csv", h.Records.ExportCSV)
		admin.GET("/generate_report", h.Records.ReportLookup)
		admin.GET("/generate_pdf/:ref", h.Records.GeneratePDF)
		admin.GET("/generate_report/:ref", h.Records.GeneratePDF)

		admin.GET("/logs", h.Audit.Logs)
	}

	// Staff routes
	staff := router.Group("")
	staff.Use(middleware.RequireAuth(users), middleware.RequireRole(models.RoleStaff))
	{
		staff.GET("/staff", h.Staff.Dashboard)
		staff.POST("/staff/submit_form", h.Staff.Submit)
		staff.POST("/submit_form", h.Staff.Submit)
	}

	if h.Uploads != nil {
		uploads := router.Group("/uploads")
		uploads.Use(middleware.RequireAuth(users), middleware.RequireRole(models.RoleAdmin))
		uploads.GET("/*key", h.Uploads.Serve)
	}
}
