package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/stage-intake/internal/config"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/database"
	"github.com/yukikurage/stage-intake/internal/handlers"
	"github.com/yukikurage/stage-intake/internal/mailer"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/routes"
	"github.com/yukikurage/stage-intake/internal/services"
	"github.com/yukikurage/stage-intake/internal/storage"
	"github.com/yukikurage/stage-intake/internal/web"
	"github.com/yukikurage/stage-intake/pkg/redis"
)

func main() {
	// Load .env when present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	stageRepo := repository.NewStageRepository(db)
	formRepo := repository.NewFormRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Reset tokens live in Redis when it is configured, otherwise on the user row
	tokenRepo := repository.NewResetTokenRepository(db)
	if cfg.RedisEnabled() {
		redisClient, err := redis.NewClient(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		tokenRepo = repository.NewRedisResetTokenRepository(redisClient)
	}

	// Initialize outbound integrations
	mail, err := mailer.New(cfg.SMTP)
	if err != nil {
		log.Fatalf("Failed to configure mail: %v", err)
	}
	if !cfg.SMTP.Enabled() {
		log.Println("SMTP_HOST not set, password reset and confirmation mail are disabled")
	}
	files, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to configure file storage: %v", err)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, tokenRepo, auditRepo, mail, services.AuthOptions{
		BaseURL:  cfg.BaseURL,
		TokenTTL: cfg.ResetTokenTTL,
	})
	userService := services.NewUserService(userRepo, stageRepo)
	catalogService := services.NewCatalogService(stageRepo, formRepo)
	submissionService := services.NewSubmissionService(stageRepo, formRepo, recordRepo, files, mail, services.SubmissionOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadTimeout:  cfg.UploadTimeout,
	})
	reportService := services.NewReportService(recordRepo)
	auditService := services.NewAuditService(auditRepo)

	metricsCollector := metrics.New(prometheus.DefaultRegisterer)

	// Initialize handlers
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, metricsCollector),
		Admin:   handlers.NewAdminHandler(userService, catalogService),
		Records: handlers.NewRecordHandler(reportService, catalogService, metricsCollector),
		Audit:   handlers.NewAuditHandler(auditService),
		Staff:   handlers.NewStaffHandler(submissionService, metricsCollector),
		Health:  handlers.NewHealthHandler(db),
	}
	if local, ok := files.(*storage.LocalStore); ok {
		h.Uploads = handlers.NewUploadHandler(local)
	}

	// Initialize Gin router
	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	templates, err := web.Templates()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	r.SetHTMLTemplate(templates)

	// Setup session middleware
	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(), // true in production (HTTPS), false in development
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	routes.Setup(r, h, authService, cfg, metricsCollector)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newSessionStore keeps sessions in Redis when it is configured and in a
// signed cookie otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	if !cfg.RedisEnabled() {
		return cookie.NewStore([]byte(cfg.SessionSecret)), nil
	}
	return redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		cfg.RedisAddr,             // Redis address from config
		cfg.RedisPassword,         // password
		[]byte(cfg.SessionSecret), // authentication key
	)
}
